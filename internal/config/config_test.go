package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Dispatch.TaskTTL != 2*time.Hour {
		t.Errorf("expected default task TTL 2h, got %v", cfg.Dispatch.TaskTTL)
	}

	if cfg.Dispatch.SweepInterval != 30*time.Minute {
		t.Errorf("expected default sweep interval 30m, got %v", cfg.Dispatch.SweepInterval)
	}

	if cfg.Cost.USDPerToken != 0.00003 {
		t.Errorf("expected default rate 0.00003, got %v", cfg.Cost.USDPerToken)
	}

	if !cfg.Journal.Enabled {
		t.Error("expected journal enabled by default")
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
dispatch:
  task_ttl: 1h
  max_steps: 8
cost:
  usd_per_token: 0.00005
journal:
  enabled: false
  path: /tmp/kestrel-test.db
anthropic:
  api_key: test-key
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Dispatch.TaskTTL != time.Hour {
		t.Errorf("expected task TTL 1h, got %v", cfg.Dispatch.TaskTTL)
	}
	if cfg.Dispatch.MaxSteps != 8 {
		t.Errorf("expected max steps 8, got %d", cfg.Dispatch.MaxSteps)
	}
	if cfg.Cost.USDPerToken != 0.00005 {
		t.Errorf("expected rate 0.00005, got %v", cfg.Cost.USDPerToken)
	}
	if cfg.Journal.Enabled {
		t.Error("expected journal disabled")
	}
	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api key from file, got %q", cfg.Anthropic.APIKey)
	}

	// Unset fields keep their defaults.
	if cfg.Dispatch.SweepInterval != 30*time.Minute {
		t.Errorf("expected default sweep interval, got %v", cfg.Dispatch.SweepInterval)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("KESTREL_TEST_KEY", "expanded-value")
	content := "anthropic:\n  api_key: ${KESTREL_TEST_KEY}\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Anthropic.APIKey != "expanded-value" {
		t.Errorf("expected env expansion, got %q", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
