package executor

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestNewAnthropicExecutorDefaults(t *testing.T) {
	e, err := NewAnthropicExecutor(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicExecutor: %v", err)
	}
	if e.model != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("default model = %q", e.model)
	}
	if e.maxTokens != 1024 {
		t.Errorf("default max tokens = %d, want 1024", e.maxTokens)
	}
	if len(e.Capabilities()) != 5 {
		t.Errorf("default capabilities = %v", e.Capabilities())
	}
}

func TestNewAnthropicExecutorHonorsConfig(t *testing.T) {
	model := anthropic.Model("claude-opus-4-1-20250805")
	e, err := NewAnthropicExecutor(AnthropicConfig{
		APIKey:       "test-key",
		Model:        model,
		MaxTokens:    2048,
		Capabilities: []string{"research"},
	})
	if err != nil {
		t.Fatalf("NewAnthropicExecutor: %v", err)
	}
	if e.model != model {
		t.Errorf("model = %q, want %q", e.model, model)
	}
	if e.maxTokens != 2048 {
		t.Errorf("max tokens = %d, want 2048", e.maxTokens)
	}
	if got := e.Capabilities(); len(got) != 1 || got[0] != "research" {
		t.Errorf("capabilities = %v, want [research]", got)
	}
}

func TestNewAnthropicExecutorRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewAnthropicExecutor(AnthropicConfig{}); err == nil {
		t.Fatal("expected an error without an API key")
	}
}
