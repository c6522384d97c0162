// Package config handles configuration loading and management for kestrel.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for kestrel.
type Config struct {
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Cost      CostConfig      `mapstructure:"cost"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

// DispatchConfig holds task lifecycle settings.
type DispatchConfig struct {
	// TaskTTL is the retention window past a task's last update.
	TaskTTL time.Duration `mapstructure:"task_ttl"`
	// SweepInterval is how often the eviction sweep runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// MaxSteps caps a task's step plan length. Zero means uncapped.
	MaxSteps int `mapstructure:"max_steps"`
}

// CostConfig holds cost estimation settings.
type CostConfig struct {
	// USDPerToken is the dollar rate applied to estimated tokens.
	USDPerToken float64 `mapstructure:"usd_per_token"`
}

// JournalConfig holds terminal-task archive settings.
type JournalConfig struct {
	// Enabled toggles the SQLite journal.
	Enabled bool `mapstructure:"enabled"`
	// Path is the journal database location. Empty means the XDG default.
	Path string `mapstructure:"path"`
}

// RoutingConfig holds step routing settings.
type RoutingConfig struct {
	// RulesPath points at a routing overlay file. Empty uses built-ins only.
	RulesPath string `mapstructure:"rules_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	// LogPath points at the dispatch debug log. Empty disables it.
	LogPath string `mapstructure:"log_path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (KESTREL_*, ANTHROPIC_API_KEY)
// 2. Project config (.kestrel.yaml in current directory or parent)
// 3. User config (~/.config/kestrel/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("KESTREL")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("dispatch.task_ttl", cfg.Dispatch.TaskTTL.String())
	v.Set("dispatch.sweep_interval", cfg.Dispatch.SweepInterval.String())
	v.Set("dispatch.max_steps", cfg.Dispatch.MaxSteps)
	v.Set("cost.usd_per_token", cfg.Cost.USDPerToken)
	v.Set("journal.enabled", cfg.Journal.Enabled)
	v.Set("journal.path", cfg.Journal.Path)
	v.Set("routing.rules_path", cfg.Routing.RulesPath)
	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("debug.log_path", cfg.Debug.LogPath)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Dispatch: DispatchConfig{
			TaskTTL:       2 * time.Hour,
			SweepInterval: 30 * time.Minute,
			MaxSteps:      0,
		},
		Cost: CostConfig{
			USDPerToken: 0.00003,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
	}
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("dispatch.task_ttl", "2h")
	v.SetDefault("dispatch.sweep_interval", "30m")
	v.SetDefault("dispatch.max_steps", 0)

	v.SetDefault("cost.usd_per_token", 0.00003)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "")

	v.SetDefault("routing.rules_path", "")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")

	v.SetDefault("debug.log_path", "")
}

// getUserConfigDir returns the XDG config directory for kestrel.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kestrel")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "kestrel")
	}
	return filepath.Join(home, ".config", "kestrel")
}

// findProjectConfig searches for .kestrel.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".kestrel.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
