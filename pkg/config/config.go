package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider names for the completion service.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// DefaultModel is used when neither the config file nor the flags name one.
const DefaultModel = "claude-sonnet-4-5-20250929"

// Config holds the immutable run parameters. It is assembled once at startup
// from the optional YAML file plus command-line flags and never mutated
// afterwards.
type Config struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	MaxIterations  int     `yaml:"max_iterations"`
	HistoryWindow  int     `yaml:"history_window"`
	Temperature    float64 `yaml:"temperature"`
	ConfirmActions bool    `yaml:"confirm_actions"`
	Headless       bool    `yaml:"headless"`
	ManualLogin    bool    `yaml:"manual_login"`
	SessionPath    string  `yaml:"session_path"`
	ScreenshotDir  string  `yaml:"screenshot_dir"`
	LogDir         string  `yaml:"log_dir"`

	// Task is the natural-language instruction. Flags only; a task in a
	// config file would silently re-run on every invocation.
	Task string `yaml:"-"`
}

// Default returns the baseline configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".webpilot")
	return Config{
		Provider:      ProviderAnthropic,
		Model:         DefaultModel,
		MaxIterations: 12,
		HistoryWindow: 7,
		Temperature:   0,
		SessionPath:   filepath.Join(base, "profile"),
		ScreenshotDir: filepath.Join(base, "shots"),
		LogDir:        filepath.Join(base, "logs"),
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; flags still apply on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the assembled configuration. Violations here are fatal at
// startup; nothing else ever is.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Task) == "" {
		return fmt.Errorf("task is required")
	}
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderAnthropic, ProviderOpenAI)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("history window must not be negative, got %d", c.HistoryWindow)
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be in [0, 1], got %g", c.Temperature)
	}
	if strings.TrimSpace(c.SessionPath) == "" {
		return fmt.Errorf("session path is required")
	}
	return nil
}
