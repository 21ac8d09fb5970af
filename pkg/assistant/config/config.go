// Package config loads assistant configuration from YAML with
// environment-variable overrides. Secrets never live in the file: the
// config names the environment variable that holds the API key.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can express timeouts as "60s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Model configures the language model endpoint.
type Model struct {
	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
	// Name is the model identifier sent on requests.
	Name string `yaml:"name"`
	// Timeout bounds a single model call.
	Timeout Duration `yaml:"timeout"`
}

// Config is the full assistant configuration.
type Config struct {
	Model Model `yaml:"model"`

	// SessionDB is the SQLite path for conversation checkpoints.
	SessionDB string `yaml:"session_db"`
	// PriceDB is the PostgreSQL DSN for historical prices. Empty
	// disables the persistence tool.
	PriceDB string `yaml:"price_db"`
	// ChartDir receives rendered PNG charts.
	ChartDir string `yaml:"chart_dir"`
	// ExportDir receives JSON exports.
	ExportDir string `yaml:"export_dir"`
	// MaxSteps bounds node executions per conversation turn.
	MaxSteps int `yaml:"max_steps"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model: Model{
			APIKeyEnv: "OPENAI_API_KEY",
			Name:      "gpt-4o-mini",
			Timeout:   Duration(60 * time.Second),
		},
		SessionDB: "sessions.db",
		ChartDir:  "charts",
		ExportDir: "exports",
		MaxSteps:  25,
		LogLevel:  "info",
	}
}

// Load reads a YAML config file over the defaults and then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values from FINASSIST_* variables.
func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Model.BaseURL, "FINASSIST_MODEL_BASE_URL")
	setString(&c.Model.Name, "FINASSIST_MODEL_NAME")
	setString(&c.Model.APIKeyEnv, "FINASSIST_MODEL_API_KEY_ENV")
	setString(&c.SessionDB, "FINASSIST_SESSION_DB")
	setString(&c.PriceDB, "FINASSIST_PRICE_DB")
	setString(&c.ChartDir, "FINASSIST_CHART_DIR")
	setString(&c.ExportDir, "FINASSIST_EXPORT_DIR")
	setString(&c.LogLevel, "FINASSIST_LOG_LEVEL")

	if v := os.Getenv("FINASSIST_MAX_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxSteps = n
		}
	}
	if v := os.Getenv("FINASSIST_MODEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Model.Timeout = Duration(d)
		}
	}
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if c.Model.APIKeyEnv == "" {
		return fmt.Errorf("model.api_key_env is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if time.Duration(c.Model.Timeout) <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	return nil
}

// APIKey resolves the model API key from the configured environment
// variable. Empty when unset.
func (c Config) APIKey() string {
	return os.Getenv(c.Model.APIKeyEnv)
}
