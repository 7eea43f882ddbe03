// Package config provides configuration loading for bookd.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables prefixed with BOOKD_. Missing values fall back to defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/bookd/internal/export"
	"github.com/fyrsmithlabs/bookd/internal/genai"
	"github.com/fyrsmithlabs/bookd/internal/logging"
)

// Secret wraps strings that should be redacted in logs and serialization.
// Use Value() to access the actual secret value.
type Secret string

// String implements fmt.Stringer. Always returns a redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Value returns the actual secret value.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns a redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// NotifyConfig holds the optional notification sinks. Empty values disable
// the corresponding sink.
type NotifyConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
	WebhookURL    string `koanf:"webhook_url"`
}

// Config holds the complete bookd configuration.
type Config struct {
	Server     ServerConfig   `koanf:"server"`
	Database   DatabaseConfig `koanf:"database"`
	Generation genai.Config   `koanf:"generation"`
	APIKey     Secret         `koanf:"api_key"`
	Export     export.Config  `koanf:"export"`
	Notify     NotifyConfig   `koanf:"notify"`
	Logging    logging.Config `koanf:"logging"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "bookd.db",
		},
		Generation: *genai.DefaultConfig(),
		Export:     *export.DefaultConfig(),
		Notify: NotifyConfig{
			SubjectPrefix: "bookd.events",
		},
		Logging: *logging.NewDefaultConfig(),
	}
}

// applyDefaults fills missing values from Default.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	cfg.Generation.ApplyDefaults()
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = def.Export.OutputDir
	}
	if len(cfg.Export.Formats) == 0 {
		cfg.Export.Formats = def.Export.Formats
	}
	if cfg.Notify.SubjectPrefix == "" {
		cfg.Notify.SubjectPrefix = def.Notify.SubjectPrefix
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Generation.MaxRetries < 1 {
		return fmt.Errorf("generation max_retries must be at least 1, got %d", c.Generation.MaxRetries)
	}
	return c.Logging.Validate()
}
