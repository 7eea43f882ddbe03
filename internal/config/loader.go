package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// envPrefix namespaces bookd environment variables.
const envPrefix = "BOOKD_"

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (BOOKD_SERVER_PORT, BOOKD_GENERATION_MODEL, ...)
//  2. YAML config file
//  3. Defaults
//
// A missing file is not an error; an unreadable or oversized one is.
func Load(configPath string) (*Config, error) {
	var content []byte
	if configPath != "" {
		info, err := os.Stat(configPath)
		switch {
		case os.IsNotExist(err):
			// Run on env vars and defaults alone.
		case err != nil:
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		case info.Size() > maxConfigFileSize:
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		default:
			content, err = os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}
	return load(content)
}

// LoadBytes loads configuration from raw YAML, then overrides with
// environment variables. Used by tests.
func LoadBytes(content []byte) (*Config, error) {
	return load(content)
}

func load(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// BOOKD_SERVER_PORT -> server.port
	// BOOKD_GENERATION_BASE_URL -> generation.base_url
	// BOOKD_API_KEY -> api_key
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if lower == "api_key" {
			return lower
		}
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// The top-level secret is the supported way to pass the key; it wins
	// over anything inlined under generation.
	if cfg.APIKey.IsSet() {
		cfg.Generation.APIKey = cfg.APIKey.Value()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
