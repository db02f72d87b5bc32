// Package config provides configuration loading for flightd.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load loads configuration from a YAML file, then overrides with environment
// variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (HEURISTICS_LOW_VOLTAGE, PROVIDER_KIND, etc.)
//  2. YAML config file
//  3. Hardcoded defaults
//
// If configPath is empty or the file does not exist, only environment
// variables and defaults apply.
//
// Environment variables use underscore separator and are uppercased; the
// transformer splits on the first underscore into section.field_name:
//
//	INGEST_MAX_MESSAGES  -> ingest.max_messages
//	PROVIDER_OPENAI_API_KEY -> provider.openai_api_key
//	MEMORY_RECENT_TURNS  -> memory.recent_turns
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			f, err := os.Open(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}

			content, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}

			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	// Override with environment variables. Only known sections are mapped so
	// unrelated environment noise does not leak into the config.
	if err := k.Load(env.Provider("", ".", func(s string) string {
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return ""
		}
		switch parts[0] {
		case "logging", "ingest", "heuristics", "provider", "memory":
			return parts[0] + "." + parts[1]
		}
		return ""
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Ingest guards
	if cfg.Ingest.MaxLogBytes == 0 {
		cfg.Ingest.MaxLogBytes = 100 * 1024 * 1024 // 100MB
	}
	if cfg.Ingest.MaxMessages == 0 {
		cfg.Ingest.MaxMessages = 1_000_000
	}
	if cfg.Ingest.ParseBudget == 0 {
		cfg.Ingest.ParseBudget = Duration(60 * time.Second)
	}
	if len(cfg.Ingest.AllowedExtensions) == 0 {
		cfg.Ingest.AllowedExtensions = []string{".jsonl", ".log"}
	}

	// Heuristic thresholds
	if cfg.Heuristics.PoorFixCeiling == 0 {
		cfg.Heuristics.PoorFixCeiling = 3
	}
	if cfg.Heuristics.GPSPoorFixRatio == 0 {
		cfg.Heuristics.GPSPoorFixRatio = 0.10
	}
	if cfg.Heuristics.VibrationLimit == 0 {
		cfg.Heuristics.VibrationLimit = 30
	}
	if cfg.Heuristics.VibrationRatio == 0 {
		cfg.Heuristics.VibrationRatio = 0.05
	}
	if cfg.Heuristics.LowVoltage == 0 {
		cfg.Heuristics.LowVoltage = 3.3
	}
	if cfg.Heuristics.AltitudeDropMeters == 0 {
		cfg.Heuristics.AltitudeDropMeters = 5
	}

	// Provider
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = Duration(60 * time.Second)
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 1024
	}

	// Memory
	if cfg.Memory.Path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.Memory.Path = home + "/.config/flightd/memory.json"
		} else {
			cfg.Memory.Path = "memory.json"
		}
	}
	if cfg.Memory.Retention == 0 {
		cfg.Memory.Retention = Duration(30 * 24 * time.Hour)
	}
	if cfg.Memory.RecentTurns == 0 {
		cfg.Memory.RecentTurns = 5
	}
}
