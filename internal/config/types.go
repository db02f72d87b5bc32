package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration for text unmarshaling (YAML, env vars).
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Secret wraps strings that should be redacted in logs and serialization.
// Use Value() to access the actual secret value.
type Secret string

// String implements fmt.Stringer. Always returns redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

// MarshalText implements encoding.TextMarshaler. Always returns redacted value.
func (s Secret) MarshalText() ([]byte, error) {
	if s == "" {
		return []byte(""), nil
	}
	return []byte("[REDACTED]"), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Accepts raw secret values.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}

// Config is the root flightd configuration.
type Config struct {
	Logging    LoggingConfig    `koanf:"logging"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Heuristics HeuristicsConfig `koanf:"heuristics"`
	Provider   ProviderConfig   `koanf:"provider"`
	Memory     MemoryConfig     `koanf:"memory"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// IngestConfig bounds telemetry ingestion. The budget and ceiling are
// resource-exhaustion guards: exceeding either aborts the parse as fatal.
type IngestConfig struct {
	MaxLogBytes       int64    `koanf:"max_log_bytes"`
	MaxMessages       int      `koanf:"max_messages"`
	ParseBudget       Duration `koanf:"parse_budget"`
	AllowedExtensions []string `koanf:"allowed_extensions"`
}

// HeuristicsConfig holds thresholds for the deterministic anomaly tier.
// Defaults match the documented detector behavior; tests override them
// independently of the detection algorithm.
type HeuristicsConfig struct {
	// PoorFixCeiling is the GPS fix-type ordinal below which a fix counts as poor.
	PoorFixCeiling int `koanf:"poor_fix_ceiling"`
	// GPSPoorFixRatio is the poor-fix fraction above which GPS instability is flagged.
	GPSPoorFixRatio float64 `koanf:"gps_poor_fix_ratio"`
	// VibrationLimit is the per-axis magnitude above which a sample counts as high vibration.
	VibrationLimit float64 `koanf:"vibration_limit"`
	// VibrationRatio is the high-vibration fraction above which vibration is flagged.
	VibrationRatio float64 `koanf:"vibration_ratio"`
	// LowVoltage flags any battery sample below this voltage.
	LowVoltage float64 `koanf:"low_voltage"`
	// AltitudeDropMeters flags any adjacent altitude drop larger than this.
	AltitudeDropMeters float64 `koanf:"altitude_drop_meters"`
}

// ProviderConfig configures the external language reasoning provider.
// An empty kind with no API keys leaves the core in degraded mode, which
// is fully functional.
type ProviderConfig struct {
	// Kind selects the provider: "openai", "anthropic" or "" for auto.
	Kind            string   `koanf:"kind"`
	OpenAIAPIKey    Secret   `koanf:"openai_api_key"`
	AnthropicAPIKey Secret   `koanf:"anthropic_api_key"`
	BaseURL         string   `koanf:"base_url"`
	Model           string   `koanf:"model"`
	Timeout         Duration `koanf:"timeout"`
	MaxTokens       int      `koanf:"max_tokens"`
}

// MemoryConfig configures the conversation memory engine.
type MemoryConfig struct {
	// Path is the JSON persistence file for sessions and the user profile.
	Path string `koanf:"path"`
	// Retention is the inactivity window after which sessions are evicted.
	Retention Duration `koanf:"retention"`
	// RecentTurns is how many turns are rendered into conversation context.
	RecentTurns int `koanf:"recent_turns"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Ingest.MaxMessages <= 0 {
		return fmt.Errorf("ingest.max_messages must be positive")
	}
	if c.Ingest.ParseBudget.Duration() <= 0 {
		return fmt.Errorf("ingest.parse_budget must be positive")
	}
	if c.Heuristics.GPSPoorFixRatio < 0 || c.Heuristics.GPSPoorFixRatio > 1 {
		return fmt.Errorf("heuristics.gps_poor_fix_ratio must be in [0,1]")
	}
	if c.Heuristics.VibrationRatio < 0 || c.Heuristics.VibrationRatio > 1 {
		return fmt.Errorf("heuristics.vibration_ratio must be in [0,1]")
	}
	if c.Heuristics.AltitudeDropMeters < 0 {
		return fmt.Errorf("heuristics.altitude_drop_meters cannot be negative")
	}
	if c.Memory.RecentTurns <= 0 {
		return fmt.Errorf("memory.recent_turns must be positive")
	}
	switch c.Provider.Kind {
	case "", "openai", "anthropic":
	default:
		return fmt.Errorf("provider.kind must be openai, anthropic or empty, got %q", c.Provider.Kind)
	}
	return nil
}
