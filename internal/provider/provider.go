// Package provider implements clients for external language reasoning
// providers. The rest of the system treats a provider as optional: when no
// provider is configured or a call fails, callers fall back to deterministic
// output, so nothing in this package is ever on the critical path.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/flightd/internal/config"
)

// Default configuration values.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultMaxTokens        = 1024
	defaultTimeout          = 60 * time.Second
	defaultMaxRetries       = 3
	defaultBaseBackoff      = 1 * time.Second
	defaultTemperature      = 0.3
)

// Rate limiter defaults: 50 requests per minute for both APIs.
const (
	defaultRateLimit = 50.0 / 60.0 // ~0.83 requests per second
	defaultBurst     = 5           // Allow bursts of up to 5 requests
)

// ErrNotConfigured is returned by New when no provider credentials are
// present. Callers treat it as "run degraded", not as a failure.
var ErrNotConfigured = errors.New("no reasoning provider configured")

// Provider generates a text completion for a system/user prompt pair.
type Provider interface {
	// Name identifies the provider in logs and responses.
	Name() string

	// Generate returns the provider's reply to the prompt pair. It respects
	// context cancellation and retries transient failures internally.
	Generate(ctx context.Context, system, user string) (string, error)
}

// New selects and builds a provider from configuration.
//
// An explicit Kind requires the matching API key. With Kind empty the
// selection is automatic: OpenAI when its key is set, Anthropic otherwise.
// With no keys at all New returns ErrNotConfigured.
func New(cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Kind {
	case "openai":
		if !cfg.OpenAIAPIKey.IsSet() {
			return nil, fmt.Errorf("provider kind openai: %w", ErrNotConfigured)
		}
		return newOpenAIProvider(cfg), nil
	case "anthropic":
		if !cfg.AnthropicAPIKey.IsSet() {
			return nil, fmt.Errorf("provider kind anthropic: %w", ErrNotConfigured)
		}
		return newAnthropicProvider(cfg), nil
	case "":
		if cfg.OpenAIAPIKey.IsSet() {
			return newOpenAIProvider(cfg), nil
		}
		if cfg.AnthropicAPIKey.IsSet() {
			return newAnthropicProvider(cfg), nil
		}
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

// retryableError marks errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var re *retryableError
	return errors.As(err, &re)
}

// backoffFor computes the exponential backoff before the given attempt.
func backoffFor(attempt int) time.Duration {
	return defaultBaseBackoff * time.Duration(1<<(attempt-1))
}

func timeoutOrDefault(d config.Duration) time.Duration {
	if d.Duration() > 0 {
		return d.Duration()
	}
	return defaultTimeout
}

func maxTokensOrDefault(n int) int {
	if n > 0 {
		return n
	}
	return defaultMaxTokens
}
