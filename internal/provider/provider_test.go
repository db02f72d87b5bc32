package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/flightd/internal/config"
)

func TestNew_Selection(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ProviderConfig
		wantName string
		wantErr  error
	}{
		{
			name:     "explicit openai",
			cfg:      config.ProviderConfig{Kind: "openai", OpenAIAPIKey: "sk-test"},
			wantName: "openai",
		},
		{
			name:     "explicit anthropic",
			cfg:      config.ProviderConfig{Kind: "anthropic", AnthropicAPIKey: "sk-ant-test"},
			wantName: "anthropic",
		},
		{
			name:    "explicit openai without key",
			cfg:     config.ProviderConfig{Kind: "openai"},
			wantErr: ErrNotConfigured,
		},
		{
			name:     "auto prefers openai when both keys set",
			cfg:      config.ProviderConfig{OpenAIAPIKey: "sk-test", AnthropicAPIKey: "sk-ant-test"},
			wantName: "openai",
		},
		{
			name:     "auto falls back to anthropic",
			cfg:      config.ProviderConfig{AnthropicAPIKey: "sk-ant-test"},
			wantName: "anthropic",
		},
		{
			name:    "no keys at all",
			cfg:     config.ProviderConfig{},
			wantErr: ErrNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(config.ProviderConfig{Kind: "llama"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llama")
}

func TestOpenAIProvider_Generate(t *testing.T) {
	var gotAuth string
	var gotReq openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "all clear"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := newOpenAIProvider(config.ProviderConfig{
		OpenAIAPIKey: "sk-test",
		BaseURL:      server.URL,
	})

	reply, err := p.Generate(context.Background(), "you are an analyst", "assess this flight")
	require.NoError(t, err)
	assert.Equal(t, "all clear", reply)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "you are an analyst", gotReq.Messages[0].Content)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestAnthropicProvider_Generate(t *testing.T) {
	var gotKey, gotVersion string
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotVersion = r.Header.Get("Anthropic-Version")
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"content": []map[string]string{{"type": "text", "text": "nominal flight"}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := newAnthropicProvider(config.ProviderConfig{
		AnthropicAPIKey: "sk-ant-test",
		BaseURL:         server.URL,
	})

	reply, err := p.Generate(context.Background(), "you are an analyst", "assess this flight")
	require.NoError(t, err)
	assert.Equal(t, "nominal flight", reply)

	assert.Equal(t, "sk-ant-test", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "you are an analyst", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestOpenAIProvider_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := newOpenAIProvider(config.ProviderConfig{OpenAIAPIKey: "sk-test", BaseURL: server.URL})

	reply, err := p.Generate(context.Background(), "", "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnthropicProvider_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]string{"type": "invalid_request_error", "message": "bad prompt"},
		})
	}))
	defer server.Close()

	p := newAnthropicProvider(config.ProviderConfig{AnthropicAPIKey: "sk-ant-test", BaseURL: server.URL})

	_, err := p.Generate(context.Background(), "", "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
	assert.Equal(t, int32(1), calls.Load())
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(errors.New("plain")))
	assert.True(t, isRetryableError(&retryableError{err: errors.New("429")}))
}
