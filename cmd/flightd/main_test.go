package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// withConfig points buildServices at an ephemeral config file (or at the
// defaults when yaml is empty) and keeps the memory file out of the real
// home directory.
func withConfig(t *testing.T, yaml string) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())

	prev := configPath
	t.Cleanup(func() { configPath = prev })

	if yaml == "" {
		configPath = ""
		return
	}
	path := filepath.Join(t.TempDir(), "flightd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	configPath = path
}

func TestBuildServices_Defaults(t *testing.T) {
	withConfig(t, "")

	svcs, err := buildServices()
	require.NoError(t, err)

	assert.NotNil(t, svcs.flights)
	assert.NotNil(t, svcs.memory)
	assert.NotNil(t, svcs.chat)
	assert.True(t, svcs.logger.Enabled(zapcore.InfoLevel))
	assert.False(t, svcs.logger.Enabled(zapcore.DebugLevel))
}

func TestBuildServices_LogLevelFromConfig(t *testing.T) {
	withConfig(t, "logging:\n  level: debug\n  format: console\n")

	svcs, err := buildServices()
	require.NoError(t, err)
	assert.True(t, svcs.logger.Enabled(zapcore.DebugLevel))
}

func TestBuildServices_InvalidLogLevel(t *testing.T) {
	withConfig(t, "logging:\n  level: shouting\n")

	_, err := buildServices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestBuildServices_BadProviderKind(t *testing.T) {
	withConfig(t, "provider:\n  kind: llama\n")

	_, err := buildServices()
	require.Error(t, err)
}
