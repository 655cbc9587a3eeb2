package kconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().QueueBackend, cfg.QueueBackend)
	assert.Equal(t, uint32(256), cfg.Ring.Entries)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("ICHOR_QUEUE_BACKEND", "ring")
	t.Setenv("ICHOR_LOG_LEVEL", "debug")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ring", cfg.QueueBackend)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_FileOverridesDefaultsButNotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ichor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue_backend: ring\nlog_level: warn\n"), 0o644))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("ICHOR_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ring", cfg.QueueBackend, "file layer should override the default")
	assert.Equal(t, "error", cfg.LogLevel, "env layer should override the file")
}
