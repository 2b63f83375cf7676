package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(newFlagSet(), nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 1024, cfg.ScriptCacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Log.MaxSize)
}

func TestLoadConfigFilePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redisless.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: 0.0.0.0
port: 7000
idle_timeout: 30s
max_clients: 50
log:
  level: debug
  file: /tmp/redisless.log
`), 0o600))

	cfg, err := LoadConfig(newFlagSet(), []string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 50, cfg.MaxClients)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/redisless.log", cfg.Log.File)

	t.Setenv("REDISLESS_PORT", "7001")
	cfg, err = LoadConfig(newFlagSet(), []string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Port)

	cfg, err = LoadConfig(newFlagSet(), []string{"--config", path, "--port", "7002"})
	require.NoError(t, err)
	assert.Equal(t, 7002, cfg.Port)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := LoadConfig(newFlagSet(), []string{"--port", "70000"})
	assert.Error(t, err)

	_, err = LoadConfig(newFlagSet(), []string{"--config", "/does/not/exist.yaml"})
	assert.Error(t, err)

	_, err = LoadConfig(newFlagSet(), []string{"--no-such-flag"})
	assert.Error(t, err)
}
