package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Storage.Dir)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 100, cfg.Replay.BatchSize)
	assert.Equal(t, 3, cfg.Replay.MaxRetries)
	assert.Equal(t, time.Second, cfg.Replay.InitialBackoff)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
remote:
  url: https://mesh.example.com
  timeout: 2s
replay:
  batch_size: 25
log:
  level: debug
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://mesh.example.com", cfg.Remote.URL)
	assert.Equal(t, 2*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 25, cfg.Replay.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Replay.MaxRetries)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CREWMESH_REMOTE_URL", "https://env.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Remote.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnsureNodeID_StableAcrossCalls(t *testing.T) {
	dir := t.TempDir()

	first, err := EnsureNodeID(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := EnsureNodeID(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := EnsureNodeID(t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
