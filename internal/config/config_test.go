package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServer_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadServer(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServer(), cfg)
}

func TestLoadServer_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	data := []byte("port: 9000\nlog_level: debug\nsend_queue_size: 64\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadServer(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 64, cfg.SendQueueSize)

	// Keys the file does not mention keep their defaults.
	def := DefaultServer()
	assert.Equal(t, def.BindAddress, cfg.BindAddress)
	assert.Equal(t, def.PackDir, cfg.PackDir)
	assert.Equal(t, def.PingInterval, cfg.PingInterval)
}

func TestLoadServer_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: ["), 0o644))

	_, err := LoadServer(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
