package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sopforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := Load("")

		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.ListenAddr)
		assert.Equal(t, 50, cfg.Risk.Thresholds.Critical)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
graph:
  path: data/graph.json
  watch: true
  debounce: 1s
log:
  level: debug
  format: json
risk:
  thresholds:
    critical: 80
    high: 40
    medium: 20
`)

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "data/graph.json", cfg.Graph.Path)
		assert.True(t, cfg.Graph.Watch)
		assert.Equal(t, time.Second, cfg.Graph.Debounce)
		assert.Equal(t, "sop-components", cfg.Graph.ComponentsDir)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, 80, cfg.Risk.Thresholds.Critical)
		assert.Equal(t, 5, cfg.Risk.Weights.CustomerFacing)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "graph: [unclosed"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log:\n  level: loud\n"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Level")
	})

	t.Run("thresholds out of order", func(t *testing.T) {
		_, err := Load(writeConfig(t, "risk:\n  thresholds:\n    critical: 10\n    high: 30\n    medium: 5\n"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "medium <= high <= critical")
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvGraphPath:  "/srv/graph.json",
		EnvCORSOrigin: "https://docs.example.com",
		EnvLogLevel:   "",
		EnvAuditDB:    "/var/lib/sopforge/audit.db",
	}
	cfg := Default()

	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "/srv/graph.json", cfg.Graph.Path)
	assert.Equal(t, "https://docs.example.com", cfg.Server.CORSOrigin)
	assert.Equal(t, "info", cfg.Log.Level, "empty values are ignored")
	assert.Equal(t, "/var/lib/sopforge/audit.db", cfg.Audit.DBPath)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv(EnvListenAddr, ":9090")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
}
