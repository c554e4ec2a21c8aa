package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"tnctl/config"
	"tnctl/validators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tnctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestDefaults(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "midclt", cfg.Middleware.Method)
	assert.Equal(t, 1, cfg.Middleware.JobPollInterval)
	assert.Equal(t, "changelogs/changelog.yaml", cfg.Changelog.Path)
	assert.Equal(t, ":8081", cfg.Server.Listen)
	assert.Equal(t, "info", cfg.Meta.LogLevel)
	assert.False(t, cfg.Meta.LogJSON)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
middleware:
  method: client
server:
  listen: ":9000"
meta:
  log_level: debug
`)

	cfg, err := config.Load(path, validators.New())
	require.NoError(t, err)

	assert.Equal(t, "client", cfg.Middleware.Method)
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.Meta.LogLevel)
	// untouched keys keep their defaults
	assert.Equal(t, 30, cfg.Server.Timeout)

	t.Setenv("middleware_method", "websocket")
	t.Setenv("TRUENAS_URI", "wss://nas.example.com")
	t.Setenv("TRUENAS_API_KEY", "1-abc")
	t.Setenv("TNCTL_LISTEN", "127.0.0.1:8082")

	cfg, err = config.Load(path, validators.New())
	require.NoError(t, err)

	assert.Equal(t, "websocket", cfg.Middleware.Method)
	assert.Equal(t, "wss://nas.example.com", cfg.Middleware.URI)
	assert.Equal(t, "1-abc", cfg.Middleware.APIKey)
	assert.Equal(t, "127.0.0.1:8082", cfg.Server.Listen)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	_, err := config.Load(writeConfig(t, "middleware:\n  method: telnet\n"), validators.New())
	assert.ErrorContains(t, err, "configError")

	_, err = config.Load(writeConfig(t, "middleware:\n  method: websocket\n"), validators.New())
	assert.ErrorContains(t, err, "TRUENAS_URI")

	_, err = config.Load(writeConfig(t, "meta: [1, 2]\n"), validators.New())
	assert.ErrorContains(t, err, "failed to parse")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"), validators.New())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenConfigRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, config.GenConfig(&buf))

	out := buf.String()
	assert.Contains(t, out, "middleware:\n  method: midclt # How to reach middlewared")
	assert.Contains(t, out, "[$TRUENAS_API_KEY] (optional)")

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &cfg))
	assert.Equal(t, *config.Default(), cfg)
}
