package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PHASELINE_CONFIG_PATH",
		"PHASELINE_SERVER_HOST",
		"PHASELINE_SERVER_PORT",
		"PHASELINE_DB_PATH",
		"PHASELINE_LOG_LEVEL",
		"PHASELINE_LOG_PATH",
		"PHASELINE_TRANSPORT_MODE",
		"PHASELINE_AUTH_ENABLED",
		"PHASELINE_GATING_MODE",
		"PHASELINE_TEMPLATES_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "phaseline.db", cfg.DB.Path)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, "strict", cfg.Gating.Mode)
	require.False(t, cfg.Auth.Enabled)
	require.Equal(t, 1024, cfg.Stats.CacheSize)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "phaseline.yaml")
	content := `
server:
  port: 9090
gating:
  mode: advisory
events:
  buffer: 16
  webhooks:
    - url: http://hooks.local/phase
      events: [phase.completed]
templates:
  dir: ./templates
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PHASELINE_CONFIG_PATH", path)
	t.Setenv("PHASELINE_SERVER_PORT", "7070")
	t.Setenv("PHASELINE_AUTH_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "advisory", cfg.Gating.Mode)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, 16, cfg.Events.Buffer)
	require.Len(t, cfg.Events.Webhooks, 1)
	require.Equal(t, []string{"phase.completed"}, cfg.Events.Webhooks[0].Events)
	require.Equal(t, "./templates", cfg.Templates.Dir)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "PHASELINE_SERVER_PORT", "abc"},
		{"auth", "PHASELINE_AUTH_ENABLED", "maybe"},
		{"transport", "PHASELINE_TRANSPORT_MODE", "carrier-pigeon"},
		{"gating", "PHASELINE_GATING_MODE", "loose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
