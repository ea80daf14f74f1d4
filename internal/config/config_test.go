package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultAPIKey, cfg.Auth.APIKey)
	assert.Equal(t, "file", cfg.Store.Type)
	assert.Equal(t, "data/secure_calls_log.json", cfg.Store.Path)
	assert.Equal(t, 20, cfg.Store.RecentLimit)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SECRET_API_KEY", "from-env")
	t.Setenv("PORT", "6000")
	t.Setenv("STORE_TYPE", "memory")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.APIKey)
	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Type)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
  read_timeout: 3s
auth:
  api_key: file-key
store:
  type: sqlite
  path: /tmp/audit.db
  recent_limit: 5
transform:
  scripts_dir: /etc/securecall/scripts
  scripts:
    frontend: redact.js
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "file-key", cfg.Auth.APIKey)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, 5, cfg.Store.RecentLimit)
	assert.Equal(t, "redact.js", cfg.Transform.Scripts["frontend"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: cassandra\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
