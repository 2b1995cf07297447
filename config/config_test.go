package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfigDefaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8082"
postgres:
  dsn: "postgres://localhost/pageturn"
redis:
  url: "redis://localhost:6379/0"
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "session-service", cfg.Logging.Service)
	assert.Equal(t, "dev", cfg.Logging.Env)
	assert.Equal(t, "./migrations", cfg.Postgres.MigrationsPath)
	assert.Equal(t, 60*time.Second, cfg.ViewTTL())
	assert.Equal(t, 50*time.Millisecond, cfg.RetryBackoff())
}

func TestLoadConfigOverrides(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8082"
postgres:
  dsn: "postgres://localhost/pageturn"
redis:
  url: "redis://localhost:6379/0"
cache:
  viewTTL: "5m"
admission:
  retryAttempts: 5
  retryBackoff: "100ms"
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.ViewTTL())
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBackoff())
	assert.Equal(t, 5, cfg.Admission.RetryAttempts)
}

func TestLoadConfigRequiredFields(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8082"
redis:
  url: "redis://localhost:6379/0"
`)
	_, err := LoadConfig()
	assert.Error(t, err)
}
