package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestManager_Defaults(t *testing.T) {
	m, err := NewManagerWithFile(writeConfig(t, "environment: development\n"))
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 4, cfg.Server.BatchWorkers)
	assert.Equal(t, 20.0, cfg.Server.RateLimit)
	assert.Equal(t, 40, cfg.Server.RateBurst)
	assert.Equal(t, "sqlite", m.GetDatabaseConfig().Driver)
	assert.Equal(t, 1000, m.GetCacheConfig().MaxItems)
	assert.Equal(t, 30*time.Minute, m.GetCacheConfig().DefaultTTL)
	assert.Equal(t, 10*time.Second, m.GetImagingConfig().Timeout)
	assert.Equal(t, "stdio", cfg.MCP.TransportType)
	assert.NoError(t, m.Validate())
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.Equal(t, "./data/feedback.db", m.GetDatabaseConnectionString())
}

func TestManager_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9000
database:
  driver: postgres
  host: db.internal
  database: pneumo
  username: app
  password: secret
cache:
  redis_url: redis://cache:6379/0
calibration:
  profiles_file: /etc/pneumo/profiles.yaml
  default_profile: winter
`)
	t.Setenv("PNEUMO_SERVER_PORT", "9100")
	t.Setenv("PNEUMO_LOGGING_LEVEL", "debug")

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9100, cfg.Server.Port, "environment wins over file")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "redis://cache:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, "winter", cfg.Calibration.DefaultProfile)
	assert.True(t, m.IsProduction())
	assert.NoError(t, m.Validate())
	assert.Equal(t,
		"host=db.internal port=5432 user=app password=secret dbname=pneumo sslmode=disable",
		m.GetDatabaseConnectionString())
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"negative rate limit", "server:\n  rate_limit: -1\n"},
		{"unknown driver", "database:\n  driver: oracle\n"},
		{"postgres without host", "database:\n  driver: postgres\n  host: \"\"\n"},
		{"bad log level", "logging:\n  level: verbose\n"},
		{"bad transport", "mcp:\n  transport_type: grpc\n"},
		{"zero cache", "cache:\n  max_items: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManagerWithFile(writeConfig(t, tt.body))
			require.NoError(t, err)
			assert.Error(t, m.Validate())
		})
	}
}

func TestManager_Reload(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	m, err := NewManagerWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, m.GetServerConfig().Port)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0644))
	require.NoError(t, m.Reload())
	assert.Equal(t, 9001, m.GetServerConfig().Port)
}

func TestManager_InvalidFile(t *testing.T) {
	_, err := NewManagerWithFile(writeConfig(t, "server: [unterminated\n"))
	assert.Error(t, err)
}
