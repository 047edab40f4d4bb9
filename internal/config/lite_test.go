package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.ImagingURL)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PNEUMO_DATA_DIR", "/tmp/test-pneumo")
	t.Setenv("PNEUMO_CACHE_MAX_ITEMS", "500")
	t.Setenv("PNEUMO_CACHE_TTL", "12h")
	t.Setenv("PNEUMO_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("PNEUMO_PROFILES_FILE", "/etc/pneumo/profiles.yaml")
	t.Setenv("PNEUMO_DEFAULT_PROFILE", "winter")
	t.Setenv("PNEUMO_IMAGING_URL", "http://xray:9000")
	t.Setenv("PNEUMO_IMAGING_TIMEOUT", "3s")
	t.Setenv("PNEUMO_IMAGING_RATE_LIMIT", "20")
	t.Setenv("PNEUMO_BATCH_WORKERS", "8")
	t.Setenv("PNEUMO_TRANSPORT", "http")
	t.Setenv("PNEUMO_HTTP_PORT", "9090")
	t.Setenv("PNEUMO_LOG_LEVEL", "debug")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-pneumo", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "redis://cache:6379/1", cfg.CacheConfig().RedisURL)
	assert.Equal(t, "winter", cfg.CalibrationConfig().DefaultProfile)
	assert.Equal(t, "/etc/pneumo/profiles.yaml", cfg.CalibrationConfig().ProfilesFile)
	assert.Equal(t, "http://xray:9000", cfg.ImagingConfig().BaseURL)
	assert.Equal(t, 3*time.Second, cfg.ImagingConfig().Timeout)
	assert.Equal(t, 20, cfg.ImagingConfig().RateLimit)
	assert.Equal(t, 8, cfg.BatchWorkers)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLiteConfig_IgnoresInvalidNumbers(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PNEUMO_CACHE_MAX_ITEMS", "-3")
	t.Setenv("PNEUMO_HTTP_PORT", "eighty")
	t.Setenv("PNEUMO_CACHE_TTL", "soon")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.pneumonia-risk-mcp"}

	assert.Equal(t, "/home/user/.pneumonia-risk-mcp/feedback.db", cfg.FeedbackDBPath())
	assert.Equal(t, "/home/user/.pneumonia-risk-mcp/exports", cfg.ExportDir())

	db := cfg.DatabaseConfig()
	assert.Equal(t, "sqlite", db.Driver)
	assert.Equal(t, cfg.FeedbackDBPath(), db.Path)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "pneumo")}

	require.NoError(t, cfg.EnsureDataDir())

	_, err := os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"PNEUMO_DATA_DIR",
		"PNEUMO_CACHE_MAX_ITEMS",
		"PNEUMO_CACHE_TTL",
		"PNEUMO_REDIS_URL",
		"PNEUMO_PROFILES_FILE",
		"PNEUMO_DEFAULT_PROFILE",
		"PNEUMO_IMAGING_URL",
		"PNEUMO_IMAGING_API_KEY",
		"PNEUMO_IMAGING_TIMEOUT",
		"PNEUMO_IMAGING_RATE_LIMIT",
		"PNEUMO_BATCH_WORKERS",
		"PNEUMO_TRANSPORT",
		"PNEUMO_HTTP_PORT",
		"PNEUMO_LOG_LEVEL",
		"PNEUMO_LOG_FORMAT",
	}
	for _, v := range vars {
		// t.Setenv registers restoration of the original value
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
