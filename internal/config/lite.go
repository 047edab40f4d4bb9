// Package config provides configuration management for the pneumonia risk
// servers. This file contains the lightweight configuration for standalone
// operation of the MCP server.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Cache settings
	CacheMaxItems int           // Maximum posterior results kept in memory
	CacheTTL      time.Duration // Posterior cache TTL
	RedisURL      string        // Optional: shared Redis tier

	// Calibration
	ProfilesFile   string // Optional: YAML calibration profiles
	DefaultProfile string // Profile used when a request names none

	// Imaging classifier
	ImagingURL       string        // Optional: remote classifier base URL
	ImagingAPIKey    string        // Optional: bearer token for the classifier
	ImagingTimeout   time.Duration // Per-request timeout
	ImagingRateLimit int           // Requests per second

	// Batch evaluation
	BatchWorkers int

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".pneumonia-risk-mcp")

	return &LiteConfig{
		DataDir:          dataDir,
		CacheMaxItems:    1000,
		CacheTTL:         30 * time.Minute,
		ImagingTimeout:   10 * time.Second,
		ImagingRateLimit: 5,
		BatchWorkers:     4,
		Transport:        "stdio",
		HTTPPort:         8080,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("PNEUMO_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Cache settings
	if v := os.Getenv("PNEUMO_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("PNEUMO_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}
	cfg.RedisURL = os.Getenv("PNEUMO_REDIS_URL")

	// Calibration
	cfg.ProfilesFile = os.Getenv("PNEUMO_PROFILES_FILE")
	cfg.DefaultProfile = os.Getenv("PNEUMO_DEFAULT_PROFILE")

	// Imaging
	cfg.ImagingURL = os.Getenv("PNEUMO_IMAGING_URL")
	cfg.ImagingAPIKey = os.Getenv("PNEUMO_IMAGING_API_KEY")
	if v := os.Getenv("PNEUMO_IMAGING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ImagingTimeout = d
		}
	}
	if v := os.Getenv("PNEUMO_IMAGING_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ImagingRateLimit = n
		}
	}

	if v := os.Getenv("PNEUMO_BATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchWorkers = n
		}
	}

	// Transport
	if v := os.Getenv("PNEUMO_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("PNEUMO_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	// Logging
	if v := os.Getenv("PNEUMO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PNEUMO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// FeedbackDBPath returns the path to the feedback SQLite database.
func (c *LiteConfig) FeedbackDBPath() string {
	return filepath.Join(c.DataDir, "feedback.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// DatabaseConfig returns the SQLite feedback store settings.
func (c *LiteConfig) DatabaseConfig() domain.DatabaseConfig {
	return domain.DatabaseConfig{Driver: "sqlite", Path: c.FeedbackDBPath()}
}

// CacheConfig returns the posterior cache settings.
func (c *LiteConfig) CacheConfig() domain.CacheConfig {
	return domain.CacheConfig{
		MaxItems:   c.CacheMaxItems,
		DefaultTTL: c.CacheTTL,
		RedisURL:   c.RedisURL,
	}
}

// ImagingConfig returns the remote classifier settings.
func (c *LiteConfig) ImagingConfig() domain.ImagingConfig {
	return domain.ImagingConfig{
		BaseURL:   c.ImagingURL,
		Timeout:   c.ImagingTimeout,
		RateLimit: c.ImagingRateLimit,
		APIKey:    c.ImagingAPIKey,
	}
}

// CalibrationConfig returns the calibration profile settings.
func (c *LiteConfig) CalibrationConfig() domain.CalibrationConfig {
	return domain.CalibrationConfig{
		ProfilesFile:   c.ProfilesFile,
		DefaultProfile: c.DefaultProfile,
	}
}
