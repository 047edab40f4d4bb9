package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Imaging     ImagingConfig     `mapstructure:"imaging"`
	MCP         MCPConfig         `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	BatchWorkers int           `mapstructure:"batch_workers"`
	// RateLimit is requests per second per client on /api/v1; 0 disables it.
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

// DatabaseConfig represents the feedback database configuration. Driver is
// "sqlite" (Path is used) or "postgres" (the connection fields are used).
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig represents posterior cache configuration. An empty RedisURL
// keeps the cache in-process only.
type CacheConfig struct {
	MaxItems    int           `mapstructure:"max_items"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	RedisURL    string        `mapstructure:"redis_url"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// CalibrationConfig points at an optional calibration profile file and
// names the profile used when a request does not pick one.
type CalibrationConfig struct {
	ProfilesFile   string `mapstructure:"profiles_file"`
	DefaultProfile string `mapstructure:"default_profile"`
}

// ImagingConfig represents the remote imaging classifier configuration. An
// empty BaseURL disables remote classification.
type ImagingConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
	APIKey    string        `mapstructure:"api_key"`
}

// MCPConfig represents MCP transport configuration
type MCPConfig struct {
	TransportType string `mapstructure:"transport_type"`
	HTTPPort      int    `mapstructure:"http_port"`
	ExportDir     string `mapstructure:"export_dir"`
}
