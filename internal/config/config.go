// Package config provides centralized configuration management for the editor server.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Reindex  ReindexConfig
	IO       IOConfig
	Snapshot SnapshotConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// Root restricts open/save paths to this directory when set
	Root string `env:"SERVER_FILE_ROOT"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 600)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"600"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey rejects /api requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ReindexConfig holds background index rebuild settings.
type ReindexConfig struct {
	// Workers is the number of rebuild goroutines (default: 2)
	Workers int `env:"REINDEX_WORKERS" default:"2"`

	// PollInterval is how often WaitIndexed checks the queue (default: 10ms)
	PollInterval time.Duration `env:"REINDEX_POLL_INTERVAL" default:"10ms"`
}

// IOConfig bounds document load and save.
type IOConfig struct {
	// MaxConcurrent is the number of loads/saves allowed at once (default: 4)
	MaxConcurrent int `env:"IO_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an I/O slot (default: 30s)
	MaxWaitTime time.Duration `env:"IO_MAX_WAIT_TIME" default:"30s"`

	// MaxFileSize is the largest file Open accepts, as bytes or with a KB/MB/GB suffix (default: 100MB)
	MaxFileSize int64 `env:"IO_MAX_FILE_SIZE" default:"100MB" unit:"bytes"`
}

// SnapshotConfig selects where autosave snapshots go.
type SnapshotConfig struct {
	// Driver is none, bolt or postgres (default: none)
	Driver string `env:"SNAPSHOT_DRIVER" default:"none"`

	// BoltPath is the bbolt file used by the bolt driver (default: gridedit.db)
	BoltPath string `env:"SNAPSHOT_BOLT_PATH" default:"gridedit.db"`

	// DatabaseURL is the PostgreSQL connection string for the postgres driver
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Interval is how often a changed document is snapshotted; 0 disables autosave (default: 0s)
	Interval time.Duration `env:"SNAPSHOT_INTERVAL" default:"0s"`

	// Key names the snapshot; empty uses the document session id
	Key string `env:"SNAPSHOT_KEY"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled mounts the metrics handler (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is where metrics are served (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Autosave reports whether snapshots should be taken periodically.
func (c *SnapshotConfig) Autosave() bool {
	return c.Driver != "none" && c.Interval > 0
}
