// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Jobs     JobsConfig
	Storage  StorageConfig
	Mail     MailConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// SiteURL is the public origin used in links sent by email when a
	// request does not carry one (e.g. jobs created from the CLI).
	SiteURL string `env:"SITE_URL" default:"http://localhost:8080"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies embedded migrations at startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// JobsConfig holds import/export job settings.
type JobsConfig struct {
	// ModelsFile is the YAML file describing importable models (default: models.yaml)
	ModelsFile string `env:"MODELS_FILE" default:"models.yaml"`

	// MaxFileSize is the maximum allowed upload size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// Workers is the number of queue workers running pipelines (default: 2)
	Workers int `env:"JOB_WORKERS" default:"2"`

	// QueueSize is the number of tasks that may wait for a worker (default: 256)
	QueueSize int `env:"JOB_QUEUE_SIZE" default:"256"`

	// StatusCacheSize is the number of job statuses kept in memory (default: 4096)
	StatusCacheSize int `env:"STATUS_CACHE_SIZE" default:"4096"`

	// ListLimit is the number of jobs returned by list endpoints (default: 50)
	ListLimit int `env:"JOB_LIST_LIMIT" default:"50"`
}

// StorageConfig selects and configures file storage.
type StorageConfig struct {
	// Backend is "local" or "s3" (default: local)
	Backend string `env:"STORAGE_BACKEND" default:"local"`

	// LocalDir is the root directory of the local backend (default: media)
	LocalDir string `env:"STORAGE_LOCAL_DIR" default:"media"`

	// BaseURL is the URL prefix local files are served under (default: /media)
	BaseURL string `env:"STORAGE_BASE_URL" default:"/media"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envAlt:"AWS_REGION"`
	S3Prefix    string `env:"S3_PREFIX"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`
	S3PathStyle bool   `env:"S3_PATH_STYLE" default:"false"`
}

// MailConfig holds notification settings. Without SMTPHost, messages are
// written to the log.
type MailConfig struct {
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" default:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	// ServerEmail is the sender address of notifications
	ServerEmail string `env:"SERVER_EMAIL" default:"root@localhost"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of "operator:key" pairs. The
	// operator name is recorded as the author of jobs created with the key.
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Operators parses APIKeys into a map from key to operator name.
func (c *SecurityConfig) Operators() (map[string]string, error) {
	ops := make(map[string]string, len(c.APIKeys))
	for _, entry := range c.APIKeys {
		name, key, ok := strings.Cut(entry, ":")
		if !ok || name == "" || key == "" {
			return nil, fmt.Errorf("API_KEYS entry %q must be operator:key", entry)
		}
		ops[key] = name
	}
	return ops, nil
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
