// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Sync      SyncConfig
	Sheets    SheetsConfig
	Registrar RegistrarConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 120s,
	// long enough for a synchronous sync run to answer)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
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
}

// SyncConfig holds exam synchronization settings.
type SyncConfig struct {
	// SheetNames is the fallback list of spreadsheet tabs to process when
	// detection finds none (comma-separated).
	SheetNames []string `env:"SYNC_SHEET_NAMES" default:"1° Turno Ordinario,2° Turno Ordinario,Especial Abril,Extraordinario Mayo,Especial Junio"`

	// SheetConcurrency is how many sheets are processed in parallel (default: 3)
	SheetConcurrency int `env:"SYNC_SHEET_CONCURRENCY" default:"3"`

	// RunTimeout bounds one full synchronization run (default: 10m)
	RunTimeout time.Duration `env:"SYNC_RUN_TIMEOUT" default:"10m"`
}

// SheetsConfig holds Google Sheets download settings.
type SheetsConfig struct {
	// SpreadsheetID is the source spreadsheet document id (required)
	SpreadsheetID string `env:"SHEETS_SPREADSHEET_ID" required:"true"`

	// BaseURL is the sheets host; override for tests (default: Google's)
	BaseURL string `env:"SHEETS_BASE_URL" default:"https://docs.google.com"`

	// Timeout is the per-download HTTP timeout (default: 30s)
	Timeout time.Duration `env:"SHEETS_TIMEOUT" default:"30s"`
}

// RegistrarConfig holds external student records API settings.
type RegistrarConfig struct {
	// BaseURL is the registrar API root, e.g. https://records.example.edu/api/v1 (required)
	BaseURL string `env:"REGISTRAR_BASE_URL" required:"true"`

	// Timeout is the per-call HTTP timeout (default: 15s)
	Timeout time.Duration `env:"REGISTRAR_TIMEOUT" default:"15s"`

	// BatchSize is how many subject codes are queried concurrently (default: 5)
	BatchSize int `env:"REGISTRAR_BATCH_SIZE" default:"5"`

	// BatchPause is the wait between batches to avoid hammering the upstream (default: 1s)
	BatchPause time.Duration `env:"REGISTRAR_BATCH_PAUSE" default:"1s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
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
