// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Sheet    SheetConfig
	LLM      LLMConfig
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

	// WriteTimeout covers a whole generation batch, so it is generous (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`

	// RateLimit is the number of POST requests per minute per client; 0 disables (default: 30)
	RateLimit int `env:"SERVER_RATE_LIMIT" default:"30"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. When both URL and SQLitePath
	// are empty, fiches are kept in memory for the lifetime of the process.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath stores fiches in a local SQLite file when URL is empty
	SQLitePath string `env:"SQLITE_PATH"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// SheetConfig selects and locates the requisition spreadsheet.
type SheetConfig struct {
	// Kind is the source type: google, csv or xlsx (default: google)
	Kind string `env:"SHEET_SOURCE" default:"google"`

	// SpreadsheetID is the Google spreadsheet ID (google only)
	SpreadsheetID string `env:"SHEET_SPREADSHEET_ID"`

	// Range is the A1 range to read (google only)
	Range string `env:"SHEET_RANGE" default:"Besoins ASI!A1:Z1000"`

	// CredentialsJSON is the service account key, inline (google only)
	CredentialsJSON string `env:"GOOGLE_CREDENTIALS_JSON"`

	// CredentialsFile is a path to the service account key (google only)
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	// Path is the local file to read (csv and xlsx)
	Path string `env:"SHEET_PATH"`

	// SheetName is the worksheet to read; empty means the first one (xlsx only)
	SheetName string `env:"SHEET_NAME"`
}

// LLMConfig holds chat-completion settings.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required)
	APIKey string `env:"OPENAI_API_KEY" required:"true"`

	// Model is the chat model (default: gpt-3.5-turbo)
	Model string `env:"LLM_MODEL" default:"gpt-3.5-turbo"`

	// MaxTokens caps each completion (default: 500)
	MaxTokens int `env:"LLM_MAX_TOKENS" default:"500"`

	// BaseURL overrides the API endpoint, for proxies and compatible servers
	BaseURL string `env:"LLM_BASE_URL"`

	// Timeout bounds a single completion call (default: 60s)
	Timeout time.Duration `env:"LLM_TIMEOUT" default:"60s"`

	// Concurrency is how many rows are generated in parallel (default: 4)
	Concurrency int `env:"LLM_CONCURRENCY" default:"4"`

	// MaxBatches is how many generation batches may run at once (default: 1)
	MaxBatches int `env:"LLM_MAX_BATCHES" default:"1"`

	// BatchWait is how long a batch waits for a free slot (default: 10s)
	BatchWait time.Duration `env:"LLM_BATCH_WAIT" default:"10s"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with the X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Credentials returns the service account key, preferring the inline value.
func (c SheetConfig) Credentials() ([]byte, error) {
	if c.CredentialsJSON != "" {
		return []byte(c.CredentialsJSON), nil
	}
	if c.CredentialsFile == "" {
		return nil, fmt.Errorf("google credentials not configured: set GOOGLE_CREDENTIALS_JSON or GOOGLE_APPLICATION_CREDENTIALS")
	}
	b, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	return b, nil
}
