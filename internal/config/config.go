package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"legalintel/internal/log"
)

// Data backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendRemote = "remote"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendSheets, BackendRemote}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Backend selection
	DataBackend   string
	FixtureFile   string
	SourceTimeout time.Duration

	// Snapshot cache
	CacheTTL  time.Duration
	CacheSize int

	// Database
	SQLiteDBPath string

	// AMQP; an empty URL makes the API write events directly
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleTimelineSheet      string
	GoogleFinancialsSheet    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Upstream REST service
	RemoteBaseURL string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		DataBackend:   strings.ToLower(getEnv("DATA_BACKEND", BackendMemory)),
		FixtureFile:   getEnv("FIXTURE_FILE", ""),
		SourceTimeout: getEnvDuration("SOURCE_TIMEOUT", 5*time.Second),

		CacheTTL:  getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheSize: getEnvInt("CACHE_SIZE", 64),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/legalintel.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "legal_events"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "legal_events_ingest"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleTimelineSheet:      getEnv("GOOGLE_TIMELINE_SHEET", "Timeline"),
		GoogleFinancialsSheet:    getEnv("GOOGLE_FINANCIALS_SHEET", "Financials"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		RemoteBaseURL: getEnv("REMOTE_BASE_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// Validate checks the server configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.SourceTimeout < 100*time.Millisecond || c.SourceTimeout > time.Minute {
		errs = append(errs, fmt.Sprintf("invalid source timeout %v: must be between 100ms and 1m", c.SourceTimeout))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.CacheSize < 1 || c.CacheSize > 10000 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be between 1 and 10000", c.CacheSize))
	}

	if c.FixtureFile != "" {
		if _, err := os.Stat(c.FixtureFile); err != nil {
			errs = append(errs, fmt.Sprintf("fixture file not readable: %s", c.FixtureFile))
		}
	}

	switch c.DataBackend {
	case BackendSQLite:
		errs = append(errs, c.validateSQLite()...)
	case BackendSheets:
		errs = append(errs, c.validateSheets()...)
	case BackendRemote:
		if c.RemoteBaseURL == "" {
			errs = append(errs, "REMOTE_BASE_URL is required when using remote backend")
		} else if u, err := url.Parse(c.RemoteBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid remote base URL '%s': must be an absolute http(s) URL", c.RemoteBaseURL))
		}
	}

	errs = append(errs, c.validateAMQP()...)

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	return combine(errs)
}

// ValidateWorker checks what the ingest worker needs: SQLite and AMQP.
func (c *Config) ValidateWorker() error {
	errs := c.validateSQLite()
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the ingest worker")
	}
	errs = append(errs, c.validateAMQP()...)
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	return combine(errs)
}

// UsesAMQP reports whether event ingest goes through the broker.
func (c *Config) UsesAMQP() bool {
	return c.AMQPURL != "" && c.DataBackend == BackendSQLite
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errs []string
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleTimelineSheet == "" || c.GoogleFinancialsSheet == "" {
		errs = append(errs, "Google timeline and financials sheet names cannot be empty")
	}
	hasJSON := c.GoogleServiceAccountJSON != ""
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasJSON && !hasFile {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errs
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errs []string
	if u, err := url.Parse(c.AMQPURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
	}
	if c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errs
}

func combine(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
