package backend

import (
	"context"
	"time"

	"legalintel/internal/services"
	"legalintel/internal/sources"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Pinger reports whether the backend can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult is a ready-to-use data backend.
type BackendResult struct {
	Type   BackendType
	Reader sources.Reader
	// Writer is nil for read-only backends (sheets, remote).
	Writer sources.EventWriter
	// Publisher is set when event ingest goes through AMQP.
	Publisher services.Publisher
	// Pinger is nil when the backend has nothing to check.
	Pinger  Pinger
	Cleanup CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds what the factory needs to build any backend.
type Config struct {
	Type BackendType

	// Memory, and seed data for SQLite
	FixtureFile string

	// SQLite
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleTimelineSheet      string
	GoogleFinancialsSheet    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Remote
	RemoteBaseURL string
	SourceTimeout time.Duration
}

// BackendType names a data backend.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	RemoteBackend BackendType = "remote"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SheetsBackend, RemoteBackend:
		return true
	default:
		return false
	}
}
