package backend

import (
	"context"

	"seppe/internal/history"
	"seppe/internal/services"
	"seppe/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult holds the infrastructure the services run on. Publisher
// and Sheets are nil when not configured.
type BackendResult struct {
	History   history.Recorder
	Publisher services.Publisher
	Sheets    sheets.GridSource
	Ready     ReadyFunc
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// History backend type
	Type BackendType

	// Memory history
	HistoryCapacity int

	// SQLite history
	SQLiteDBPath string

	// AMQP events, enabled when AMQPURL is set
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets source, enabled when GoogleSpreadsheetID is set
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// SheetsFixture is a local spreadsheet served as the sheets source
	// when no Google spreadsheet is configured.
	SheetsFixture string
}

// BackendType selects where import history is kept
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
