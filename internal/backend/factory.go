package backend

import (
	"context"
	"errors"
	"fmt"

	"seppe/internal/amqp"
	"seppe/internal/history"
	"seppe/internal/log"
	gsheet "seppe/internal/sheets/google"
	"seppe/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend. Optional parts that fail
// to start (AMQP) are logged and left disabled.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var cleanups []CleanupFunc
	result := &BackendResult{}

	switch config.Type {
	case SQLiteBackend:
		rec, err := history.NewSQLiteRecorder(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite history: %w", err)
		}
		result.History = rec
		result.Ready = rec.Ping
		cleanups = append(cleanups, rec.Close)
		f.logger.Info("Initialized SQLite history backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		result.History = history.NewMemoryRecorder(config.HistoryCapacity)
		f.logger.Info("Initialized memory history backend", "capacity", config.HistoryCapacity)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		} else {
			result.Publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	switch {
	case config.GoogleSpreadsheetID != "":
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleCredentialsJSON,
			CredentialsFile: config.GoogleCredentialsFile,
		}, f.logger)
		if err != nil {
			_ = runCleanups(cleanups)
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		result.Sheets = cli
		f.logger.Info("Initialized Google Sheets source", "spreadsheet_id", config.GoogleSpreadsheetID)
	case config.SheetsFixture != "":
		src, err := memory.NewFromFile(config.SheetsFixture)
		if err != nil {
			_ = runCleanups(cleanups)
			return nil, fmt.Errorf("failed to load sheets fixture: %w", err)
		}
		result.Sheets = src
		f.logger.Info("Initialized fixture sheets source", log.FieldSource, config.SheetsFixture)
	}

	result.Cleanup = func() error { return runCleanups(cleanups) }
	return result, nil
}

// runCleanups releases resources in reverse order of acquisition.
func runCleanups(cleanups []CleanupFunc) error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
