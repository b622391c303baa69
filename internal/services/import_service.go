package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"seppe/internal/amqp"
	"seppe/internal/history"
	"seppe/internal/importer"
	"seppe/internal/log"
	"seppe/internal/metrics"
	"seppe/internal/sheets"
	"seppe/internal/store"
)

// Source labels recorded in import history.
const (
	SourceUpload = "upload"
	SourceSheets = "google-sheets"
)

const publishTimeout = 20 * time.Second

var (
	ErrSheetsNotConfigured = errors.New("sheets source not configured")
	ErrSourceUnavailable   = errors.New("sheets source unavailable")
)

// Publisher announces a newly installed dataset.
type Publisher interface {
	PublishDatasetImported(ctx context.Context, msg *amqp.DatasetImportedMessage) error
}

// Outcome describes a successful import.
type Outcome struct {
	ImportID string `json:"import_id"`
	Records  int    `json:"records"`
	Skipped  int    `json:"skipped"`
	Version  uint64 `json:"version"`
	Sheet    string `json:"sheet,omitempty"`
}

// ImportConfig wires the collaborators of an ImportService. Only Store is
// required.
type ImportConfig struct {
	Normalizer *importer.Normalizer
	Store      *store.Store
	History    history.Recorder
	Publisher  Publisher
	Sheets     sheets.GridSource
	Metrics    *metrics.Metrics
	Logger     *log.Logger

	// OnReplace runs after every dataset swap, e.g. to drop memoized views.
	OnReplace func(store.Snapshot)
}

// ImportService runs the import pipeline: normalize, swap the active
// dataset, then record history and notify. Imports are serialized.
type ImportService struct {
	mu         sync.Mutex
	normalizer *importer.Normalizer
	store      *store.Store
	history    history.Recorder
	publisher  Publisher
	sheets     sheets.GridSource
	metrics    *metrics.Metrics
	onReplace  func(store.Snapshot)
	logger     *log.Logger
	structured *log.StructuredLogger
	newID      func() string
	now        func() time.Time
}

func NewImportService(cfg ImportConfig) *ImportService {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentImport)
	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = importer.NewNormalizer(nil, logger)
	}
	return &ImportService{
		normalizer: normalizer,
		store:      cfg.Store,
		history:    cfg.History,
		publisher:  cfg.Publisher,
		sheets:     cfg.Sheets,
		metrics:    cfg.Metrics,
		onReplace:  cfg.OnReplace,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// SheetsEnabled reports whether ImportSheet has a source to read from.
func (s *ImportService) SheetsEnabled() bool {
	return s.sheets != nil
}

// ImportFile imports an uploaded spreadsheet. name labels the import in
// history; an empty name is recorded as "upload". On error the active
// dataset is left untouched.
func (s *ImportService) ImportFile(ctx context.Context, name string, data []byte) (Outcome, error) {
	if name == "" {
		name = SourceUpload
	}
	return s.run(ctx, name, func(ctx context.Context) (importer.Result, error) {
		return s.normalizer.Normalize(ctx, data)
	})
}

// ImportSheet imports the first sheet of the configured remote spreadsheet.
func (s *ImportService) ImportSheet(ctx context.Context) (Outcome, error) {
	if s.sheets == nil {
		return Outcome{}, ErrSheetsNotConfigured
	}
	return s.run(ctx, SourceSheets, func(ctx context.Context) (importer.Result, error) {
		grid, err := s.sheets.FetchGrid(ctx)
		if err != nil {
			return importer.Result{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return s.normalizer.NormalizeGrid(ctx, grid)
	})
}

func (s *ImportService) run(ctx context.Context, source string, load func(context.Context) (importer.Result, error)) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	start := s.now()
	entry := history.Entry{ID: id, Source: source, StartedAt: start.UTC()}

	// Once the bytes are in hand the import runs to completion even if the
	// caller goes away.
	res, err := load(ctx)
	if err != nil {
		entry.Outcome = history.OutcomeFailed
		entry.Error = err.Error()
		entry.FinishedAt = s.now().UTC()
		s.record(ctx, entry, nil)
		s.metrics.ObserveImport(metrics.OutcomeFailed, 0, entry.FinishedAt.Sub(start))
		s.structured.LogError(ctx, "Dataset import failed", err, log.ComponentImport, log.OpImport,
			log.NewFields().WithImport(id, source, 0, 0))
		return Outcome{}, fmt.Errorf("import %s: %w", source, err)
	}

	snap := s.store.Replace(res.Records, source)
	if s.onReplace != nil {
		s.onReplace(snap)
	}

	entry.Outcome = history.OutcomeSuccess
	entry.Sheet = res.Sheet
	entry.Records = res.Count()
	entry.Skipped = len(res.Skipped)
	entry.Version = snap.Version
	entry.FinishedAt = s.now().UTC()
	s.record(ctx, entry, toSkips(res.Skipped))

	s.metrics.ObserveImport(metrics.OutcomeSuccess, entry.Skipped, entry.FinishedAt.Sub(start))
	s.metrics.SetDataset(snap.Len(), snap.Version)
	s.structured.LogImport(ctx, id, source, entry.Records, entry.Skipped)

	s.publish(ctx, amqp.NewDatasetImportedMessage(id, snap.Version, entry.Records, entry.Skipped, source))

	return Outcome{
		ImportID: id,
		Records:  entry.Records,
		Skipped:  entry.Skipped,
		Version:  snap.Version,
		Sheet:    res.Sheet,
	}, nil
}

// record failures never fail the import itself.
func (s *ImportService) record(ctx context.Context, e history.Entry, skips []history.Skip) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(context.WithoutCancel(ctx), e, skips); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record import history",
			log.FieldImportID, e.ID,
			log.FieldError, err.Error())
	}
}

func (s *ImportService) publish(ctx context.Context, msg *amqp.DatasetImportedMessage) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping dataset event")
		return
	}

	// The dataset is already installed; a client disconnect must not drop the event.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishDatasetImported(pubCtx, msg); err != nil {
		s.metrics.PublishFailed()
		s.logger.ErrorContext(ctx, "Failed to publish dataset event",
			log.FieldImportID, msg.ImportID,
			log.FieldVersion, msg.Version,
			log.FieldError, err.Error())
	}
}

func toSkips(rows []importer.SkippedRow) []history.Skip {
	if len(rows) == 0 {
		return nil
	}
	skips := make([]history.Skip, len(rows))
	for i, r := range rows {
		skips[i] = history.Skip{Row: r.Row, Missing: r.Missing}
	}
	return skips
}
