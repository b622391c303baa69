package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

// skipBatchSize bounds the rows per multi-row insert, well under SQLite's
// host parameter limit.
const skipBatchSize = 500

type importRow struct {
	ID         string `db:"id"`
	Source     string `db:"source"`
	Sheet      string `db:"sheet"`
	Outcome    string `db:"outcome"`
	Records    int64  `db:"records"`
	Skipped    int64  `db:"skipped"`
	Version    int64  `db:"version"`
	Error      string `db:"error"`
	StartedAt  int64  `db:"started_at"`
	FinishedAt int64  `db:"finished_at"`
}

type skipRow struct {
	ImportID string `db:"import_id"`
	Row      int64  `db:"row_num"`
	Missing  string `db:"missing"`
}

// SQLiteRecorder persists import history in a SQLite file.
type SQLiteRecorder struct {
	db *sqlx.DB
}

var _ Recorder = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRecorder{db: db}, nil
}

func (r *SQLiteRecorder) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRecorder) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRecorder) Record(ctx context.Context, e Entry, skips []Skip) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertImport = `INSERT INTO imports (
		id, source, sheet, outcome, records, skipped, version, error, started_at, finished_at
	) VALUES (
		:id, :source, :sheet, :outcome, :records, :skipped, :version, :error, :started_at, :finished_at
	)`
	if _, err := tx.NamedExecContext(ctx, insertImport, toImportRow(e)); err != nil {
		return fmt.Errorf("insert import %s: %w", e.ID, err)
	}

	const insertSkip = `INSERT INTO import_skips (import_id, row_num, missing)
		VALUES (:import_id, :row_num, :missing)`
	rows := make([]skipRow, 0, len(skips))
	for _, s := range skips {
		rows = append(rows, skipRow{ImportID: e.ID, Row: int64(s.Row), Missing: strings.Join(s.Missing, ",")})
	}
	for start := 0; start < len(rows); start += skipBatchSize {
		end := min(start+skipBatchSize, len(rows))
		if _, err := tx.NamedExecContext(ctx, insertSkip, rows[start:end]); err != nil {
			return fmt.Errorf("insert skips for %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import %s: %w", e.ID, err)
	}
	return nil
}

func (r *SQLiteRecorder) List(ctx context.Context, limit int) ([]Entry, error) {
	var rows []importRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, source, sheet, outcome, records, skipped, version, error, started_at, finished_at
		FROM imports ORDER BY started_at DESC, rowid DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntry())
	}
	return out, nil
}

func (r *SQLiteRecorder) Skips(ctx context.Context, importID string) ([]Skip, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT id FROM imports WHERE id = ?`, importID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import %s: %w", importID, err)
	}

	var rows []skipRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT import_id, row_num, missing FROM import_skips
		WHERE import_id = ? ORDER BY row_num`, importID)
	if err != nil {
		return nil, fmt.Errorf("list skips for %s: %w", importID, err)
	}
	out := make([]Skip, 0, len(rows))
	for _, row := range rows {
		var missing []string
		if row.Missing != "" {
			missing = strings.Split(row.Missing, ",")
		}
		out = append(out, Skip{Row: int(row.Row), Missing: missing})
	}
	return out, nil
}

func toImportRow(e Entry) importRow {
	return importRow{
		ID:         e.ID,
		Source:     e.Source,
		Sheet:      e.Sheet,
		Outcome:    string(e.Outcome),
		Records:    int64(e.Records),
		Skipped:    int64(e.Skipped),
		Version:    int64(e.Version),
		Error:      e.Error,
		StartedAt:  e.StartedAt.UnixMilli(),
		FinishedAt: e.FinishedAt.UnixMilli(),
	}
}

func (row importRow) toEntry() Entry {
	return Entry{
		ID:         row.ID,
		Source:     row.Source,
		Sheet:      row.Sheet,
		Outcome:    Outcome(row.Outcome),
		Records:    int(row.Records),
		Skipped:    int(row.Skipped),
		Version:    uint64(row.Version),
		Error:      row.Error,
		StartedAt:  time.UnixMilli(row.StartedAt).UTC(),
		FinishedAt: time.UnixMilli(row.FinishedAt).UTC(),
	}
}
