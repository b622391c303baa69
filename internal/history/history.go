// Package history records import attempts and the rows they skipped.
// Only diagnostics live here; the dataset itself is never persisted.
package history

import (
	"context"
	"errors"
	"time"
)

// Outcome is the terminal state of one import attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

var ErrNotFound = errors.New("import not found")

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 20

type (
	// Entry summarizes one import attempt.
	Entry struct {
		ID         string    `json:"id"`
		Source     string    `json:"source"`
		Sheet      string    `json:"sheet,omitempty"`
		Outcome    Outcome   `json:"outcome"`
		Records    int       `json:"records"`
		Skipped    int       `json:"skipped"`
		Version    uint64    `json:"version,omitempty"`
		Error      string    `json:"error,omitempty"`
		StartedAt  time.Time `json:"started_at"`
		FinishedAt time.Time `json:"finished_at"`
	}

	// Skip is a data row dropped by an import, with the required columns it lacked.
	Skip struct {
		Row     int      `json:"row"`
		Missing []string `json:"missing"`
	}

	// Recorder stores import history. List returns newest first.
	Recorder interface {
		Record(ctx context.Context, e Entry, skips []Skip) error
		List(ctx context.Context, limit int) ([]Entry, error)
		Skips(ctx context.Context, importID string) ([]Skip, error)
	}
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
