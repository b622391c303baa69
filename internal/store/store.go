// Package store keeps the active dataset in process memory.
package store

import (
	"sync"
	"time"

	"seppe/internal/core"
	"seppe/internal/dashboard"
)

// Snapshot is an immutable copy of the active dataset.
type Snapshot struct {
	Records    []core.ProjectRecord `json:"records"`
	Version    uint64               `json:"version"`
	Source     string               `json:"source"`
	ImportedAt time.Time            `json:"imported_at"`
}

// Len is the number of records in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Records)
}

// Store holds the one active dataset. Replace swaps it wholesale, so
// readers see either the previous dataset or the new one, never a mix.
type Store struct {
	mu      sync.RWMutex
	records []core.ProjectRecord
	version uint64
	source  string
	at      time.Time
	now     func() time.Time
}

// New returns an empty store at version 0.
func New() *Store {
	return &Store{now: time.Now}
}

// Replace installs records as the active dataset and returns the new snapshot.
func (s *Store) Replace(records []core.ProjectRecord, source string) Snapshot {
	cp := append([]core.ProjectRecord(nil), records...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cp
	s.version++
	s.source = source
	s.at = s.now().UTC()
	return s.snapshotLocked()
}

// Snapshot returns a copy of the active dataset.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Version is the number of successful replacements so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Meta returns the snapshot metadata and record count without copying records.
func (s *Store) Meta() (Snapshot, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Version: s.version, Source: s.source, ImportedAt: s.at}, len(s.records)
}

// FilteredView returns the active records restricted to the selected
// secretariats. An empty selection returns everything.
func (s *Store) FilteredView(selected []string) []core.ProjectRecord {
	return dashboard.FilterByGroups(s.Snapshot().Records, selected)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Records:    append([]core.ProjectRecord(nil), s.records...),
		Version:    s.version,
		Source:     s.source,
		ImportedAt: s.at,
	}
}
