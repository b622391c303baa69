package history

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity is the number of entries MemoryRecorder keeps.
const DefaultMemoryCapacity = 100

// MemoryRecorder keeps the most recent entries in process memory. When full
// the oldest entry and its skips are evicted.
type MemoryRecorder struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
	skips    map[string][]Skip
}

var _ Recorder = (*MemoryRecorder)(nil)

func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryRecorder{
		capacity: capacity,
		skips:    make(map[string][]Skip),
	}
}

func (m *MemoryRecorder) Record(_ context.Context, e Entry, skips []Skip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == m.capacity {
		delete(m.skips, m.entries[0].ID)
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, e)
	m.skips[e.ID] = cloneSkips(skips)
	return nil
}

func (m *MemoryRecorder) List(_ context.Context, limit int) ([]Entry, error) {
	limit = normalizeLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, min(limit, len(m.entries)))
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *MemoryRecorder) Skips(_ context.Context, importID string) ([]Skip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	skips, ok := m.skips[importID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSkips(skips), nil
}

func cloneSkips(in []Skip) []Skip {
	out := make([]Skip, len(in))
	for i, s := range in {
		out[i] = Skip{Row: s.Row, Missing: append([]string(nil), s.Missing...)}
	}
	return out
}
