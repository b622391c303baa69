package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, at time.Time, outcome Outcome) Entry {
	return Entry{
		ID:         id,
		Source:     id + ".xlsx",
		Sheet:      "Sheet1",
		Outcome:    outcome,
		Records:    3,
		Skipped:    1,
		Version:    7,
		StartedAt:  at,
		FinishedAt: at.Add(15 * time.Millisecond),
	}
}

// recorders runs fn against every Recorder implementation.
func recorders(t *testing.T, fn func(t *testing.T, r Recorder)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryRecorder(10))
	})
	t.Run("sqlite", func(t *testing.T) {
		r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = r.Close() })
		fn(t, r)
	})
}

func TestRecorderRoundTrip(t *testing.T) {
	recorders(t, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

		skips := []Skip{
			{Row: 3, Missing: []string{"ENTREGA"}},
			{Row: 7, Missing: []string{"STATUS", "IDE"}},
		}
		require.NoError(t, r.Record(ctx, entry("a", base, OutcomeSuccess), skips))

		failed := entry("b", base.Add(time.Minute), OutcomeFailed)
		failed.Records, failed.Skipped, failed.Version = 0, 0, 0
		failed.Error = "execution percentage column not found"
		require.NoError(t, r.Record(ctx, failed, nil))

		list, err := r.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "b", list[0].ID)
		assert.Equal(t, OutcomeFailed, list[0].Outcome)
		assert.Equal(t, failed.Error, list[0].Error)
		assert.Equal(t, entry("a", base, OutcomeSuccess), list[1])

		got, err := r.Skips(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, skips, got)

		got, err = r.Skips(ctx, "b")
		require.NoError(t, err)
		assert.Empty(t, got)

		_, err = r.Skips(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRecorderListLimit(t *testing.T) {
	recorders(t, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			require.NoError(t, r.Record(ctx, entry(fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Second), OutcomeSuccess), nil))
		}
		list, err := r.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "e4", list[0].ID)
		assert.Equal(t, "e3", list[1].ID)
	})
}

func TestSQLiteRecorderManySkips(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer r.Close()

	skips := make([]Skip, 1234)
	for i := range skips {
		skips[i] = Skip{Row: i + 2, Missing: []string{"IDE"}}
	}
	ctx := context.Background()
	require.NoError(t, r.Record(ctx, entry("big", time.Now().UTC(), OutcomeSuccess), skips))

	got, err := r.Skips(ctx, "big")
	require.NoError(t, err)
	assert.Len(t, got, len(skips))
	assert.Equal(t, 1235, got[len(got)-1].Row)
}

func TestSQLiteRecorderReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.Record(ctx, entry("a", time.Now().UTC(), OutcomeSuccess), nil))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Ping(ctx))
	list, err := r.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLiteRecorderDuplicateIDRollsBack(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer r.Close()
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, entry("a", time.Now().UTC(), OutcomeSuccess), nil))
	err = r.Record(ctx, entry("a", time.Now().UTC(), OutcomeSuccess), []Skip{{Row: 2, Missing: []string{"IDE"}}})
	require.Error(t, err)

	got, err := r.Skips(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryRecorderEvictsOldest(t *testing.T) {
	r := NewMemoryRecorder(2)
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Record(ctx, entry(id, now, OutcomeSuccess), []Skip{{Row: 2}}))
	}
	list, err := r.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	_, err = r.Skips(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}
