package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"seppe/internal/importer"
	ports "seppe/internal/sheets"
)

// Source is a GridSource backed by a grid held in memory. It stands in for
// the Google source during offline development and tests.
type Source struct {
	mu    sync.Mutex
	grid  importer.Grid
	err   error
	calls int
}

var _ ports.GridSource = (*Source)(nil)

func New(grid importer.Grid) *Source {
	return &Source{grid: grid}
}

// NewFromFile decodes a spreadsheet file (xlsx or csv) once at startup.
func NewFromFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sheet fixture: %w", err)
	}
	grid, err := importer.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode sheet fixture %s: %w", path, err)
	}
	return New(grid), nil
}

// Set replaces the grid served by FetchGrid.
func (s *Source) Set(grid importer.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid = grid
	s.err = nil
}

// Fail makes subsequent fetches return err.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls reports how many times FetchGrid ran.
func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FetchGrid returns a copy of the current grid.
func (s *Source) FetchGrid(ctx context.Context) (importer.Grid, error) {
	if err := ctx.Err(); err != nil {
		return importer.Grid{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return importer.Grid{}, s.err
	}
	rows := make([][]string, len(s.grid.Rows))
	for i, r := range s.grid.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return importer.Grid{Sheet: s.grid.Sheet, Rows: rows}, nil
}
