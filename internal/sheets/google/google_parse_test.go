package google

import (
	"context"
	"testing"

	"seppe/internal/importer"
)

func TestToGrid(t *testing.T) {
	values := [][]interface{}{
		{"ENTREGA", "STATUS", "% EXEC AGOSTO", "SUPERINTENDÊNCIA", "IDM", "IDE"},
		{"Build portal", "Em andamento", "45,5%", "SRAS - Rede", "M1", "SAU.1.1"},
		{"Numbers", "Concluído", 100.0, "SRAS - Rede", true, nil},
		{},
	}
	grid := toGrid("Agosto", values)
	if grid.Sheet != "Agosto" {
		t.Fatalf("unexpected sheet %q", grid.Sheet)
	}
	if len(grid.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(grid.Rows))
	}
	if got := grid.Rows[2][2]; got != "100" {
		t.Fatalf("number cell rendered as %q", got)
	}
	if got := grid.Rows[2][4]; got != "true" {
		t.Fatalf("bool cell rendered as %q", got)
	}
	if got := grid.Rows[2][5]; got != "" {
		t.Fatalf("nil cell rendered as %q", got)
	}

	res, err := importer.NewNormalizer(nil, nil).NormalizeGrid(context.Background(), grid)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if res.Count() != 1 || res.Records[0].ID != "M1-SAU.1.1" {
		t.Fatalf("unexpected records: %+v", res.Records)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected 2 skipped rows, got %d", len(res.Skipped))
	}
}

func TestQuoteSheet(t *testing.T) {
	cases := map[string]string{
		"Agosto":        "'Agosto'",
		"Entregas 2025": "'Entregas 2025'",
		"D'Ávila":       "'D''Ávila'",
	}
	for in, want := range cases {
		if got := quoteSheet(in); got != want {
			t.Fatalf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
