package sheets

import (
	"context"

	"seppe/internal/importer"
)

// GridSource yields the first sheet of a remote or fixture spreadsheet as a
// grid ready for importer.Normalizer.NormalizeGrid.
type GridSource interface {
	FetchGrid(ctx context.Context) (importer.Grid, error)
}
