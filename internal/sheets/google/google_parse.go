package google

import (
	"fmt"
	"strconv"

	"seppe/internal/importer"
)

// toGrid converts a values matrix (as returned by Sheets API) into a grid
// of cell text. Rows keep their ragged length.
func toGrid(title string, values [][]interface{}) importer.Grid {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		rows = append(rows, toStrings(row))
	}
	return importer.Grid{Sheet: title, Rows: rows}
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cellString(v)
	}
	return out
}

// cellString renders a cell. FORMATTED_VALUE responses are strings, but
// numbers and booleans still show up with other render options.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
