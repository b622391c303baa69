// Package export writes project records in the same tabular layout the
// importer reads, so an exported file can be imported again.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"seppe/internal/core"
)

// ContentType is the media type of WriteCSV output.
const ContentType = "text/csv; charset=utf-8"

// Row is one exported delivery. Column names match the import headers.
type Row struct {
	IDM       string `csv:"IDM"`
	IDE       string `csv:"IDE"`
	Name      string `csv:"ENTREGA"`
	Status    string `csv:"STATUS"`
	Execution string `csv:"% EXEC"`
	Unit      string `csv:"SUPERINTENDÊNCIA"`
	Sector    string `csv:"SETOR"`
	Contact   string `csv:"INTERLOCUTOR"`
}

// ToRow renders a record with its Portuguese status label and a
// decimal-comma percentage.
func ToRow(r core.ProjectRecord) Row {
	return Row{
		IDM:       r.IDM,
		IDE:       r.IDE,
		Name:      r.Name,
		Status:    r.Status.Label(),
		Execution: FormatPercentage(r.ExecutionPercentage),
		Unit:      r.OrganizationalUnit,
		Sector:    r.Sector,
		Contact:   r.ContactPerson,
	}
}

// FormatPercentage renders 45.5 as "45,5%".
func FormatPercentage(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1) + "%"
}

// WriteCSV writes records as comma-separated UTF-8 with a BOM so
// spreadsheet tools pick the right encoding.
func WriteCSV(w io.Writer, records []core.ProjectRecord) error {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, ToRow(r))
	}

	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	csvWriter := csv.NewWriter(w)
	if err := gocsv.MarshalCSV(&rows, csvWriter); err != nil {
		return fmt.Errorf("marshal csv: %w", err)
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
