package importer

import (
	"context"
	"math"
	"strconv"
	"strings"

	"seppe/internal/core"
	"seppe/internal/log"
)

// Header names of the delivery tracking spreadsheet.
const (
	HeaderName      = "ENTREGA"
	HeaderStatus    = "STATUS"
	HeaderUnit      = "SUPERINTENDÊNCIA"
	HeaderIDM       = "IDM"
	HeaderIDE       = "IDE"
	HeaderSector    = "SETOR"
	HeaderContact   = "INTERLOCUTOR"
	ExecutionPrefix = "% exec"
	ExecutionHeader = "% EXEC"
)

// Field is an optional cell value. Blank cells are absent.
type Field struct {
	Value   string
	Present bool
}

func fieldOf(s string) Field {
	s = strings.TrimSpace(s)
	return Field{Value: s, Present: s != ""}
}

// rowFields is one data row decoded against the header row.
type rowFields struct {
	name       Field
	status     Field
	unit       Field
	ide        Field
	idm        Field
	sector     Field
	contact    Field
	percentage Field
}

func (f rowFields) missingRequired() []string {
	var missing []string
	if !f.name.Present {
		missing = append(missing, HeaderName)
	}
	if !f.status.Present {
		missing = append(missing, HeaderStatus)
	}
	if !f.unit.Present {
		missing = append(missing, HeaderUnit)
	}
	if !f.ide.Present {
		missing = append(missing, HeaderIDE)
	}
	return missing
}

// SkippedRow describes a data row dropped for missing required cells.
// Row is the 1-based spreadsheet row number, the header being row 1.
type SkippedRow struct {
	Row     int      `json:"row"`
	Missing []string `json:"missing"`
}

// Result is the outcome of a successful normalization.
type Result struct {
	Records         []core.ProjectRecord
	Skipped         []SkippedRow
	Sheet           string
	ExecutionColumn string
	RowsRead        int
}

// Count is the number of records imported.
func (r Result) Count() int {
	return len(r.Records)
}

// Normalizer turns spreadsheet bytes into validated project records.
type Normalizer struct {
	catalog *core.Catalog
	logger  *log.Logger
}

// NewNormalizer builds a Normalizer. A nil catalog means core.DefaultCatalog
// and a nil logger discards output.
func NewNormalizer(catalog *core.Catalog, logger *log.Logger) *Normalizer {
	if catalog == nil {
		catalog = core.DefaultCatalog()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Normalizer{catalog: catalog, logger: logger.WithComponent(log.ComponentImport)}
}

// Normalize decodes data and normalizes its first sheet.
func (n *Normalizer) Normalize(ctx context.Context, data []byte) (Result, error) {
	grid, err := Decode(data)
	if err != nil {
		return Result{}, err
	}
	return n.NormalizeGrid(ctx, grid)
}

// NormalizeGrid maps an already decoded grid onto project records. Rows
// missing a required cell are skipped and reported in Result.Skipped.
func (n *Normalizer) NormalizeGrid(ctx context.Context, grid Grid) (Result, error) {
	if len(grid.Rows) < 2 {
		return Result{}, ErrTooFewRows
	}

	headers := make([]string, len(grid.Rows[0]))
	for i, h := range grid.Rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	execHeader, ok := findExecutionHeader(headers)
	if !ok {
		return Result{}, &MissingColumnError{
			Prefix:  ExecutionPrefix,
			Example: ExecutionHeader,
			Headers: nonEmpty(headers),
		}
	}

	columns := indexHeaders(headers)
	res := Result{
		Sheet:           grid.Sheet,
		ExecutionColumn: execHeader,
		RowsRead:        len(grid.Rows) - 1,
	}

	for i, row := range grid.Rows[1:] {
		rowNum := i + 2
		f := decodeRow(columns, execHeader, row)
		if missing := f.missingRequired(); len(missing) > 0 {
			n.logger.WarnContext(ctx, "Skipping row with missing required cells",
				log.FieldSheet, grid.Sheet,
				log.FieldRow, rowNum,
				log.FieldMissing, missing)
			res.Skipped = append(res.Skipped, SkippedRow{Row: rowNum, Missing: missing})
			continue
		}
		res.Records = append(res.Records, n.buildRecord(f))
	}

	n.logger.DebugContext(ctx, "Sheet normalized",
		log.FieldSheet, grid.Sheet,
		log.FieldRecords, len(res.Records),
		log.FieldSkipped, len(res.Skipped))
	return res, nil
}

func (n *Normalizer) buildRecord(f rowFields) core.ProjectRecord {
	return core.ProjectRecord{
		ID:                  core.RecordID(f.idm.Value, f.ide.Value),
		IDM:                 f.idm.Value,
		IDE:                 f.ide.Value,
		Name:                f.name.Value,
		Status:              core.ClassifyStatus(f.status.Value),
		ExecutionPercentage: ParsePercentage(f.percentage.Value),
		OrganizationalUnit:  f.unit.Value,
		Sector:              f.sector.Value,
		ContactPerson:       f.contact.Value,
		Secretariat:         n.catalog.Resolve(f.unit.Value),
	}
}

// ParsePercentage reads "45,5%" style text. Unparseable or non-finite input
// yields 0 and the value is not clamped.
func ParsePercentage(text string) float64 {
	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func findExecutionHeader(headers []string) (string, bool) {
	for _, h := range headers {
		if strings.HasPrefix(core.FoldText(h), ExecutionPrefix) {
			return h, true
		}
	}
	return "", false
}

// indexHeaders maps header text to column index. Empty headers are dropped
// and the last of several equal headers wins.
func indexHeaders(headers []string) map[string]int {
	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		columns[h] = i
	}
	return columns
}

func decodeRow(columns map[string]int, execHeader string, row []string) rowFields {
	cell := func(header string) Field {
		i, ok := columns[header]
		if !ok || i >= len(row) {
			return Field{}
		}
		return fieldOf(row[i])
	}
	return rowFields{
		name:       cell(HeaderName),
		status:     cell(HeaderStatus),
		unit:       cell(HeaderUnit),
		ide:        cell(HeaderIDE),
		idm:        cell(HeaderIDM),
		sector:     cell(HeaderSector),
		contact:    cell(HeaderContact),
		percentage: cell(execHeader),
	}
}

func nonEmpty(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
