package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"seppe/internal/core"
)

var sampleHeader = []any{"ENTREGA", "STATUS", "% EXEC AGOSTO", "SUPERINTENDÊNCIA", "IDM", "IDE"}

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(core.DefaultCatalog(), nil)
}

func TestNormalizeMapsRows(t *testing.T) {
	data := workbook(t, sampleHeader,
		[]any{"Build portal", "Em andamento", "45,5%", "SRAS - Rede", "M1", "SAU.1.1"})

	res, err := newTestNormalizer().Normalize(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count())
	assert.Equal(t, "Sheet1", res.Sheet)
	assert.Equal(t, "% EXEC AGOSTO", res.ExecutionColumn)
	assert.Equal(t, 1, res.RowsRead)

	rec := res.Records[0]
	assert.Equal(t, "M1-SAU.1.1", rec.ID)
	assert.Equal(t, core.StatusInProgress, rec.Status)
	assert.InDelta(t, 45.5, rec.ExecutionPercentage, 1e-9)
	assert.Equal(t, "Build portal", rec.Name)
	assert.Equal(t, "SRAS - Rede", rec.OrganizationalUnit)
	assert.Equal(t, core.DefaultCatalog().Default().Label, rec.Secretariat)
	assert.NoError(t, rec.Validate())
}

func TestNormalizeSkipsRowMissingName(t *testing.T) {
	data := workbook(t, sampleHeader,
		[]any{"", "Em andamento", "10%", "SRAS - Rede", "M1", "SAU.1.1"},
		[]any{"Second", "Concluído", "100", "SRAS - Rede", "M1", "SAU.1.2"})

	res, err := newTestNormalizer().Normalize(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count())
	assert.Equal(t, "M1-SAU.1.2", res.Records[0].ID)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, SkippedRow{Row: 2, Missing: []string{HeaderName}}, res.Skipped[0])
	assert.Equal(t, 2, res.RowsRead)
}

func TestNormalizeMissingExecutionColumn(t *testing.T) {
	data := workbook(t,
		[]any{"ENTREGA", "STATUS", "SUPERINTENDÊNCIA", "IDE"},
		[]any{"Build portal", "Em andamento", "SRAS - Rede", "SAU.1.1"})

	_, err := newTestNormalizer().Normalize(context.Background(), data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingExecutionColumn)

	var mce *MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, ExecutionHeader, mce.Example)
	assert.Contains(t, err.Error(), "% EXEC")
	assert.Equal(t, []string{"ENTREGA", "STATUS", "SUPERINTENDÊNCIA", "IDE"}, mce.Headers)
}

func TestNormalizeCancelledStatus(t *testing.T) {
	for _, status := range []string{"CANCELADO", "cancelado", "Cancelado"} {
		grid := Grid{Rows: [][]string{
			{"ENTREGA", "STATUS", "% exec", "SUPERINTENDÊNCIA", "IDE"},
			{"X", status, "0", "U", "1"},
		}}
		res, err := newTestNormalizer().NormalizeGrid(context.Background(), grid)
		require.NoError(t, err)
		require.Equal(t, 1, res.Count())
		assert.Equal(t, core.StatusCancelled, res.Records[0].Status, status)
	}
}

func TestNormalizeTooFewRows(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.NormalizeGrid(context.Background(), Grid{})
	assert.ErrorIs(t, err, ErrTooFewRows)

	_, err = n.Normalize(context.Background(), workbook(t, sampleHeader))
	assert.ErrorIs(t, err, ErrTooFewRows)
}

func TestNormalizeRowIndependence(t *testing.T) {
	rows := [][]string{
		{"ENTREGA", "STATUS", "% EXEC", "SUPERINTENDÊNCIA", "IDM", "IDE"},
		{"A", "Em andamento", "10", "SEMED - Escolas", "M1", "1"},
		{"B", "Atrasado", "20", "Unidade", "M1", "2"},
		{"C", "Concluído", "30", "Unidade", "M1", "3"},
	}
	n := newTestNormalizer()
	full, err := n.NormalizeGrid(context.Background(), Grid{Rows: rows})
	require.NoError(t, err)
	require.Equal(t, 3, full.Count())

	corrupted := [][]string{rows[0], rows[1], {"", "", "abc", "", "", ""}, rows[3]}
	partial, err := n.NormalizeGrid(context.Background(), Grid{Rows: corrupted})
	require.NoError(t, err)
	require.Equal(t, 2, partial.Count())
	assert.Equal(t, full.Records[0], partial.Records[0])
	assert.Equal(t, full.Records[2], partial.Records[1])

	removed := [][]string{rows[0], rows[1], rows[3]}
	shorter, err := n.NormalizeGrid(context.Background(), Grid{Rows: removed})
	require.NoError(t, err)
	assert.Equal(t, []core.ProjectRecord{full.Records[0], full.Records[2]}, shorter.Records)
}

func TestNormalizeFieldHandling(t *testing.T) {
	grid := Grid{Sheet: "S", Rows: [][]string{
		{" ENTREGA ", "STATUS", "% Exec Julho", "% EXEC AGOSTO", "SUPERINTENDÊNCIA", "IDE", "", "SETOR", "INTERLOCUTOR", "IDE"},
		{"Portal", "??", "12,5", "99", "SEMED - Secretaria Municipal de Educação", "old", "ignored", "TI", "Ana", "E1"},
		{"Short row", "Pendente", "n/a", "", "Unit", "x", "", "", "", "E2"},
		{"   ", "Pendente", "1", "", "Unit", "", "", "", "", "E3"},
	}}

	res, err := newTestNormalizer().NormalizeGrid(context.Background(), grid)
	require.NoError(t, err)
	assert.Equal(t, "% Exec Julho", res.ExecutionColumn)
	require.Equal(t, 2, res.Count())

	first := res.Records[0]
	assert.Equal(t, "-E1", first.ID)
	assert.Equal(t, "E1", first.IDE)
	assert.Equal(t, core.StatusPending, first.Status)
	assert.InDelta(t, 12.5, first.ExecutionPercentage, 1e-9)
	assert.Equal(t, "TI", first.Sector)
	assert.Equal(t, "Ana", first.ContactPerson)
	assert.Equal(t, "SEMED - Secretaria Municipal de Educação", first.Secretariat)

	second := res.Records[1]
	assert.Zero(t, second.ExecutionPercentage)
	assert.Empty(t, second.Sector)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 4, res.Skipped[0].Row)
	assert.Equal(t, []string{HeaderName}, res.Skipped[0].Missing)
}

func TestNormalizeKeepsDuplicateIDs(t *testing.T) {
	grid := Grid{Rows: [][]string{
		{"ENTREGA", "STATUS", "% EXEC", "SUPERINTENDÊNCIA", "IDM", "IDE"},
		{"A", "x", "1", "U", "M", "1"},
		{"B", "x", "2", "U", "M", "1"},
	}}
	res, err := newTestNormalizer().NormalizeGrid(context.Background(), grid)
	require.NoError(t, err)
	require.Equal(t, 2, res.Count())
	assert.Equal(t, res.Records[0].ID, res.Records[1].ID)
}

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"45,5%", 45.5},
		{"45.5%", 45.5},
		{" 100 % ", 100},
		{"130", 130},
		{"-5", -5},
		{"", 0},
		{"abc", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"1e400", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParsePercentage(tt.in), 1e-9)
		})
	}
}

func TestMissingRequiredReportsAllColumns(t *testing.T) {
	f := rowFields{idm: Field{Value: "M", Present: true}}
	assert.Equal(t, []string{HeaderName, HeaderStatus, HeaderUnit, HeaderIDE}, f.missingRequired())
}
