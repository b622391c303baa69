package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// CSVSheetName is the sheet name reported for delimited text input.
const CSVSheetName = "csv"

// csvDelimiters are the separators recognized in delimited text, in
// tie-break order.
var csvDelimiters = []rune{',', ';', '\t', '|'}

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// Grid is the first sheet of a spreadsheet as rows of formatted cell text.
// Rows may have different lengths.
type Grid struct {
	Sheet string
	Rows  [][]string
}

// Decode parses raw file bytes into a Grid. Workbooks (xlsx) are read with
// excelize, legacy OLE2 workbooks are rejected and everything else is read
// as delimited text with the separator guessed from the header line.
func Decode(data []byte) (grid Grid, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Grid{}, ErrEmptyFile
	}

	defer func() {
		if r := recover(); r != nil {
			grid = Grid{}
			err = fmt.Errorf("%w: %v", ErrUnreadableFile, r)
		}
	}()

	switch {
	case bytes.HasPrefix(data, zipMagic):
		return decodeWorkbook(data)
	case bytes.HasPrefix(data, ole2Magic):
		return Grid{}, fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx or .csv", ErrUnsupportedFormat)
	default:
		return decodeCSV(data)
	}
}

func decodeWorkbook(data []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Grid{}, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Grid{}, fmt.Errorf("%w: workbook has no sheets", ErrUnreadableFile)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Grid{}, fmt.Errorf("%w: read sheet %q: %v", ErrUnreadableFile, sheets[0], err)
	}
	return Grid{Sheet: sheets[0], Rows: rows}, nil
}

func decodeCSV(data []byte) (Grid, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		// Spreadsheet tools on Windows export CSV as cp1252.
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return Grid{}, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Grid{}, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}
		rows = append(rows, rec)
	}
	return Grid{Sheet: CSVSheetName, Rows: rows}, nil
}

// sniffDelimiter picks the separator occurring most often outside quotes on
// the first line. Comma wins ties and is used when none occurs.
func sniffDelimiter(data []byte) rune {
	counts := make(map[rune]int, len(csvDelimiters))
	inQuotes := false
	for _, c := range string(data) {
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		if c == '\n' || c == '\r' {
			break
		}
		counts[c]++
	}

	best := csvDelimiters[0]
	for _, d := range csvDelimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
