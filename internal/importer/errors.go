package importer

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal import errors. A failed import never produces a partial dataset.
var (
	ErrEmptyFile              = errors.New("empty file")
	ErrUnreadableFile         = errors.New("unreadable spreadsheet")
	ErrUnsupportedFormat      = errors.New("unsupported spreadsheet format")
	ErrTooFewRows             = errors.New("spreadsheet needs a header row and at least one data row")
	ErrMissingExecutionColumn = errors.New("execution percentage column not found")
)

// MissingColumnError reports that no header matched the execution column prefix.
type MissingColumnError struct {
	Prefix  string
	Example string
	Headers []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q (a header starting with %q); headers found: [%s]",
		e.Example, e.Prefix, strings.Join(e.Headers, ", "))
}

// Is lets callers match with errors.Is(err, ErrMissingExecutionColumn).
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingExecutionColumn
}
