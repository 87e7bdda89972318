package typegrid

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingDefinition means a named grid is not in the workbook.
	ErrMissingDefinition = errors.New("missing definition")
	// ErrEmptyDefinition means a grid exists but has no data rows.
	ErrEmptyDefinition = errors.New("empty definition")
	// ErrUnresolvedReference matches a MissingDefinition that was reached
	// by following a non-basic type name from another grid.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrMissingPage means the flattener met a node whose own page was
	// never created.
	ErrMissingPage = errors.New("missing page")
)

// CellRef locates the cell a reference was read from.
type CellRef struct {
	Sheet string
	Row   int
	Col   int
}

func (c CellRef) String() string {
	return fmt.Sprintf("%s!%s%d", c.Sheet, columnName(c.Col), c.Row)
}

// SheetError describes a grid that could not be compiled.
type SheetError struct {
	Sheet       string
	Suggestions []string
	// Referrer is set when the sheet was reached through a type or notes
	// cell of another grid.
	Referrer *CellRef
	Err      error
}

func (e *SheetError) Error() string {
	var b strings.Builder
	switch {
	case errors.Is(e.Err, ErrMissingDefinition):
		fmt.Fprintf(&b, "sheet %q not found", e.Sheet)
		if len(e.Suggestions) > 0 {
			quoted := make([]string, len(e.Suggestions))
			for i, s := range e.Suggestions {
				quoted[i] = fmt.Sprintf("%q", s)
			}
			fmt.Fprintf(&b, " (similar sheets: %s)", strings.Join(quoted, ", "))
		}
	case errors.Is(e.Err, ErrEmptyDefinition):
		fmt.Fprintf(&b, "sheet %q has no data rows to extract", e.Sheet)
	default:
		fmt.Fprintf(&b, "sheet %q: %v", e.Sheet, e.Err)
	}
	if e.Referrer != nil {
		fmt.Fprintf(&b, " (referenced from %s)", e.Referrer)
	}
	return b.String()
}

func (e *SheetError) Unwrap() error { return e.Err }

// Is lets a missing referenced grid match ErrUnresolvedReference as well as
// ErrMissingDefinition.
func (e *SheetError) Is(target error) bool {
	return target == ErrUnresolvedReference && e.Referrer != nil && errors.Is(e.Err, ErrMissingDefinition)
}

// columnName converts a 1-based column index to spreadsheet letters.
func columnName(col int) string {
	if col < 1 {
		return "?"
	}
	var name []byte
	for col > 0 {
		col--
		name = append([]byte{byte('A' + col%26)}, name...)
		col /= 26
	}
	return string(name)
}
