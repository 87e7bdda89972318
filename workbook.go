package typegrid

import (
	"fmt"
	"sync"
)

// Workbook is the read side of a spreadsheet as the builder sees it. Rows and
// columns are 1-based.
type Workbook interface {
	// SheetNames returns all sheet names in workbook order.
	SheetNames() []string
	HasSheet(name string) bool
	// RowExtent returns the last used row of the sheet, 0 for an empty sheet.
	RowExtent(name string) (int, error)
	// CellText returns the displayed text of a cell, "" when empty.
	CellText(name string, row, col int) (string, error)
	// Recalculate resolves computed cells. The builder calls it once per
	// sheet before reading any cell of it.
	Recalculate(name string) error
}

// Compile-time check: *MemoryWorkbook satisfies Workbook.
var _ Workbook = (*MemoryWorkbook)(nil)

// MemoryWorkbook is a Workbook held entirely in memory. Formulas are not
// supported; Recalculate only records that it was called.
type MemoryWorkbook struct {
	mu     sync.RWMutex
	order  []string
	sheets map[string][][]string

	recalculated map[string]int
}

// NewMemoryWorkbook returns an empty in-memory workbook.
func NewMemoryWorkbook() *MemoryWorkbook {
	return &MemoryWorkbook{
		sheets:       make(map[string][][]string),
		recalculated: make(map[string]int),
	}
}

// AddSheet adds or replaces a sheet. rows[0] is spreadsheet row 1 and
// rows[r][0] is column A.
func (w *MemoryWorkbook) AddSheet(name string, rows [][]string) *MemoryWorkbook {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sheets[name]; !ok {
		w.order = append(w.order, name)
	}
	w.sheets[name] = rows
	return w
}

// SetCell writes a single cell, growing the sheet as needed.
func (w *MemoryWorkbook) SetCell(name string, row, col int, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.sheets[name]
	if !ok {
		w.order = append(w.order, name)
	}
	for len(rows) < row {
		rows = append(rows, nil)
	}
	for len(rows[row-1]) < col {
		rows[row-1] = append(rows[row-1], "")
	}
	rows[row-1][col-1] = text
	w.sheets[name] = rows
}

func (w *MemoryWorkbook) SheetNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.order...)
}

func (w *MemoryWorkbook) HasSheet(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.sheets[name]
	return ok
}

func (w *MemoryWorkbook) RowExtent(name string) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rows, ok := w.sheets[name]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found", name)
	}
	// Trailing blank rows do not count, matching a spreadsheet's used range.
	extent := len(rows)
	for extent > 0 && blankRow(rows[extent-1]) {
		extent--
	}
	return extent, nil
}

func (w *MemoryWorkbook) CellText(name string, row, col int) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rows, ok := w.sheets[name]
	if !ok {
		return "", fmt.Errorf("sheet %q not found", name)
	}
	if row < 1 || col < 1 {
		return "", fmt.Errorf("cell (%d, %d) out of range", row, col)
	}
	if row > len(rows) || col > len(rows[row-1]) {
		return "", nil
	}
	return rows[row-1][col-1], nil
}

func (w *MemoryWorkbook) Recalculate(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sheets[name]; !ok {
		return fmt.Errorf("sheet %q not found", name)
	}
	w.recalculated[name]++
	return nil
}

// Recalculated reports how many times Recalculate was called for a sheet.
func (w *MemoryWorkbook) Recalculated(name string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.recalculated[name]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
