// Package xlsx reads grids from and writes pages to .xlsx workbooks.
package xlsx

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/jward/typegrid"
)

var _ typegrid.Workbook = (*Workbook)(nil)

// Workbook is a typegrid.Workbook backed by an .xlsx file. Formula cells
// read as their recalculated value once Recalculate has run for the sheet,
// and as the value cached in the file before that.
type Workbook struct {
	path string
	file *excelize.File

	mu sync.Mutex
	// computed holds recalculated formula results by sheet, then cell name.
	computed map[string]map[string]string
}

// Open opens the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open %s: %w", path, err)
	}
	return &Workbook{path: path, file: f, computed: make(map[string]map[string]string)}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string { return w.path }

func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

func (w *Workbook) HasSheet(name string) bool {
	idx, err := w.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// RowExtent returns the last row holding any non-blank cell.
func (w *Workbook) RowExtent(name string) (int, error) {
	if !w.HasSheet(name) {
		return 0, fmt.Errorf("sheet %q not found", name)
	}
	rows, err := w.file.GetRows(name)
	if err != nil {
		return 0, fmt.Errorf("xlsx: rows of %s: %w", name, err)
	}
	extent := len(rows)
	for extent > 0 && blankRow(rows[extent-1]) {
		extent--
	}
	return extent, nil
}

func (w *Workbook) CellText(name string, row, col int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	v, ok := w.computed[name][cell]
	w.mu.Unlock()
	if ok {
		return v, nil
	}
	return w.file.GetCellValue(name, cell)
}

// Recalculate evaluates every formula cell within the sheet's used range.
func (w *Workbook) Recalculate(name string) error {
	maxCol, maxRow, err := w.usedRange(name)
	if err != nil {
		return err
	}

	values := make(map[string]string)
	for row := 1; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return err
			}
			formula, err := w.file.GetCellFormula(name, cell)
			if err != nil {
				return fmt.Errorf("xlsx: formula %s!%s: %w", name, cell, err)
			}
			if formula == "" {
				continue
			}
			v, err := w.file.CalcCellValue(name, cell)
			if err != nil {
				return fmt.Errorf("xlsx: calculate %s!%s: %w", name, cell, err)
			}
			values[cell] = v
		}
	}

	w.mu.Lock()
	w.computed[name] = values
	w.mu.Unlock()
	return nil
}

// usedRange returns the larger of the sheet's recorded dimension and the
// extent of its stored rows.
func (w *Workbook) usedRange(name string) (maxCol, maxRow int, err error) {
	ref, err := w.file.GetSheetDimension(name)
	if err != nil {
		return 0, 0, fmt.Errorf("xlsx: dimension of %s: %w", name, err)
	}
	if maxCol, maxRow, err = lastCell(ref); err != nil {
		return 0, 0, fmt.Errorf("xlsx: dimension of %s: %w", name, err)
	}
	rows, err := w.file.GetRows(name)
	if err != nil {
		return 0, 0, fmt.Errorf("xlsx: rows of %s: %w", name, err)
	}
	maxRow = max(maxRow, len(rows))
	for _, r := range rows {
		maxCol = max(maxCol, len(r))
	}
	return maxCol, maxRow, nil
}

// lastCell returns the bottom-right coordinates of a range reference such
// as "A1:Q20" or a single cell "A1". An empty reference is 0, 0.
func lastCell(ref string) (col, row int, err error) {
	if ref == "" {
		return 0, 0, nil
	}
	if i := strings.LastIndexByte(ref, ':'); i >= 0 {
		ref = ref[i+1:]
	}
	return excelize.CellNameToCoordinates(ref)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
