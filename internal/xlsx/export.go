package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jward/typegrid"
)

const (
	maxSheetName = 31
	headerFill   = "70AD47"
)

// WritePages writes one sheet per page to a new workbook at path. Each
// sheet has a styled, filterable header row followed by one row per column
// of the page: its object-level labels, tag name, data type and
// description.
func WritePages(path string, pages []*typegrid.Page) error {
	if len(pages) == 0 {
		return fmt.Errorf("xlsx: no pages to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}

	used := make(map[string]bool)
	for i, p := range pages {
		name := sheetName(p.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("xlsx: sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx: sheet %s: %w", name, err)
		}
		if err := writePage(f, name, p, style); err != nil {
			return fmt.Errorf("xlsx: sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", path, err)
	}
	return nil
}

func writePage(f *excelize.File, sheet string, p *typegrid.Page, style int) error {
	levels := 0
	for _, c := range p.Columns {
		levels = max(levels, len(c.AncestorLabels))
	}

	header := make([]any, 0, levels*2+3)
	for i := 1; i <= levels; i++ {
		header = append(header, fmt.Sprintf("Level %d", i), fmt.Sprintf("Level %d Description", i))
	}
	header = append(header, "TagName", "DataType", "Description")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, c := range p.Columns {
		row := make([]any, 0, len(header))
		for _, s := range typegrid.LabelStrings(c.AncestorLabels) {
			row = append(row, s)
		}
		for len(row) < levels*2 {
			row = append(row, "")
		}
		row = append(row, c.TagName, c.DataType, c.Description)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 20)
}

// sheetName makes a valid, unused sheet name from a page name.
func sheetName(page string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, page)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Page"
	}
	name = truncate(name, maxSheetName)

	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
