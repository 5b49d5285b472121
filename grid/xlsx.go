package grid

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes the grid as a single-sheet workbook. Titles occupy the
// first sheet row when the grid has a header; data rows follow.
func (g *Grid) WriteXLSX(w io.Writer, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	}

	offset := 0
	if g.header {
		for col, title := range g.titles {
			if err := setCell(f, sheet, col, 0, title); err != nil {
				return err
			}
		}
		offset = 1
	}

	for _, r := range g.rows {
		for _, c := range r.Cells {
			if c.Value == "" {
				continue
			}
			if err := setCell(f, sheet, c.Column, r.Index+offset, c.Value); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value string) error {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Errorf("cell name (%d, %d): %w", col, row, err)
	}
	if err := f.SetCellValue(sheet, name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}
