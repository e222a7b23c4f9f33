package source

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSX reads the grid from a downloaded workbook.
type XLSX struct {
	path      string
	sheetName string
}

// NewXLSX returns an XLSX source. An empty sheetName selects the first sheet.
func NewXLSX(path, sheetName string) *XLSX {
	return &XLSX{path: path, sheetName: sheetName}
}

// Name implements Source.
func (x *XLSX) Name() string {
	return "xlsx:" + x.path
}

// Fetch implements Source.
func (x *XLSX) Fetch(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	name := x.sheetName
	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", x.path)
		}
		name = sheets[0]
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return rows, nil
}
