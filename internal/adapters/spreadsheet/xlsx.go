package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSX reads one sheet of an Excel workbook.
type XLSX struct {
	Path  string
	Sheet string // empty: first sheet
}

// Name returns the workbook path and sheet.
func (x *XLSX) Name() string {
	if x.Sheet == "" {
		return x.Path
	}
	return x.Path + "#" + x.Sheet
}

// ReadTable reads the sheet with raw cell values, so prices are not
// rendered through the cell number format.
func (x *XLSX) ReadTable() ([]string, [][]string, error) {
	f, err := excelize.OpenFile(x.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := x.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("no sheets found")
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	header, data := splitHeader(rows)
	return header, data, nil
}
