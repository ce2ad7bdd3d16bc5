// Package spreadsheet reads catalog tables from .xlsx workbooks (excelize) and
// delimited text files. Both return the first non-empty row as the header and
// every later row as data; columns are interpreted by the catalog domain.
package spreadsheet

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/corey/botica/internal/ports"
)

// Open returns a catalog source for path, chosen by file extension.
// sheet selects the workbook sheet (empty means the first sheet) and is
// ignored for delimited files.
func Open(path, sheet string) (ports.CatalogSource, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return &XLSX{Path: path, Sheet: sheet}, nil
	case ".csv", ".tsv", ".txt":
		return &CSV{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (want .xlsx or .csv)", ext)
	}
}

// splitHeader drops leading blank rows, returns the first remaining row as the
// header and the rest as data. Blank data rows are dropped too.
func splitHeader(rows [][]string) ([]string, [][]string) {
	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, nil
	}
	header := rows[start]
	data := make([][]string, 0, len(rows)-start-1)
	for _, r := range rows[start+1:] {
		if !blank(r) {
			data = append(data, r)
		}
	}
	return header, data
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
