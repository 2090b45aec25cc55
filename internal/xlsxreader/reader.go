// =============================================================================
// Automeldung Exporter - Spreadsheet Reader
// =============================================================================
//
// The spreadsheet collaborator: loads the leave report and the contact
// directory from disk and hands back column-normalized rows. Headers are
// cleaned the same way throughout the toolchain - trimmed, lowercased,
// spaces to underscores, everything outside [a-z0-9_] dropped - so the rest
// of the pipeline only ever sees names like "summe_der_tage" or "au_file_id"
// no matter how the sheet was decorated.
//
// Modern .xlsx files are read through excelize; legacy .xls files through
// extrame/xls (sheet selection is only available for .xlsx, the legacy
// reader always takes the first sheet).
//
// =============================================================================

package xlsxreader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Row is one data row keyed by normalized header name.
type Row map[string]string

// ReadTable loads the spreadsheet at path and returns its data rows. The
// first row is the header row. sheet selects the worksheet for .xlsx input;
// empty means the first sheet. limit caps the number of data rows returned
// (0 = no limit).
func ReadTable(path, sheet string, limit int) ([]Row, error) {
	cells, err := readCells(path, sheet)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("spreadsheet %s is empty", path)
	}

	headers := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		headers[i] = NormalizeHeader(h)
	}

	var rows []Row
	for _, line := range cells[1:] {
		if limit > 0 && len(rows) >= limit {
			break
		}
		row := Row{}
		for i, cell := range line {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			row[headers[i]] = strings.TrimSpace(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readCells(path, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls":
		workbook, err := xls.Open(path, "utf-8")
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("%s has no worksheet", path)
		}
		return workbook.ReadAllCells(100000), nil
	default:
		file, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = file.Close() }()

		name := sheet
		if name == "" {
			name = file.GetSheetName(0)
		}
		if name == "" {
			return nil, fmt.Errorf("%s has no worksheet", path)
		}
		rows, err := file.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q of %s: %w", name, path, err)
		}
		return rows, nil
	}
}

// NormalizeHeader cleans one column header: trim, lowercase, spaces to
// underscores, strip everything outside [a-z0-9_].
func NormalizeHeader(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.ReplaceAll(h, " ", "_")
	var b strings.Builder
	for _, r := range h {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
