// Package xlsx is the tabular codec: it reads the first sheet of a
// spreadsheet into ordered rows and writes translated rows back out.
package xlsx

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"sheet-translator/internal/domain"
)

// ReadTable reads the first sheet of the file at path. The first row is the
// header list; every following row becomes a Row keyed by header name.
// Cells missing at the end of a short row are filled with the empty string
// so every row carries the full column set.
func ReadTable(path string) ([]domain.Row, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%s contains no sheets", path)
	}

	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	headers := raw[0]
	seen := make(map[string]struct{}, len(headers))
	for i, h := range headers {
		if h == "" {
			return nil, nil, fmt.Errorf("column %d has an empty header", i+1)
		}
		if _, dup := seen[h]; dup {
			return nil, nil, fmt.Errorf("duplicate column header %q", h)
		}
		seen[h] = struct{}{}
	}

	rows := make([]domain.Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(domain.Row, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, headers, nil
}

// WriteTable writes rows under the given header order to an xlsx file at
// path. The write is atomic: a temp file is renamed into place.
func WriteTable(path string, rows []domain.Row, headers []string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headerCells := make([]any, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}

	for i, row := range rows {
		cells := make([]any, len(headers))
		for j, h := range headers {
			cells[j] = row[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	tmp := path + ".tmp"
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("saving %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return nil
}
