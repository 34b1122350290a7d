package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/data-studio/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first worksheet of an XLSX workbook into a Table.
// The first row is the header. Rows shorter than the header are padded.
func ParseXLSX(r io.Reader) (*models.Table, []models.IngestError, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	header := rows[0]
	columns := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = h
	}

	var data [][]string
	var errs []models.IngestError
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if len(row) > len(columns) {
			errs = append(errs, models.IngestError{
				Row:    i + 2,
				Stage:  "parse",
				Reason: fmt.Sprintf("row has %d cells, expected %d", len(row), len(columns)),
			})
			row = row[:len(columns)]
		}
		fixed := make([]string, len(columns))
		copy(fixed, row)
		data = append(data, fixed)
	}

	table := &models.Table{Columns: columns, Rows: data}
	if table.IsEmpty() {
		return nil, errs, fmt.Errorf("sheet %q has no data rows", sheets[0])
	}

	return table, errs, nil
}
