package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/data-studio/backend/internal/models"
)

// ParseCSV reads a CSV stream into a Table. The first record is the header.
// Ragged rows are padded or truncated to the header width; rows the csv
// reader rejects outright are recorded as errors and skipped.
func ParseCSV(r io.Reader) (*models.Table, []models.IngestError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, fixed up below
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("CSV is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(stripBOM(h))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = h
	}

	var rows [][]string
	var errs []models.IngestError
	line := 1

	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, models.IngestError{
				Row:    line,
				Stage:  "parse",
				Reason: err.Error(),
			})
			continue
		}

		if len(record) != len(columns) {
			fixed := make([]string, len(columns))
			copy(fixed, record)
			record = fixed
		}
		rows = append(rows, record)
	}

	table := &models.Table{Columns: columns, Rows: rows}
	if table.IsEmpty() {
		return nil, errs, fmt.Errorf("CSV has no data rows")
	}

	return table, errs, nil
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
