package dataset

import (
	"fmt"
	"time"

	"github.com/data-studio/backend/internal/models"
)

// BuildProfile computes the full statistical report for a stored dataset.
func BuildProfile(store *RowStore, datasetID, title string) (*models.ProfileReport, error) {
	schema := store.Schema()

	report := &models.ProfileReport{
		DatasetID:   datasetID,
		Title:       title,
		RowCount:    store.Len(),
		ColumnCount: len(schema.Columns),
		GeneratedAt: time.Now().Format(time.RFC3339),
	}

	dupes, err := store.DuplicateRowCount()
	if err != nil {
		return nil, fmt.Errorf("computing duplicate rows: %w", err)
	}
	report.DuplicateRows = dupes

	size, err := store.EstimatedBytes()
	if err != nil {
		return nil, fmt.Errorf("estimating memory: %w", err)
	}
	report.EstimatedBytes = size

	for i, col := range schema.Columns {
		profile, err := store.ColumnProfile(i, col)
		if err != nil {
			return nil, fmt.Errorf("profiling column %q: %w", col.Name, err)
		}
		report.Columns = append(report.Columns, *profile)
	}

	return report, nil
}
