// Package dataset handles tabular ingestion: parsing uploads into tables,
// inferring column types, and persisting rows into a DuckDB-backed store.
package dataset

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/data-studio/backend/internal/models"
)

// maxSampleRows bounds how many rows type inference inspects.
const maxSampleRows = 1000

// maxSampleValues bounds how many distinct values are kept per column.
const maxSampleValues = 10

// InferSchema inspects a table and classifies every column.
// A column is typed numeric/date/bool only when at least 80% of its
// non-null values parse as that type; otherwise it stays a string.
func InferSchema(table *models.Table) *models.Schema {
	schema := &models.Schema{
		Columns:  make([]models.Column, len(table.Columns)),
		RowCount: len(table.Rows),
	}

	sample := table.Rows
	if len(sample) > maxSampleRows {
		sample = sample[:maxSampleRows]
	}

	for i, name := range table.Columns {
		schema.Columns[i] = analyzeColumn(name, i, sample)
	}

	return schema
}

func analyzeColumn(name string, index int, rows [][]string) models.Column {
	col := models.Column{Name: name, Type: models.ColumnTypeString}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)

	for _, row := range rows {
		if index >= len(row) {
			col.NullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		if IsNull(val) {
			col.NullCount++
			continue
		}
		values = append(values, val)
		uniqueSet[val] = true
	}

	if len(values) == 0 {
		return col
	}

	col.Type = detectType(values)
	col.SampleValues = collectSamples(uniqueSet, maxSampleValues)

	switch {
	case len(uniqueSet) <= 10:
		col.DistinctHint = "low"
	case len(uniqueSet) <= 100:
		col.DistinctHint = "medium"
	default:
		col.DistinctHint = "high"
	}

	return col
}

// detectType requires 80%+ of non-null values to match for numeric/date/bool.
func detectType(values []string) models.ColumnType {
	numCount := 0
	dateCount := 0
	boolCount := 0

	for _, v := range values {
		if IsNumeric(v) {
			numCount++
		}
		if isDate(v) {
			dateCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	threshold := int(float64(len(values)) * 0.8)
	if threshold < 1 {
		threshold = 1
	}

	if boolCount >= threshold {
		return models.ColumnTypeBool
	}
	if dateCount >= threshold {
		return models.ColumnTypeDate
	}
	if numCount >= threshold {
		return models.ColumnTypeNumeric
	}
	return models.ColumnTypeString
}

// IsNull reports whether a raw cell value counts as missing.
func IsNull(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "null", "NULL", "N/A", "n/a", "NaN", "nan":
		return true
	}
	return false
}

// IsNumeric reports whether a raw cell value parses as a number.
// Thousands separators and common currency prefixes are tolerated.
func IsNumeric(s string) bool {
	_, ok := ParseNumeric(s)
	return ok
}

// ParseNumeric parses a raw cell value into a float64.
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	for _, prefix := range []string{"$", "€", "£"} {
		s = strings.TrimPrefix(s, prefix)
	}
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"Jan-2006",
	"January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}

// collectSamples picks up to maxSamples representative values, sorted for
// deterministic output.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
