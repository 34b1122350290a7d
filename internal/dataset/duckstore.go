package dataset

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/data-studio/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
)

// insertBatchSize is how many rows go into one multi-row INSERT.
const insertBatchSize = 500

// RowStore persists a dataset's rows in a temporary DuckDB file so that
// profiling and chart queries run as SQL instead of in-process scans.
// Numeric columns are stored as DOUBLE, everything else as VARCHAR.
type RowStore struct {
	db       *sql.DB
	dbPath   string
	schema   *models.Schema
	rowCount int
}

// NewRowStore creates a DuckDB-backed store for one dataset session.
func NewRowStore(tempDir, sessionID string, schema *models.Schema) (*RowStore, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("dataset_%s.duckdb", sessionID))

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='1GB'",
			"PRAGMA threads=4",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	cols := make([]string, 0, len(schema.Columns)+1)
	cols = append(cols, "row_idx BIGINT NOT NULL")
	for i, c := range schema.Columns {
		if c.Type == models.ColumnTypeNumeric {
			cols = append(cols, fmt.Sprintf("c%d DOUBLE", i))
		} else {
			cols = append(cols, fmt.Sprintf("c%d VARCHAR", i))
		}
	}

	ddl := fmt.Sprintf("CREATE TABLE rows (%s)", strings.Join(cols, ", "))
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create rows table: %w", err)
	}

	return &RowStore{
		db:     db,
		dbPath: dbPath,
		schema: schema,
	}, nil
}

// InsertTable writes all table rows into the store. The progress callback,
// if non-nil, is invoked after every batch with the number of rows written.
func (rs *RowStore) InsertTable(table *models.Table, progress func(rows int)) error {
	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	placeholders := make([]string, len(rs.schema.Columns)+1)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO rows VALUES (%s)", strings.Join(placeholders, ", ")))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for rowIdx, row := range table.Rows {
		args := make([]interface{}, 0, len(rs.schema.Columns)+1)
		args = append(args, int64(rowIdx))
		for colIdx, col := range rs.schema.Columns {
			var raw string
			if colIdx < len(row) {
				raw = strings.TrimSpace(row[colIdx])
			}
			if IsNull(raw) {
				args = append(args, nil)
				continue
			}
			if col.Type == models.ColumnTypeNumeric {
				if f, ok := ParseNumeric(raw); ok {
					args = append(args, f)
				} else {
					args = append(args, nil)
				}
				continue
			}
			args = append(args, raw)
		}

		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row %d: %w", rowIdx, err)
		}

		written++
		if progress != nil && written%insertBatchSize == 0 {
			progress(written)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	rs.rowCount = written
	if progress != nil {
		progress(written)
	}
	return nil
}

// Len returns the number of stored rows.
func (rs *RowStore) Len() int {
	return rs.rowCount
}

// Schema returns the schema the store was created with.
func (rs *RowStore) Schema() *models.Schema {
	return rs.schema
}

// GetRows returns a page of rows in insertion order. Values come back as
// float64, string, or nil per the column type.
func (rs *RowStore) GetRows(ctx context.Context, page, pageSize int) ([][]interface{}, int, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	colRefs := make([]string, len(rs.schema.Columns))
	for i := range rs.schema.Columns {
		colRefs[i] = fmt.Sprintf("c%d", i)
	}

	query := fmt.Sprintf("SELECT %s FROM rows ORDER BY row_idx LIMIT ? OFFSET ?", strings.Join(colRefs, ", "))
	rows, err := rs.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out [][]interface{}
	for rows.Next() {
		scanned := make([]interface{}, len(rs.schema.Columns))
		targets := make([]interface{}, len(rs.schema.Columns))
		for i, col := range rs.schema.Columns {
			if col.Type == models.ColumnTypeNumeric {
				targets[i] = new(sql.NullFloat64)
			} else {
				targets[i] = new(sql.NullString)
			}
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, 0, fmt.Errorf("scan row: %w", err)
		}
		for i, t := range targets {
			switch v := t.(type) {
			case *sql.NullFloat64:
				if v.Valid {
					scanned[i] = v.Float64
				}
			case *sql.NullString:
				if v.Valid {
					scanned[i] = v.String
				}
			}
		}
		out = append(out, scanned)
	}

	return out, rs.rowCount, rows.Err()
}

// LabelValuePairs returns (label, value) pairs for bar and pie charts:
// the label column as text, the value column as a number, rows with a
// null value skipped, insertion order preserved.
func (rs *RowStore) LabelValuePairs(labelIdx, valueIdx int) ([]string, []float64, error) {
	query := fmt.Sprintf(
		"SELECT CAST(c%d AS VARCHAR), c%d FROM rows WHERE c%d IS NOT NULL ORDER BY row_idx",
		labelIdx, valueIdx, valueIdx)

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query pairs: %w", err)
	}
	defer rows.Close()

	var labels []string
	var values []float64
	for rows.Next() {
		var label sql.NullString
		var value float64
		if err := rows.Scan(&label, &value); err != nil {
			return nil, nil, fmt.Errorf("scan pair: %w", err)
		}
		labels = append(labels, label.String)
		values = append(values, value)
	}

	return labels, values, rows.Err()
}

// NumericPairs returns aligned (x, y) vectors for line and scatter charts,
// skipping rows where either side is null.
func (rs *RowStore) NumericPairs(xIdx, yIdx int) ([]float64, []float64, error) {
	query := fmt.Sprintf(
		"SELECT c%d, c%d FROM rows WHERE c%d IS NOT NULL AND c%d IS NOT NULL ORDER BY row_idx",
		xIdx, yIdx, xIdx, yIdx)

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query numeric pairs: %w", err)
	}
	defer rows.Close()

	var xs, ys []float64
	for rows.Next() {
		var x, y float64
		if err := rows.Scan(&x, &y); err != nil {
			return nil, nil, fmt.Errorf("scan numeric pair: %w", err)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	return xs, ys, rows.Err()
}

// SeriesValues returns, for stacked/grouped bars, the label column plus one
// numeric vector per series column. Rows where every series value is null
// are skipped; remaining nulls read as zero.
func (rs *RowStore) SeriesValues(labelIdx int, seriesIdx []int) ([]string, [][]float64, error) {
	refs := make([]string, 0, len(seriesIdx)+1)
	refs = append(refs, fmt.Sprintf("CAST(c%d AS VARCHAR)", labelIdx))
	notNull := make([]string, 0, len(seriesIdx))
	for _, idx := range seriesIdx {
		refs = append(refs, fmt.Sprintf("c%d", idx))
		notNull = append(notNull, fmt.Sprintf("c%d IS NOT NULL", idx))
	}

	query := fmt.Sprintf("SELECT %s FROM rows WHERE %s ORDER BY row_idx",
		strings.Join(refs, ", "), strings.Join(notNull, " OR "))

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var labels []string
	series := make([][]float64, len(seriesIdx))

	for rows.Next() {
		var label sql.NullString
		targets := make([]interface{}, 0, len(seriesIdx)+1)
		targets = append(targets, &label)
		vals := make([]sql.NullFloat64, len(seriesIdx))
		for i := range vals {
			targets = append(targets, &vals[i])
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, nil, fmt.Errorf("scan series row: %w", err)
		}
		labels = append(labels, label.String)
		for i, v := range vals {
			series[i] = append(series[i], v.Float64)
		}
	}

	return labels, series, rows.Err()
}

// ColumnProfile computes per-column statistics in SQL.
func (rs *RowStore) ColumnProfile(idx int, col models.Column) (*models.ColumnProfile, error) {
	profile := &models.ColumnProfile{
		Name: col.Name,
		Type: col.Type,
	}

	var count, distinct int
	err := rs.db.QueryRow(fmt.Sprintf(
		"SELECT COUNT(c%d), COUNT(DISTINCT c%d) FROM rows", idx, idx)).Scan(&count, &distinct)
	if err != nil {
		return nil, fmt.Errorf("profile counts: %w", err)
	}
	profile.Count = count
	profile.NullCount = rs.rowCount - count
	profile.DistinctCount = distinct

	if col.Type == models.ColumnTypeNumeric && count > 0 {
		stats := &models.NumericStats{}
		var stddev sql.NullFloat64
		err := rs.db.QueryRow(fmt.Sprintf(
			"SELECT MIN(c%d), MAX(c%d), AVG(c%d), STDDEV(c%d), SUM(c%d) FROM rows",
			idx, idx, idx, idx, idx)).Scan(&stats.Min, &stats.Max, &stats.Mean, &stddev, &stats.Sum)
		if err != nil {
			return nil, fmt.Errorf("profile numeric stats: %w", err)
		}
		stats.Stddev = stddev.Float64
		profile.Numeric = stats
		return profile, nil
	}

	// Top values for non-numeric columns
	rows, err := rs.db.Query(fmt.Sprintf(
		"SELECT CAST(c%d AS VARCHAR), COUNT(*) AS n FROM rows WHERE c%d IS NOT NULL GROUP BY c%d ORDER BY n DESC, 1 LIMIT 5",
		idx, idx, idx))
	if err != nil {
		return nil, fmt.Errorf("profile top values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vc models.ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, fmt.Errorf("scan top value: %w", err)
		}
		profile.TopValues = append(profile.TopValues, vc)
	}

	return profile, rows.Err()
}

// EstimatedBytes approximates the dataset's in-memory size: 8 bytes per
// non-null numeric cell, text cells by their character length.
func (rs *RowStore) EstimatedBytes() (int64, error) {
	if len(rs.schema.Columns) == 0 || rs.rowCount == 0 {
		return 0, nil
	}

	terms := make([]string, len(rs.schema.Columns))
	for i, col := range rs.schema.Columns {
		if col.Type == models.ColumnTypeNumeric {
			terms[i] = fmt.Sprintf("COUNT(c%d) * 8", i)
		} else {
			terms[i] = fmt.Sprintf("COALESCE(SUM(LENGTH(c%d)), 0)", i)
		}
	}

	var total int64
	query := fmt.Sprintf("SELECT CAST(%s AS BIGINT) FROM rows", strings.Join(terms, " + "))
	if err := rs.db.QueryRow(query).Scan(&total); err != nil {
		return 0, fmt.Errorf("estimate size: %w", err)
	}
	return total, nil
}

// DuplicateRowCount returns how many rows are exact duplicates of an
// earlier row.
func (rs *RowStore) DuplicateRowCount() (int, error) {
	if len(rs.schema.Columns) == 0 || rs.rowCount == 0 {
		return 0, nil
	}

	colRefs := make([]string, len(rs.schema.Columns))
	for i := range rs.schema.Columns {
		colRefs[i] = fmt.Sprintf("c%d", i)
	}

	var distinct int
	query := fmt.Sprintf("SELECT COUNT(*) FROM (SELECT DISTINCT %s FROM rows)", strings.Join(colRefs, ", "))
	if err := rs.db.QueryRow(query).Scan(&distinct); err != nil {
		return 0, fmt.Errorf("count distinct rows: %w", err)
	}

	return rs.rowCount - distinct, nil
}

// Close closes the database and removes the backing file.
func (rs *RowStore) Close() error {
	if rs.db != nil {
		rs.db.Close()
		rs.db = nil
	}
	if rs.dbPath != "" {
		os.Remove(rs.dbPath)
		os.Remove(rs.dbPath + ".wal")
	}
	return nil
}
