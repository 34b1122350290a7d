package models

// ColumnType classifies a dataset column for chart compatibility and storage.
type ColumnType string

const (
	ColumnTypeString  ColumnType = "string"
	ColumnTypeNumeric ColumnType = "numeric"
	ColumnTypeBool    ColumnType = "bool"
	ColumnTypeDate    ColumnType = "date"
)

// Column describes a single dataset column.
type Column struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	SampleValues []string   `json:"sampleValues,omitempty"`
	NullCount    int        `json:"nullCount,omitempty"`
	DistinctHint string     `json:"distinctHint,omitempty"` // "low", "medium", "high"
}

// Schema is the inferred shape of a dataset.
type Schema struct {
	Columns  []Column `json:"columns"`
	RowCount int      `json:"rowCount"`
}

// NumericColumns returns the names of all numeric columns.
func (s *Schema) NumericColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Type == ColumnTypeNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// CategoricalColumns returns the names of string and bool columns.
func (s *Schema) CategoricalColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Type == ColumnTypeString || c.Type == ColumnTypeBool {
			out = append(out, c.Name)
		}
	}
	return out
}

// DateColumns returns the names of date columns.
func (s *Schema) DateColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Type == ColumnTypeDate {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column returns the column with the given name, if present.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns all column names in order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Table is an in-memory tabular payload: the parsed form of a CSV/XLSX
// upload or an AI-inferred table, before rows are written to the row store.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// IsEmpty reports whether the table has no usable data.
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Columns) == 0 || len(t.Rows) == 0
}
