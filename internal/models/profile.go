package models

// ValueCount pairs a column value with its frequency.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// NumericStats holds statistics computed for a numeric column.
type NumericStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"stddev"`
	Sum    float64 `json:"sum"`
}

// ColumnProfile is the statistical summary of one column.
type ColumnProfile struct {
	Name          string        `json:"name"`
	Type          ColumnType    `json:"type"`
	Count         int           `json:"count"`
	NullCount     int           `json:"nullCount"`
	DistinctCount int           `json:"distinctCount"`
	Numeric       *NumericStats `json:"numeric,omitempty"`
	TopValues     []ValueCount  `json:"topValues,omitempty"`
}

// ProfileReport is the automated statistical summary of a dataset.
type ProfileReport struct {
	DatasetID      string          `json:"datasetId"`
	Title          string          `json:"title"`
	RowCount       int             `json:"rowCount"`
	ColumnCount    int             `json:"columnCount"`
	DuplicateRows  int             `json:"duplicateRows"`
	EstimatedBytes int64           `json:"estimatedBytes"`
	Columns        []ColumnProfile `json:"columns"`
	GeneratedAt    string          `json:"generatedAt"`
}
