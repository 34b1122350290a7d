package models

// SessionStatus represents the lifecycle state of a dataset session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusIngesting SessionStatus = "ingesting"
	SessionStatusAnalyzing SessionStatus = "analyzing"
	SessionStatusReady     SessionStatus = "ready"
	SessionStatusError     SessionStatus = "error"
)

// DatasetSession tracks one loaded dataset from ingestion through analysis.
type DatasetSession struct {
	ID               string        `json:"id"`
	FileID           string        `json:"fileId,omitempty"`
	Name             string        `json:"name"`
	Source           string        `json:"source"` // "csv", "xlsx", "text"
	Status           SessionStatus `json:"status"`
	Progress         float64       `json:"progress"` // 0-100
	RowCount         int           `json:"rowCount,omitempty"`
	ColumnCount      int           `json:"columnCount,omitempty"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	Schema           *Schema       `json:"schema,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
	Errors           []IngestError `json:"errors,omitempty"`
}

// IngestError records a row or stage failure during ingestion.
type IngestError struct {
	Row    int    `json:"row,omitempty"`
	Stage  string `json:"stage,omitempty"`
	Reason string `json:"reason"`
}

// NewDatasetSession creates a session in pending status.
func NewDatasetSession(id, name, source string) *DatasetSession {
	return &DatasetSession{
		ID:       id,
		Name:     name,
		Source:   source,
		Status:   SessionStatusPending,
		Progress: 0,
		Errors:   make([]IngestError, 0),
	}
}
