package models

import "time"

// FileInfo represents metadata about a stored file: an uploaded dataset
// source or a generated artifact (chart PNG, animation video).
type FileInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	Kind        string    `json:"kind"` // "upload" or "artifact"
	UploadedAt  time.Time `json:"uploadedAt"`
}
