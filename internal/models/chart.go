package models

import "time"

// ChartType identifies a supported visualization type.
type ChartType string

const (
	ChartTypeBar        ChartType = "bar"
	ChartTypeStackedBar ChartType = "stacked_bar"
	ChartTypeGroupedBar ChartType = "grouped_bar"
	ChartTypeLine       ChartType = "line"
	ChartTypeScatter    ChartType = "scatter"
	ChartTypePie        ChartType = "pie"
)

// ChartTypes lists every supported chart type.
var ChartTypes = []ChartType{
	ChartTypeBar, ChartTypeStackedBar, ChartTypeGroupedBar,
	ChartTypeLine, ChartTypeScatter, ChartTypePie,
}

// ValidChartType reports whether t is a supported chart type.
func ValidChartType(t ChartType) bool {
	for _, ct := range ChartTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// ChartSpec is a complete chart request: type, column mapping, styling.
// X/Y drive bar, line and scatter charts. Labels/Values drive pie charts.
// SeriesColumns drive stacked and grouped bars (one series per column).
type ChartSpec struct {
	Type          ChartType `json:"type"`
	Title         string    `json:"title"`
	X             string    `json:"x,omitempty"`
	Y             string    `json:"y,omitempty"`
	Labels        string    `json:"labels,omitempty"`
	Values        string    `json:"values,omitempty"`
	SeriesColumns []string  `json:"seriesColumns,omitempty"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
}

// ChartArtifact is a rendered chart stored on disk.
type ChartArtifact struct {
	ID        string    `json:"id"`
	DatasetID string    `json:"datasetId"`
	Spec      ChartSpec `json:"spec"`
	FileID    string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
