package models

// KeyInsight is a single headline observation about the dataset.
type KeyInsight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Importance  string `json:"importance"`
}

// Trend is a pattern the model identified in the data.
type Trend struct {
	Pattern     string `json:"pattern"`
	Explanation string `json:"explanation"`
}

// VizSuggestion recommends a chart type for the dataset.
type VizSuggestion struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// InsightReport is the structured result of AI analysis of a dataset.
type InsightReport struct {
	KeyInsights              []KeyInsight    `json:"key_insights"`
	Trends                   []Trend         `json:"trends"`
	VisualizationSuggestions []VizSuggestion `json:"visualization_suggestions"`
}

// IsEmpty reports whether the report carries no content at all.
func (r *InsightReport) IsEmpty() bool {
	return r == nil ||
		(len(r.KeyInsights) == 0 && len(r.Trends) == 0 && len(r.VisualizationSuggestions) == 0)
}

// ChartParams is the AI-suggested column mapping for a chart type.
type ChartParams struct {
	X     string `json:"x"`
	Y     string `json:"y"`
	Title string `json:"title"`
}
