package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/data-studio/backend/internal/models"
)

// insightSampleRows is how many rows of data the insight prompt carries.
const insightSampleRows = 5

// maxInferenceChars bounds the free text sent for table inference.
const maxInferenceChars = 4000

// BuildInsightPrompt builds the dataset-analysis prompt. The model sees
// column metadata plus the first few rows, never the full dataset.
func BuildInsightPrompt(schema *models.Schema, sampleRows [][]string) string {
	if len(sampleRows) > insightSampleRows {
		sampleRows = sampleRows[:insightSampleRows]
	}

	sample := make([]map[string]string, 0, len(sampleRows))
	for _, row := range sampleRows {
		rec := make(map[string]string, len(schema.Columns))
		for i, col := range schema.Columns {
			if i < len(row) {
				rec[col.Name] = row[i]
			}
		}
		sample = append(sample, rec)
	}
	sampleJSON, _ := json.Marshal(sample)

	var b strings.Builder
	b.WriteString("Analyze this dataset and provide insights in JSON format:\n")
	b.WriteString(fmt.Sprintf("Columns: %s\n", describeColumns(schema)))
	b.WriteString(fmt.Sprintf("Row count: %d\n", schema.RowCount))
	b.WriteString(fmt.Sprintf("First %d rows: %s\n", len(sampleRows), string(sampleJSON)))
	b.WriteString(`
Respond strictly in this JSON format:
{
    "key_insights": [
        {
            "title": "Main observation",
            "description": "Detailed explanation",
            "importance": "Business impact"
        }
    ],
    "trends": [
        {
            "pattern": "Identified pattern",
            "explanation": "Pattern meaning"
        }
    ],
    "visualization_suggestions": [
        {
            "type": "Visualization type",
            "reason": "Why this visualization works"
        }
    ]
}
`)
	return b.String()
}

// BuildChartSuggestionPrompt asks the model for column mappings for a
// specific chart type.
func BuildChartSuggestionPrompt(schema *models.Schema, chartType models.ChartType) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant. Always respond with valid JSON format only.\n")
	b.WriteString(fmt.Sprintf("Suggest how to best create a %s visualization.\n", chartType))
	b.WriteString(fmt.Sprintf("Dataset columns: %s\n", describeColumns(schema)))
	b.WriteString(`Respond strictly in the following JSON format:
{
    "parameters": {
        "x": "column_name",
        "y": "column_name",
        "title": "Chart Title"
    }
}
`)
	return b.String()
}

// BuildTableInferencePrompt asks the model to extract structured tabular
// data from free text.
func BuildTableInferencePrompt(text string) string {
	if len(text) > maxInferenceChars {
		// Back off to a rune boundary so the prompt stays valid UTF-8
		cut := maxInferenceChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	var b strings.Builder
	b.WriteString("You are an AI assistant. Analyze the following text to extract structured data.\n")
	b.WriteString("Identify column names and corresponding rows of data.\n\n")
	b.WriteString("Input text:\n\"")
	b.WriteString(text)
	b.WriteString("\"\n\n")
	b.WriteString(`Respond strictly in this JSON format:
{
    "columns": ["Column1", "Column2"],
    "rows": [
        ["Row1Col1", "Row1Col2"],
        ["Row2Col1", "Row2Col2"]
    ]
}
`)
	return b.String()
}

func describeColumns(schema *models.Schema) string {
	parts := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.Type)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
