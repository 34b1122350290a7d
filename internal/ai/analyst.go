package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/data-studio/backend/internal/models"
)

// Temperatures mirror the upstream application: analysis runs cold,
// table inference slightly warmer.
const (
	temperatureAnalysis  = 0.2
	temperatureInference = 0.3
)

// maxInferredCells bounds how large an AI-inferred table may be.
const maxInferredCells = 10000

// Service is the typed AI surface the rest of the application uses.
type Service interface {
	GenerateInsights(ctx context.Context, schema *models.Schema, sampleRows [][]string) (*models.InsightReport, error)
	SuggestChart(ctx context.Context, schema *models.Schema, chartType models.ChartType) (*models.ChartParams, error)
	InferTable(ctx context.Context, text string) (*models.Table, error)
}

// Analyst implements Service on top of a Provider, with bounded retry on
// rate limits and server errors.
type Analyst struct {
	provider Provider
	retries  int
}

// NewAnalyst creates an Analyst.
func NewAnalyst(provider Provider, retries int) *Analyst {
	if retries < 0 {
		retries = 0
	}
	return &Analyst{provider: provider, retries: retries}
}

// GenerateInsights asks the model for structured insights about a dataset.
func (a *Analyst) GenerateInsights(ctx context.Context, schema *models.Schema, sampleRows [][]string) (*models.InsightReport, error) {
	prompt := BuildInsightPrompt(schema, sampleRows)

	raw, err := a.complete(ctx, prompt, temperatureAnalysis)
	if err != nil {
		return nil, err
	}

	jsonStr, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("insight response: %w", err)
	}

	var report models.InsightReport
	if err := json.Unmarshal([]byte(jsonStr), &report); err != nil {
		return nil, fmt.Errorf("failed to parse insight response: %w", err)
	}
	if report.IsEmpty() {
		return nil, fmt.Errorf("insight response carried no insights")
	}

	return &report, nil
}

// SuggestChart asks the model for column mappings for a chart type and
// validates them against the schema.
func (a *Analyst) SuggestChart(ctx context.Context, schema *models.Schema, chartType models.ChartType) (*models.ChartParams, error) {
	prompt := BuildChartSuggestionPrompt(schema, chartType)

	raw, err := a.complete(ctx, prompt, temperatureAnalysis)
	if err != nil {
		return nil, err
	}

	jsonStr, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("suggestion response: %w", err)
	}

	var wrapper struct {
		Parameters models.ChartParams `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion response: %w", err)
	}

	params := wrapper.Parameters
	if params.X == "" && params.Y == "" {
		return nil, fmt.Errorf("suggestion response missing parameters")
	}
	if params.X != "" {
		if _, ok := schema.Column(params.X); !ok {
			return nil, fmt.Errorf("suggested x column %q is not in the dataset", params.X)
		}
	}
	if params.Y != "" {
		if _, ok := schema.Column(params.Y); !ok {
			return nil, fmt.Errorf("suggested y column %q is not in the dataset", params.Y)
		}
	}

	return &params, nil
}

// InferTable extracts a structured table from free text.
func (a *Analyst) InferTable(ctx context.Context, text string) (*models.Table, error) {
	prompt := BuildTableInferencePrompt(text)

	raw, err := a.complete(ctx, prompt, temperatureInference)
	if err != nil {
		return nil, err
	}

	jsonStr, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("inference response: %w", err)
	}

	var table models.Table
	if err := json.Unmarshal([]byte(jsonStr), &table); err != nil {
		// Older prompt variants used "data" for the row array
		var legacy struct {
			Columns []string   `json:"columns"`
			Data    [][]string `json:"data"`
		}
		if err2 := json.Unmarshal([]byte(jsonStr), &legacy); err2 != nil || len(legacy.Columns) == 0 {
			return nil, fmt.Errorf("failed to parse inference response: %w", err)
		}
		table = models.Table{Columns: legacy.Columns, Rows: legacy.Data}
	}

	if table.IsEmpty() {
		return nil, fmt.Errorf("model response missing columns or rows")
	}
	if len(table.Columns)*len(table.Rows) > maxInferredCells {
		return nil, fmt.Errorf("inferred table is too large (%d columns x %d rows)",
			len(table.Columns), len(table.Rows))
	}

	return &table, nil
}

func (a *Analyst) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			fmt.Printf("[AI] Retry %d/%d after error: %v\n", attempt, a.retries, lastErr)
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		raw, err := a.provider.Complete(ctx, prompt, temperature)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var provErr *ProviderError
		if !errors.As(err, &provErr) || !provErr.Retryable() {
			return "", err
		}
	}

	return "", lastErr
}
