package testutil

import (
	"context"
	"fmt"

	"github.com/data-studio/backend/internal/models"
)

// MockAnalyst is a configurable ai.Service for tests.
type MockAnalyst struct {
	InsightsFn func(ctx context.Context, schema *models.Schema, sampleRows [][]string) (*models.InsightReport, error)
	SuggestFn  func(ctx context.Context, schema *models.Schema, chartType models.ChartType) (*models.ChartParams, error)
	InferFn    func(ctx context.Context, text string) (*models.Table, error)
}

func (m *MockAnalyst) GenerateInsights(ctx context.Context, schema *models.Schema, sampleRows [][]string) (*models.InsightReport, error) {
	if m.InsightsFn != nil {
		return m.InsightsFn(ctx, schema, sampleRows)
	}
	return &models.InsightReport{
		KeyInsights: []models.KeyInsight{
			{Title: "Test insight", Description: "desc", Importance: "high"},
		},
	}, nil
}

func (m *MockAnalyst) SuggestChart(ctx context.Context, schema *models.Schema, chartType models.ChartType) (*models.ChartParams, error) {
	if m.SuggestFn != nil {
		return m.SuggestFn(ctx, schema, chartType)
	}
	if len(schema.Columns) < 2 {
		return nil, fmt.Errorf("not enough columns")
	}
	return &models.ChartParams{
		X:     schema.Columns[0].Name,
		Y:     schema.Columns[1].Name,
		Title: "Suggested chart",
	}, nil
}

func (m *MockAnalyst) InferTable(ctx context.Context, text string) (*models.Table, error) {
	if m.InferFn != nil {
		return m.InferFn(ctx, text)
	}
	return &models.Table{
		Columns: []string{"month", "sales"},
		Rows:    [][]string{{"Jan", "100"}, {"Feb", "120"}},
	}, nil
}
