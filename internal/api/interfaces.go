// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/data-studio/backend/internal/dataset"
	"github.com/data-studio/backend/internal/models"
)

// DatasetHandler handles dataset ingestion and access operations
type DatasetHandler interface {
	HandleUploadDataset(c echo.Context) error
	HandleUploadDatasetBinary(c echo.Context) error
	HandleTextDataset(c echo.Context) error
	HandleRecentDatasets(c echo.Context) error
	HandleGetDataset(c echo.Context) error
	HandleDeleteDataset(c echo.Context) error
	HandleDatasetKeepAlive(c echo.Context) error
	HandleDatasetProgressStream(c echo.Context) error
	HandleGetSchema(c echo.Context) error
	HandleGetRows(c echo.Context) error
	HandleGetRowsMsgpack(c echo.Context) error
}

// InsightHandler handles AI analysis operations
type InsightHandler interface {
	HandleGetInsights(c echo.Context) error
	HandleSuggestChart(c echo.Context) error
	HandleGetProfile(c echo.Context) error
}

// ChartHandler handles chart rendering operations
type ChartHandler interface {
	HandleCreateChart(c echo.Context) error
	HandleGetChartImage(c echo.Context) error
	CleanupOldCharts(maxAge time.Duration) int
}

// AnimationHandler handles animation job operations
type AnimationHandler interface {
	HandleCreateAnimation(c echo.Context) error
	HandleAnimationStatus(c echo.Context) error
	HandleAnimationProgressStream(c echo.Context) error
	HandleAnimationVideo(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for dataset session management.
// This allows mocking in tests.
type SessionManager interface {
	StartFileSession(fileID, filePath, name string) (*models.DatasetSession, error)
	StartTableSession(name, source string, table *models.Table) (*models.DatasetSession, error)
	GetSession(id string) (*models.DatasetSession, bool)
	TouchSession(id string) bool
	DeleteSession(id string) bool
	GetSchema(id string) (*models.Schema, bool)
	GetRows(ctx context.Context, id string, page, pageSize int) ([][]interface{}, int, bool)
	SampleRows(id string) ([][]string, bool)
	StoreFor(id string) (*dataset.RowStore, bool)
	Insights(ctx context.Context, id string, refresh bool) (*models.InsightReport, error)
}
