// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/data-studio/backend/internal/ai"
	"github.com/data-studio/backend/internal/animation"
	"github.com/data-studio/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store             storage.Store
	SessionMgr        SessionManager
	AnimationMgr      *animation.Manager
	Analyst           ai.Service // nil when no provider is configured
	AllowedFileTypes  string
	AllowFileDeletion bool
	Version           string
	AIProviderName    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Dataset   DatasetHandler
	Insight   InsightHandler
	Chart     ChartHandler
	Animation AnimationHandler
	Jobs      *WebSocketHandler

	allowFileDeletion bool
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:            NewHealthHandler(deps.Version, deps.AIProviderName),
		Dataset:           NewDatasetHandler(deps.Store, deps.SessionMgr, deps.Analyst, deps.AllowedFileTypes),
		Insight:           NewInsightHandler(deps.SessionMgr, deps.Analyst),
		Chart:             NewChartHandler(deps.Store, deps.SessionMgr),
		Animation:         NewAnimationHandler(deps.Store, deps.SessionMgr, deps.AnimationMgr),
		Jobs:              NewWebSocketHandler(deps.AnimationMgr),
		allowFileDeletion: deps.AllowFileDeletion,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", h.Health.HandleHealth)

	// WebSocket job progress
	apiGroup.GET("/ws/jobs", h.Jobs.HandleJobsSocket)

	// Dataset ingestion and access
	apiGroup.POST("/datasets/upload", h.Dataset.HandleUploadDataset)
	apiGroup.POST("/datasets/upload/binary", h.Dataset.HandleUploadDatasetBinary)
	apiGroup.POST("/datasets/text", h.Dataset.HandleTextDataset)
	apiGroup.GET("/datasets/recent", h.Dataset.HandleRecentDatasets)
	apiGroup.GET("/datasets/:id", h.Dataset.HandleGetDataset)
	apiGroup.POST("/datasets/:id/keepalive", h.Dataset.HandleDatasetKeepAlive)
	apiGroup.GET("/datasets/:id/progress", h.Dataset.HandleDatasetProgressStream)
	apiGroup.GET("/datasets/:id/schema", h.Dataset.HandleGetSchema)
	apiGroup.GET("/datasets/:id/rows", h.Dataset.HandleGetRows)
	apiGroup.GET("/datasets/:id/rows/msgpack", h.Dataset.HandleGetRowsMsgpack)

	if h.allowFileDeletion {
		apiGroup.DELETE("/datasets/:id", h.Dataset.HandleDeleteDataset)
	}

	// AI analysis and profiling
	apiGroup.GET("/datasets/:id/insights", h.Insight.HandleGetInsights)
	apiGroup.POST("/datasets/:id/charts/suggest", h.Insight.HandleSuggestChart)
	apiGroup.GET("/datasets/:id/profile", h.Insight.HandleGetProfile)

	// Charts
	apiGroup.POST("/datasets/:id/charts", h.Chart.HandleCreateChart)
	apiGroup.GET("/charts/:id", h.Chart.HandleGetChartImage)

	// Animations
	apiGroup.POST("/datasets/:id/animations", h.Animation.HandleCreateAnimation)
	apiGroup.GET("/animations/:id/status", h.Animation.HandleAnimationStatus)
	apiGroup.GET("/animations/:id/progress", h.Animation.HandleAnimationProgressStream)
	apiGroup.GET("/animations/:id/video", h.Animation.HandleAnimationVideo)
}
