// handlers_insight.go - AI analysis and profiling handlers
package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/data-studio/backend/internal/ai"
	"github.com/data-studio/backend/internal/dataset"
	"github.com/data-studio/backend/internal/models"
	"github.com/data-studio/backend/internal/session"
)

// InsightHandlerImpl implements the InsightHandler interface
type InsightHandlerImpl struct {
	sessionMgr SessionManager
	analyst    ai.Service // nil when no provider is configured
}

// NewInsightHandler creates a new insight handler instance
func NewInsightHandler(sessionMgr SessionManager, analyst ai.Service) InsightHandler {
	return &InsightHandlerImpl{
		sessionMgr: sessionMgr,
		analyst:    analyst,
	}
}

// HandleGetInsights returns the AI insight report for a dataset.
// Pass ?refresh=true to recompute instead of using the cached report.
func (h *InsightHandlerImpl) HandleGetInsights(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if _, ok := h.sessionMgr.GetSession(id); !ok {
		return NewNotFoundError("dataset", id)
	}
	h.sessionMgr.TouchSession(id)

	refresh := c.QueryParam("refresh") == "true"
	insights, err := h.sessionMgr.Insights(c.Request().Context(), id, refresh)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotReady):
			return NewConflictError("dataset is not ready")
		case errors.Is(err, session.ErrNoProvider):
			return NewServiceUnavailableError("AI provider not configured")
		default:
			return NewAIError("insight generation failed", err)
		}
	}

	return c.JSON(http.StatusOK, insights)
}

// HandleSuggestChart asks the AI provider for column mappings for a chart type
func (h *InsightHandlerImpl) HandleSuggestChart(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if h.analyst == nil {
		return NewServiceUnavailableError("AI provider not configured")
	}

	var req suggestChartRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	chartType := models.ChartType(req.Type)
	if !models.ValidChartType(chartType) {
		return NewBadRequestError("unsupported chart type: "+req.Type, nil)
	}

	schema, ok := h.sessionMgr.GetSchema(id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}
	h.sessionMgr.TouchSession(id)

	params, err := h.analyst.SuggestChart(c.Request().Context(), schema, chartType)
	if err != nil {
		return NewAIError("chart suggestion failed", err)
	}

	return c.JSON(http.StatusOK, suggestChartResponse{
		Type:       req.Type,
		Parameters: *params,
	})
}

// HandleGetProfile returns the statistical profile of a dataset.
// Pass ?format=html for a standalone HTML report.
func (h *InsightHandlerImpl) HandleGetProfile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}
	h.sessionMgr.TouchSession(id)

	store, ok := h.sessionMgr.StoreFor(id)
	if !ok {
		return NewConflictError("dataset is not ready")
	}

	report, err := dataset.BuildProfile(store, id, sess.Name)
	if err != nil {
		return NewInternalError("failed to build profile", err)
	}

	if c.QueryParam("format") == "html" {
		var buf bytes.Buffer
		if err := profileTemplate.Execute(&buf, report); err != nil {
			return NewInternalError("failed to render profile", err)
		}
		return c.HTMLBlob(http.StatusOK, buf.Bytes())
	}

	return c.JSON(http.StatusOK, report)
}

// Request/Response types

type suggestChartRequest struct {
	Type string `json:"type"`
}

type suggestChartResponse struct {
	Type       string             `json:"type"`
	Parameters models.ChartParams `json:"parameters"`
}
