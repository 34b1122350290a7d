// handlers_chart.go - Chart rendering handlers
package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/data-studio/backend/internal/chart"
	"github.com/data-studio/backend/internal/models"
	"github.com/data-studio/backend/internal/storage"
)

// ChartHandlerImpl implements the ChartHandler interface
type ChartHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager

	mu     sync.RWMutex
	charts map[string]models.ChartArtifact
}

// NewChartHandler creates a new chart handler instance
func NewChartHandler(store storage.Store, sessionMgr SessionManager) ChartHandler {
	return &ChartHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
		charts:     make(map[string]models.ChartArtifact),
	}
}

// HandleCreateChart renders a chart for a dataset and stores it as a PNG
// artifact
func (h *ChartHandlerImpl) HandleCreateChart(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var spec models.ChartSpec
	if err := c.Bind(&spec); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}
	if sess.Status != models.SessionStatusReady {
		return NewConflictError("dataset is not ready")
	}
	h.sessionMgr.TouchSession(id)

	schema, ok := h.sessionMgr.GetSchema(id)
	if !ok {
		return NewConflictError("dataset is not ready")
	}

	spec, err := chart.ValidateSpec(schema, spec)
	if err != nil {
		return NewBadRequestError(err.Error(), nil)
	}

	store, ok := h.sessionMgr.StoreFor(id)
	if !ok {
		return NewConflictError("dataset is not ready")
	}

	data, err := chart.BuildData(store, spec)
	if err != nil {
		return NewBadRequestError(err.Error(), nil)
	}

	png, err := chart.Render(data, chart.RenderOptions{})
	if err != nil {
		return NewInternalError("failed to render chart", err)
	}

	chartID := uuid.New().String()
	info, err := h.store.SaveArtifact(fmt.Sprintf("chart_%.8s.png", chartID), "image/png", png)
	if err != nil {
		return NewInternalError("failed to store chart", err)
	}

	artifact := models.ChartArtifact{
		ID:        chartID,
		DatasetID: id,
		Spec:      spec,
		FileID:    info.ID,
		CreatedAt: time.Now(),
	}

	h.mu.Lock()
	h.charts[chartID] = artifact
	h.mu.Unlock()

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":        chartID,
		"datasetId": id,
		"spec":      spec,
		"url":       "/api/charts/" + chartID,
	})
}

// CleanupOldCharts drops chart artifacts older than maxAge and deletes
// their PNGs from storage. Returns how many were removed.
func (h *ChartHandlerImpl) CleanupOldCharts(maxAge time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for id, artifact := range h.charts {
		if artifact.CreatedAt.After(cutoff) {
			continue
		}
		h.store.Delete(artifact.FileID)
		delete(h.charts, id)
		removed++
	}

	if removed > 0 {
		fmt.Printf("[Chart] Cleaned up %d chart artifacts\n", removed)
	}
	return removed
}

// HandleGetChartImage serves a rendered chart PNG
func (h *ChartHandlerImpl) HandleGetChartImage(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	h.mu.RLock()
	artifact, ok := h.charts[id]
	h.mu.RUnlock()
	if !ok {
		return NewNotFoundError("chart", id)
	}

	path, err := h.store.GetFilePath(artifact.FileID)
	if err != nil {
		return NewNotFoundError("chart", id)
	}

	return c.File(path)
}
