// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version    string
	aiProvider string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, aiProvider string) HealthHandler {
	return &HealthHandlerImpl{
		version:    version,
		aiProvider: aiProvider,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	ai := h.aiProvider
	if ai == "" {
		ai = "none"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"ai":      ai,
	})
}
