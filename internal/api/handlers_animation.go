// handlers_animation.go - Animation job handlers
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/data-studio/backend/internal/animation"
	"github.com/data-studio/backend/internal/chart"
	"github.com/data-studio/backend/internal/models"
	"github.com/data-studio/backend/internal/storage"
)

// AnimationHandlerImpl implements the AnimationHandler interface
type AnimationHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
	animMgr    *animation.Manager
}

// NewAnimationHandler creates a new animation handler instance
func NewAnimationHandler(store storage.Store, sessionMgr SessionManager, animMgr *animation.Manager) AnimationHandler {
	return &AnimationHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
		animMgr:    animMgr,
	}
}

// HandleCreateAnimation starts a background animation job for a chart
func (h *AnimationHandlerImpl) HandleCreateAnimation(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req createAnimationRequest
	if err := c.Bind(&req); err != nil {
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

	spec, err := chart.ValidateSpec(schema, req.ChartSpec)
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

	job := h.animMgr.Start(id, data, req.DurationSeconds, req.FPS)

	return c.JSON(http.StatusAccepted, job)
}

// HandleAnimationStatus returns the status of an animation job
func (h *AnimationHandlerImpl) HandleAnimationStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	job, ok := h.animMgr.GetJob(id)
	if !ok {
		return NewNotFoundError("animation", id)
	}

	return c.JSON(http.StatusOK, job)
}

// HandleAnimationProgressStream streams animation job progress via SSE
func (h *AnimationHandlerImpl) HandleAnimationProgressStream(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	job, ok := h.animMgr.GetJob(id)
	if !ok {
		sendSSEError(c, "animation not found")
		return nil
	}

	sendSSEData(c, job)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(10 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			job, ok := h.animMgr.GetJob(id)
			if !ok {
				sendSSEError(c, "animation not found")
				return nil
			}

			sendSSEData(c, job)

			if job.Status == animation.JobDone || job.Status == animation.JobError {
				return nil
			}

		case <-timeout.C:
			sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleAnimationVideo serves the finished video of an animation job
func (h *AnimationHandlerImpl) HandleAnimationVideo(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	job, ok := h.animMgr.GetJob(id)
	if !ok {
		return NewNotFoundError("animation", id)
	}

	if job.Status == animation.JobError {
		return NewConflictError("animation failed: " + job.Error)
	}
	if job.Status != animation.JobDone {
		return NewConflictError("animation is not finished")
	}

	reader, err := h.store.Open(job.VideoFileID)
	if err != nil {
		return NewNotFoundError("video", id)
	}
	defer reader.Close()

	contentType := job.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="animation_%.8s.%s"`, job.ID, job.Format))

	return c.Stream(http.StatusOK, contentType, reader)
}

// Request types

type createAnimationRequest struct {
	models.ChartSpec
	DurationSeconds int `json:"durationSeconds"`
	FPS             int `json:"fps"`
}
