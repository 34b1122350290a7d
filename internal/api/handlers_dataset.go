// handlers_dataset.go - Dataset ingestion and access handlers
package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/data-studio/backend/internal/ai"
	"github.com/data-studio/backend/internal/models"
	"github.com/data-studio/backend/internal/storage"
)

// DatasetHandlerImpl implements the DatasetHandler interface
type DatasetHandlerImpl struct {
	store        storage.Store
	sessionMgr   SessionManager
	analyst      ai.Service // nil when no provider is configured
	allowedTypes []string
}

// NewDatasetHandler creates a new dataset handler instance
func NewDatasetHandler(store storage.Store, sessionMgr SessionManager, analyst ai.Service, allowedTypes string) DatasetHandler {
	var exts []string
	for _, ext := range strings.Split(allowedTypes, ",") {
		ext = strings.TrimSpace(strings.ToLower(ext))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	return &DatasetHandlerImpl{
		store:        store,
		sessionMgr:   sessionMgr,
		analyst:      analyst,
		allowedTypes: exts,
	}
}

// HandleUploadDataset accepts a file as base64 JSON, saves it and starts
// an ingest session
func (h *DatasetHandlerImpl) HandleUploadDataset(c echo.Context) error {
	var req uploadDatasetRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	if err := h.checkFileType(req.Name); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	info, err := h.store.SaveBytes(req.Name, decoded)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	return h.startFileSession(c, info)
}

// HandleUploadDatasetBinary accepts a raw multipart/form-data upload
func (h *DatasetHandlerImpl) HandleUploadDatasetBinary(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	if err := h.checkFileType(file.Filename); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	return h.startFileSession(c, info)
}

func (h *DatasetHandlerImpl) startFileSession(c echo.Context, info *models.FileInfo) error {
	path, err := h.store.GetFilePath(info.ID)
	if err != nil {
		return NewInternalError("failed to get file path", err)
	}

	sess, err := h.sessionMgr.StartFileSession(info.ID, path, info.Name)
	if err != nil {
		return NewInternalError("failed to start session", err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleTextDataset extracts a table from free text via the AI provider
// and starts an ingest session for it
func (h *DatasetHandlerImpl) HandleTextDataset(c echo.Context) error {
	if h.analyst == nil {
		return NewServiceUnavailableError("AI provider not configured")
	}

	var req textDatasetRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return NewValidationError("text")
	}

	name := req.Name
	if name == "" {
		name = "Pasted text"
	}

	table, err := h.analyst.InferTable(c.Request().Context(), req.Text)
	if err != nil {
		return NewAIError("failed to extract a table from the text", err)
	}

	sess, err := h.sessionMgr.StartTableSession(name, "text", table)
	if err != nil {
		return NewBadRequestError("failed to start session", err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleRecentDatasets returns recently uploaded dataset files
func (h *DatasetHandlerImpl) HandleRecentDatasets(c echo.Context) error {
	files, err := h.store.List(20)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetDataset returns the current status of a dataset session
func (h *DatasetHandlerImpl) HandleGetDataset(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleDeleteDataset removes a dataset session and its uploaded file
func (h *DatasetHandlerImpl) HandleDeleteDataset(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}

	fileID := sess.FileID
	h.sessionMgr.DeleteSession(id)
	if fileID != "" {
		h.store.Delete(fileID)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleDatasetKeepAlive extends session lifetime for active viewing
func (h *DatasetHandlerImpl) HandleDatasetKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("dataset", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleDatasetProgressStream streams ingest progress via SSE
func (h *DatasetHandlerImpl) HandleDatasetProgressStream(c echo.Context) error {
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

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		sendSSEError(c, "dataset not found")
		return nil
	}

	sendSSEData(c, sess)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				sendSSEError(c, "dataset not found")
				return nil
			}

			sendSSEData(c, sess)

			if sess.Status == models.SessionStatusReady ||
				sess.Status == models.SessionStatusError {
				return nil
			}

		case <-timeout.C:
			sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleGetSchema returns the inferred schema of a dataset
func (h *DatasetHandlerImpl) HandleGetSchema(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	schema, ok := h.sessionMgr.GetSchema(id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}

	return c.JSON(http.StatusOK, schema)
}

// HandleGetRows returns paginated dataset rows
func (h *DatasetHandlerImpl) HandleGetRows(c echo.Context) error {
	payload, err := h.rowsPayload(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payload)
}

// HandleGetRowsMsgpack returns paginated rows in MessagePack format
func (h *DatasetHandlerImpl) HandleGetRowsMsgpack(c echo.Context) error {
	payload, err := h.rowsPayload(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(payload)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *DatasetHandlerImpl) rowsPayload(c echo.Context) (map[string]interface{}, error) {
	id := c.Param("id")
	if id == "" {
		return nil, NewValidationError("id")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	schema, ok := h.sessionMgr.GetSchema(id)
	if !ok {
		return nil, NewNotFoundError("dataset", id)
	}

	rows, total, ok := h.sessionMgr.GetRows(c.Request().Context(), id, page, pageSize)
	if !ok {
		return nil, NewConflictError("dataset is not ready")
	}

	return map[string]interface{}{
		"columns":  schema.ColumnNames(),
		"rows":     rows,
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	}, nil
}

func (h *DatasetHandlerImpl) checkFileType(name string) error {
	if len(h.allowedTypes) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range h.allowedTypes {
		if ext == allowed {
			return nil
		}
	}
	return NewBadRequestError(fmt.Sprintf("unsupported file type: %s", ext), nil)
}

// Request/Response types

type uploadDatasetRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadDatasetRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}

type textDatasetRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// SSE helpers shared by the dataset and animation handlers

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func sendSSEError(c echo.Context, message string) {
	sendSSEData(c, map[string]string{"error": message})
}
