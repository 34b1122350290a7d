package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/data-studio/backend/internal/dataset"
	"github.com/data-studio/backend/internal/models"
	"github.com/data-studio/backend/internal/session"
	"github.com/data-studio/backend/internal/testutil"
)

// mockSessionMgr implements SessionManager over in-memory maps, with a real
// DuckDB row store behind ready sessions.
type mockSessionMgr struct {
	sessions map[string]*models.DatasetSession
	stores   map[string]*dataset.RowStore
	samples  map[string][][]string
	insights map[string]*models.InsightReport

	insightsErr   error
	startedTables []string
}

func newMockSessionMgr() *mockSessionMgr {
	return &mockSessionMgr{
		sessions: make(map[string]*models.DatasetSession),
		stores:   make(map[string]*dataset.RowStore),
		samples:  make(map[string][][]string),
		insights: make(map[string]*models.InsightReport),
	}
}

// addReadySession ingests csvData into a real row store under the given id.
func (m *mockSessionMgr) addReadySession(t *testing.T, id, csvData string) {
	t.Helper()

	table, _, err := dataset.ParseCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	schema := dataset.InferSchema(table)
	store, err := dataset.NewRowStore(t.TempDir(), id, schema)
	if err != nil {
		t.Fatalf("NewRowStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.InsertTable(table, nil); err != nil {
		t.Fatalf("InsertTable failed: %v", err)
	}

	sess := models.NewDatasetSession(id, "test.csv", "csv")
	sess.Status = models.SessionStatusReady
	sess.Progress = 100
	sess.Schema = schema
	sess.RowCount = store.Len()
	sess.ColumnCount = len(schema.Columns)

	m.sessions[id] = sess
	m.stores[id] = store
	m.samples[id] = table.Rows
}

func (m *mockSessionMgr) StartFileSession(fileID, filePath, name string) (*models.DatasetSession, error) {
	sess := models.NewDatasetSession("new-session", name, "csv")
	sess.FileID = fileID
	sess.Status = models.SessionStatusIngesting
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *mockSessionMgr) StartTableSession(name, source string, table *models.Table) (*models.DatasetSession, error) {
	m.startedTables = append(m.startedTables, name)
	sess := models.NewDatasetSession("text-session", name, source)
	sess.Status = models.SessionStatusIngesting
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *mockSessionMgr) GetSession(id string) (*models.DatasetSession, bool) {
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *mockSessionMgr) TouchSession(id string) bool {
	_, ok := m.sessions[id]
	return ok
}

func (m *mockSessionMgr) DeleteSession(id string) bool {
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *mockSessionMgr) GetSchema(id string) (*models.Schema, bool) {
	sess, ok := m.sessions[id]
	if !ok || sess.Schema == nil {
		return nil, false
	}
	return sess.Schema, true
}

func (m *mockSessionMgr) GetRows(ctx context.Context, id string, page, pageSize int) ([][]interface{}, int, bool) {
	store, ok := m.stores[id]
	if !ok {
		return nil, 0, false
	}
	rows, total, err := store.GetRows(ctx, page, pageSize)
	if err != nil {
		return nil, 0, false
	}
	return rows, total, true
}

func (m *mockSessionMgr) SampleRows(id string) ([][]string, bool) {
	rows, ok := m.samples[id]
	return rows, ok
}

func (m *mockSessionMgr) StoreFor(id string) (*dataset.RowStore, bool) {
	store, ok := m.stores[id]
	return store, ok
}

func (m *mockSessionMgr) Insights(ctx context.Context, id string, refresh bool) (*models.InsightReport, error) {
	if m.insightsErr != nil {
		return nil, m.insightsErr
	}
	report, ok := m.insights[id]
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	return report, nil
}

// Test helpers

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func assertAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %T (%v)", err, err)
	}
	if apiErr.Status != status {
		t.Errorf("Expected status %d, got %d", status, apiErr.Status)
	}
	if apiErr.Code != code {
		t.Errorf("Expected code %s, got %s", code, apiErr.Code)
	}
}

const testCSV = "region,sales\nnorth,1200\nsouth,950\neast,1800\n"

// Health

func TestHandleHealth(t *testing.T) {
	h := NewHealthHandler("1.2.3", "groq")
	c, rec := newContext(http.MethodGet, "/api/health", "")

	if err := h.HandleHealth(c); err != nil {
		t.Fatalf("HandleHealth failed: %v", err)
	}

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" || body["version"] != "1.2.3" || body["ai"] != "groq" {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestHandleHealthNoAI(t *testing.T) {
	h := NewHealthHandler("dev", "")
	c, rec := newContext(http.MethodGet, "/api/health", "")
	h.HandleHealth(c)

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["ai"] != "none" {
		t.Errorf("Expected ai none, got %v", body["ai"])
	}
}

// Error handler

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error", NewNotFoundError("dataset", "x"), 404, "NOT_FOUND"},
		{"echo error", echo.NewHTTPError(http.StatusTeapot, "short and stout"), 418, "HTTP_ERROR"},
		{"unknown error", fmt.Errorf("boom"), 500, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/", "")
			ErrorHandler(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var body map[string]interface{}
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body["code"] != tt.wantCode {
				t.Errorf("Expected code %s, got %v", tt.wantCode, body["code"])
			}
		})
	}
}

// Dataset handlers

func TestHandleUploadDataset(t *testing.T) {
	store := testutil.NewMockStore(t.TempDir())
	mgr := newMockSessionMgr()
	h := NewDatasetHandler(store, mgr, nil, ".csv,.txt,.xlsx")

	payload := fmt.Sprintf(`{"name": "data.csv", "data": "%s"}`,
		base64.StdEncoding.EncodeToString([]byte(testCSV)))
	c, rec := newContext(http.MethodPost, "/api/datasets/upload", payload)

	if err := h.HandleUploadDataset(c); err != nil {
		t.Fatalf("HandleUploadDataset failed: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", rec.Code)
	}

	var sess models.DatasetSession
	json.Unmarshal(rec.Body.Bytes(), &sess)
	if sess.Status != models.SessionStatusIngesting {
		t.Errorf("Expected ingesting status, got %s", sess.Status)
	}
	if sess.FileID == "" {
		t.Error("Expected a file id on the session")
	}
}

func TestHandleUploadDatasetValidation(t *testing.T) {
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), newMockSessionMgr(), nil, ".csv")

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing name", `{"data": "YQ=="}`, "VALIDATION_ERROR"},
		{"missing data", `{"name": "a.csv"}`, "VALIDATION_ERROR"},
		{"bad base64", `{"name": "a.csv", "data": "not-base64!!!"}`, "BAD_REQUEST"},
		{"bad extension", `{"name": "a.exe", "data": "YQ=="}`, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(http.MethodPost, "/api/datasets/upload", tt.body)
			err := h.HandleUploadDataset(c)
			assertAPIError(t, err, http.StatusBadRequest, tt.code)
		})
	}
}

func TestHandleUploadDatasetBinary(t *testing.T) {
	store := testutil.NewMockStore(t.TempDir())
	h := NewDatasetHandler(store, newMockSessionMgr(), nil, ".csv")

	var buf strings.Builder
	w := multipart.NewWriter(&buf)
	fw, _ := w.CreateFormFile("file", "data.csv")
	fw.Write([]byte(testCSV))
	w.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/upload/binary", strings.NewReader(buf.String()))
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleUploadDatasetBinary(c); err != nil {
		t.Fatalf("HandleUploadDatasetBinary failed: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", rec.Code)
	}
}

func TestHandleTextDataset(t *testing.T) {
	mgr := newMockSessionMgr()
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), mgr, &testutil.MockAnalyst{}, ".csv")

	c, rec := newContext(http.MethodPost, "/api/datasets/text",
		`{"name": "pasted", "text": "Jan sales 100, Feb 120"}`)

	if err := h.HandleTextDataset(c); err != nil {
		t.Fatalf("HandleTextDataset failed: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", rec.Code)
	}
	if len(mgr.startedTables) != 1 || mgr.startedTables[0] != "pasted" {
		t.Errorf("Expected table session started, got %v", mgr.startedTables)
	}
}

func TestHandleTextDatasetNoAnalyst(t *testing.T) {
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), newMockSessionMgr(), nil, ".csv")

	c, _ := newContext(http.MethodPost, "/api/datasets/text", `{"text": "anything"}`)
	err := h.HandleTextDataset(c)
	assertAPIError(t, err, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}

func TestHandleTextDatasetAIFailure(t *testing.T) {
	analyst := &testutil.MockAnalyst{
		InferFn: func(ctx context.Context, text string) (*models.Table, error) {
			return nil, fmt.Errorf("model refused")
		},
	}
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), newMockSessionMgr(), analyst, ".csv")

	c, _ := newContext(http.MethodPost, "/api/datasets/text", `{"text": "some text"}`)
	err := h.HandleTextDataset(c)
	assertAPIError(t, err, http.StatusBadGateway, "AI_ERROR")
}

func TestHandleTextDatasetEmptyText(t *testing.T) {
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), newMockSessionMgr(), &testutil.MockAnalyst{}, ".csv")

	c, _ := newContext(http.MethodPost, "/api/datasets/text", `{"text": "   "}`)
	err := h.HandleTextDataset(c)
	assertAPIError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestHandleGetDataset(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), mgr, nil, ".csv")

	c, rec := newContext(http.MethodGet, "/api/datasets/ds1", "")
	if err := h.HandleGetDataset(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleGetDataset failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodGet, "/api/datasets/nope", "")
	err := h.HandleGetDataset(withID(c, "nope"))
	assertAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestHandleDeleteDataset(t *testing.T) {
	store := testutil.NewMockStore(t.TempDir())
	info, _ := store.SaveBytes("data.csv", []byte(testCSV))

	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	mgr.sessions["ds1"].FileID = info.ID

	h := NewDatasetHandler(store, mgr, nil, ".csv")

	c, rec := newContext(http.MethodDelete, "/api/datasets/ds1", "")
	if err := h.HandleDeleteDataset(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleDeleteDataset failed: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if _, ok := mgr.sessions["ds1"]; ok {
		t.Error("Expected session removed")
	}
	if _, err := store.Get(info.ID); err == nil {
		t.Error("Expected uploaded file removed")
	}
}

func TestHandleDatasetKeepAlive(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), mgr, nil, ".csv")

	c, rec := newContext(http.MethodPost, "/api/datasets/ds1/keepalive", "")
	if err := h.HandleDatasetKeepAlive(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleDatasetKeepAlive failed: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodPost, "/api/datasets/nope/keepalive", "")
	err := h.HandleDatasetKeepAlive(withID(c, "nope"))
	assertAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestHandleDatasetProgressStream(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), mgr, nil, ".csv")

	c, rec := newContext(http.MethodGet, "/api/datasets/ds1/progress", "")
	if err := h.HandleDatasetProgressStream(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleDatasetProgressStream failed: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected SSE content type, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ready"`) {
		t.Errorf("Expected ready event in stream, got %q", rec.Body.String())
	}
}

func TestHandleGetSchema(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), mgr, nil, ".csv")

	c, rec := newContext(http.MethodGet, "/api/datasets/ds1/schema", "")
	if err := h.HandleGetSchema(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleGetSchema failed: %v", err)
	}

	var schema models.Schema
	json.Unmarshal(rec.Body.Bytes(), &schema)
	if len(schema.Columns) != 2 || schema.RowCount != 3 {
		t.Errorf("Unexpected schema: %+v", schema)
	}
}

func TestHandleGetRows(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), mgr, nil, ".csv")

	c, rec := newContext(http.MethodGet, "/api/datasets/ds1/rows?page=1&pageSize=2", "")
	if err := h.HandleGetRows(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleGetRows failed: %v", err)
	}

	var body struct {
		Columns  []string        `json:"columns"`
		Rows     [][]interface{} `json:"rows"`
		Page     int             `json:"page"`
		PageSize int             `json:"pageSize"`
		Total    int             `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 3 || len(body.Rows) != 2 {
		t.Errorf("Expected 2 of 3 rows, got %d of %d", len(body.Rows), body.Total)
	}
	if body.Columns[0] != "region" {
		t.Errorf("Unexpected columns: %v", body.Columns)
	}
}

func TestHandleGetRowsDefaults(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), mgr, nil, ".csv")

	// Out-of-range paging falls back to page 1, size 100
	c, rec := newContext(http.MethodGet, "/api/datasets/ds1/rows?page=-3&pageSize=99999", "")
	if err := h.HandleGetRows(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleGetRows failed: %v", err)
	}

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["page"].(float64) != 1 || body["pageSize"].(float64) != 100 {
		t.Errorf("Expected default paging, got page=%v pageSize=%v", body["page"], body["pageSize"])
	}
}

func TestHandleGetRowsNotReady(t *testing.T) {
	mgr := newMockSessionMgr()
	sess := models.NewDatasetSession("ds1", "pending.csv", "csv")
	sess.Status = models.SessionStatusIngesting
	sess.Schema = &models.Schema{Columns: []models.Column{{Name: "a", Type: models.ColumnTypeString}}}
	mgr.sessions["ds1"] = sess

	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), mgr, nil, ".csv")

	c, _ := newContext(http.MethodGet, "/api/datasets/ds1/rows", "")
	err := h.HandleGetRows(withID(c, "ds1"))
	assertAPIError(t, err, http.StatusConflict, "CONFLICT")
}

func TestHandleGetRowsMsgpack(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewDatasetHandler(testutil.NewMockStore(t.TempDir()), mgr, nil, ".csv")

	c, rec := newContext(http.MethodGet, "/api/datasets/ds1/rows/msgpack", "")
	if err := h.HandleGetRowsMsgpack(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleGetRowsMsgpack failed: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/msgpack" {
		t.Errorf("Expected msgpack content type, got %s", ct)
	}

	var body map[string]interface{}
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid msgpack payload: %v", err)
	}
	if body["total"] == nil {
		t.Error("Expected total in msgpack payload")
	}
}

func TestHandleRecentDatasets(t *testing.T) {
	store := testutil.NewMockStore(t.TempDir())
	store.SaveBytes("a.csv", []byte("x"))
	store.SaveBytes("b.csv", []byte("y"))

	h := NewDatasetHandler(store, newMockSessionMgr(), nil, ".csv")

	c, rec := newContext(http.MethodGet, "/api/datasets/recent", "")
	if err := h.HandleRecentDatasets(c); err != nil {
		t.Fatalf("HandleRecentDatasets failed: %v", err)
	}

	var files []models.FileInfo
	json.Unmarshal(rec.Body.Bytes(), &files)
	if len(files) != 2 {
		t.Errorf("Expected 2 files, got %d", len(files))
	}
}

// Insight handlers

func TestHandleGetInsights(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	mgr.insights["ds1"] = &models.InsightReport{
		KeyInsights: []models.KeyInsight{{Title: "North leads"}},
	}
	h := NewInsightHandler(mgr, nil)

	c, rec := newContext(http.MethodGet, "/api/datasets/ds1/insights", "")
	if err := h.HandleGetInsights(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleGetInsights failed: %v", err)
	}

	var report models.InsightReport
	json.Unmarshal(rec.Body.Bytes(), &report)
	if len(report.KeyInsights) != 1 || report.KeyInsights[0].Title != "North leads" {
		t.Errorf("Unexpected report: %+v", report)
	}
}

func TestHandleGetInsightsErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not ready", session.ErrNotReady, http.StatusConflict, "CONFLICT"},
		{"no provider", session.ErrNoProvider, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"provider failure", fmt.Errorf("model exploded"), http.StatusBadGateway, "AI_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := newMockSessionMgr()
			mgr.addReadySession(t, "ds1", testCSV)
			mgr.insightsErr = tt.err
			h := NewInsightHandler(mgr, nil)

			c, _ := newContext(http.MethodGet, "/api/datasets/ds1/insights", "")
			err := h.HandleGetInsights(withID(c, "ds1"))
			assertAPIError(t, err, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestHandleGetInsightsNotFound(t *testing.T) {
	h := NewInsightHandler(newMockSessionMgr(), nil)
	c, _ := newContext(http.MethodGet, "/api/datasets/nope/insights", "")
	err := h.HandleGetInsights(withID(c, "nope"))
	assertAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestHandleSuggestChart(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewInsightHandler(mgr, &testutil.MockAnalyst{})

	c, rec := newContext(http.MethodPost, "/api/datasets/ds1/charts/suggest", `{"type": "bar"}`)
	if err := h.HandleSuggestChart(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleSuggestChart failed: %v", err)
	}

	var body suggestChartResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Type != "bar" {
		t.Errorf("Expected bar, got %s", body.Type)
	}
	if body.Parameters.X != "region" || body.Parameters.Y != "sales" {
		t.Errorf("Unexpected parameters: %+v", body.Parameters)
	}
}

func TestHandleSuggestChartBadType(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewInsightHandler(mgr, &testutil.MockAnalyst{})

	c, _ := newContext(http.MethodPost, "/api/datasets/ds1/charts/suggest", `{"type": "radar"}`)
	err := h.HandleSuggestChart(withID(c, "ds1"))
	assertAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")
}

func TestHandleSuggestChartNoAnalyst(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewInsightHandler(mgr, nil)

	c, _ := newContext(http.MethodPost, "/api/datasets/ds1/charts/suggest", `{"type": "bar"}`)
	err := h.HandleSuggestChart(withID(c, "ds1"))
	assertAPIError(t, err, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}

func TestHandleGetProfile(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewInsightHandler(mgr, nil)

	c, rec := newContext(http.MethodGet, "/api/datasets/ds1/profile", "")
	if err := h.HandleGetProfile(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleGetProfile failed: %v", err)
	}

	var report models.ProfileReport
	json.Unmarshal(rec.Body.Bytes(), &report)
	if report.RowCount != 3 || report.ColumnCount != 2 {
		t.Errorf("Unexpected profile: %dx%d", report.RowCount, report.ColumnCount)
	}
	if len(report.Columns) != 2 {
		t.Errorf("Expected 2 column profiles, got %d", len(report.Columns))
	}
}

func TestHandleGetProfileHTML(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewInsightHandler(mgr, nil)

	c, rec := newContext(http.MethodGet, "/api/datasets/ds1/profile?format=html", "")
	if err := h.HandleGetProfile(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleGetProfile html failed: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<html") {
		t.Error("Expected an HTML document")
	}
	if !strings.Contains(body, "region") || !strings.Contains(body, "sales") {
		t.Error("Expected column names in the report")
	}
}

// Chart handlers

func TestHandleCreateChartAndServeImage(t *testing.T) {
	store := testutil.NewMockStore(t.TempDir())
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewChartHandler(store, mgr)

	c, rec := newContext(http.MethodPost, "/api/datasets/ds1/charts",
		`{"type": "bar", "x": "region", "y": "sales"}`)
	if err := h.HandleCreateChart(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleCreateChart failed: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	var body struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.ID == "" || body.URL != "/api/charts/"+body.ID {
		t.Errorf("Unexpected response: %+v", body)
	}

	c, rec = newContext(http.MethodGet, body.URL, "")
	if err := h.HandleGetChartImage(withID(c, body.ID)); err != nil {
		t.Fatalf("HandleGetChartImage failed: %v", err)
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Error("Expected PNG content")
	}
}

func TestHandleCreateChartBadSpec(t *testing.T) {
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewChartHandler(testutil.NewMockStore(t.TempDir()), mgr)

	// sales is numeric, cannot be the x axis of a bar chart
	c, _ := newContext(http.MethodPost, "/api/datasets/ds1/charts",
		`{"type": "bar", "x": "sales", "y": "sales"}`)
	err := h.HandleCreateChart(withID(c, "ds1"))
	assertAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")
}

func TestHandleCreateChartNotReady(t *testing.T) {
	mgr := newMockSessionMgr()
	sess := models.NewDatasetSession("ds1", "pending.csv", "csv")
	sess.Status = models.SessionStatusIngesting
	mgr.sessions["ds1"] = sess
	h := NewChartHandler(testutil.NewMockStore(t.TempDir()), mgr)

	c, _ := newContext(http.MethodPost, "/api/datasets/ds1/charts",
		`{"type": "bar", "x": "region", "y": "sales"}`)
	err := h.HandleCreateChart(withID(c, "ds1"))
	assertAPIError(t, err, http.StatusConflict, "CONFLICT")
}

func TestHandleGetChartImageNotFound(t *testing.T) {
	h := NewChartHandler(testutil.NewMockStore(t.TempDir()), newMockSessionMgr())
	c, _ := newContext(http.MethodGet, "/api/charts/nope", "")
	err := h.HandleGetChartImage(withID(c, "nope"))
	assertAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestCleanupOldCharts(t *testing.T) {
	store := testutil.NewMockStore(t.TempDir())
	mgr := newMockSessionMgr()
	mgr.addReadySession(t, "ds1", testCSV)
	h := NewChartHandler(store, mgr)

	c, rec := newContext(http.MethodPost, "/api/datasets/ds1/charts",
		`{"type": "bar", "x": "region", "y": "sales"}`)
	if err := h.HandleCreateChart(withID(c, "ds1")); err != nil {
		t.Fatalf("HandleCreateChart failed: %v", err)
	}
	var body struct {
		ID string `json:"id"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)

	impl := h.(*ChartHandlerImpl)
	if removed := impl.CleanupOldCharts(time.Hour); removed != 0 {
		t.Errorf("Expected 0 removed for fresh chart, got %d", removed)
	}

	impl.mu.Lock()
	artifact := impl.charts[body.ID]
	artifact.CreatedAt = time.Now().Add(-2 * time.Hour)
	impl.charts[body.ID] = artifact
	fileID := artifact.FileID
	impl.mu.Unlock()

	if removed := impl.CleanupOldCharts(time.Hour); removed != 1 {
		t.Fatalf("Expected 1 removed, got %d", removed)
	}

	c, _ = newContext(http.MethodGet, "/api/charts/"+body.ID, "")
	err := h.HandleGetChartImage(withID(c, body.ID))
	assertAPIError(t, err, http.StatusNotFound, "NOT_FOUND")

	if _, err := store.Get(fileID); err == nil {
		t.Error("Expected PNG to be deleted from storage")
	}
}
