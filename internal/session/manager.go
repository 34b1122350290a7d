package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/data-studio/backend/internal/ai"
	"github.com/data-studio/backend/internal/dataset"
	"github.com/data-studio/backend/internal/models"
)

// MaxSessions limits concurrent sessions to prevent memory exhaustion
const MaxSessions = 10

// SessionMaxAge is how long to keep ready sessions before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

// sampleRowLimit is how many raw rows each session keeps in memory for
// previews and AI prompts. Everything else lives in the row store.
const sampleRowLimit = 50

// Manager handles active dataset sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	tempDir  string
	analyst  ai.Service // nil when no provider is configured
}

// SessionState holds the session metadata and the DuckDB-backed row store.
type SessionState struct {
	Session      *models.DatasetSession
	Store        *dataset.RowStore
	SampleRows   [][]string
	Insights     *models.InsightReport
	LastAccessed time.Time
}

// NewManager creates a session manager. analyst may be nil; sessions then
// complete without insights and carry a warning.
func NewManager(tempDir string, analyst ai.Service) *Manager {
	os.MkdirAll(tempDir, 0755)
	return &Manager{
		sessions: make(map[string]*SessionState),
		tempDir:  tempDir,
		analyst:  analyst,
	}
}

// StartFileSession begins ingesting an uploaded CSV or XLSX file.
func (m *Manager) StartFileSession(fileID, filePath, name string) (*models.DatasetSession, error) {
	source := "csv"
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		source = "xlsx"
	}

	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	sess := models.NewDatasetSession(sessionID, name, source)
	sess.FileID = fileID
	sess.Status = models.SessionStatusIngesting

	m.mu.Lock()
	m.sessions[sessionID] = &SessionState{Session: sess, LastAccessed: time.Now()}
	m.mu.Unlock()

	go m.runFileIngest(sessionID, filePath, source)

	return sess, nil
}

// StartTableSession begins ingesting an already-parsed table, e.g. one
// inferred from free text.
func (m *Manager) StartTableSession(name, source string, table *models.Table) (*models.DatasetSession, error) {
	if table.IsEmpty() {
		return nil, fmt.Errorf("table has no data")
	}

	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	sess := models.NewDatasetSession(sessionID, name, source)
	sess.Status = models.SessionStatusIngesting

	m.mu.Lock()
	m.sessions[sessionID] = &SessionState{Session: sess, LastAccessed: time.Now()}
	m.mu.Unlock()

	go m.runTableIngest(sessionID, table, nil)

	return sess, nil
}

func (m *Manager) runFileIngest(sessionID, filePath, source string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Ingest %s] PANIC recovered: %v\n", sessionID[:8], r)
			m.failSession(sessionID, "ingest", fmt.Sprintf("ingest panicked: %v", r))
		}
	}()

	fmt.Printf("[Ingest %s] Starting ingest of %s\n", sessionID[:8], filePath)

	f, err := os.Open(filePath)
	if err != nil {
		fmt.Printf("[Ingest %s] ERROR open file: %v\n", sessionID[:8], err)
		m.failSession(sessionID, "ingest", fmt.Sprintf("failed to open file: %v", err))
		return
	}
	defer f.Close()

	var table *models.Table
	var ingestErrs []models.IngestError
	if source == "xlsx" {
		table, ingestErrs, err = dataset.ParseXLSX(f)
	} else {
		table, ingestErrs, err = dataset.ParseCSV(f)
	}
	if err != nil {
		fmt.Printf("[Ingest %s] ERROR parse: %v\n", sessionID[:8], err)
		m.failSession(sessionID, "parse", fmt.Sprintf("parse failed: %v", err))
		return
	}

	m.runTableIngest(sessionID, table, ingestErrs)
}

func (m *Manager) runTableIngest(sessionID string, table *models.Table, ingestErrs []models.IngestError) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Ingest %s] PANIC recovered: %v\n", sessionID[:8], r)
			m.failSession(sessionID, "ingest", fmt.Sprintf("ingest panicked: %v", r))
		}
	}()

	start := time.Now()

	if table.IsEmpty() {
		m.failSession(sessionID, "parse", "no data rows found")
		return
	}

	m.updateSession(sessionID, func(s *models.DatasetSession) {
		s.Progress = 20
		s.Errors = append(s.Errors, ingestErrs...)
	})

	schema := dataset.InferSchema(table)
	fmt.Printf("[Ingest %s] Schema: %d columns, %d rows\n", sessionID[:8], len(schema.Columns), schema.RowCount)

	m.updateSession(sessionID, func(s *models.DatasetSession) {
		s.Progress = 30
		s.Schema = schema
	})

	store, err := dataset.NewRowStore(m.tempDir, sessionID, schema)
	if err != nil {
		fmt.Printf("[Ingest %s] ERROR create row store: %v\n", sessionID[:8], err)
		m.failSession(sessionID, "store", fmt.Sprintf("failed to create storage: %v", err))
		return
	}

	totalRows := len(table.Rows)
	err = store.InsertTable(table, func(rows int) {
		progress := 30.0
		if totalRows > 0 {
			progress = 30.0 + float64(rows)*50.0/float64(totalRows)
		}
		m.updateSession(sessionID, func(s *models.DatasetSession) {
			s.Progress = progress
			s.RowCount = rows
		})
	})
	if err != nil {
		store.Close()
		fmt.Printf("[Ingest %s] ERROR store rows: %v\n", sessionID[:8], err)
		m.failSession(sessionID, "store", fmt.Sprintf("failed to store rows: %v", err))
		return
	}

	sampleRows := table.Rows
	if len(sampleRows) > sampleRowLimit {
		sampleRows = sampleRows[:sampleRowLimit]
	}

	m.mu.Lock()
	state, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		store.Close()
		return
	}
	state.Store = store
	state.SampleRows = sampleRows
	state.Session.Status = models.SessionStatusAnalyzing
	state.Session.Progress = 85
	state.Session.RowCount = store.Len()
	state.Session.ColumnCount = len(schema.Columns)
	m.mu.Unlock()

	// Insight generation is best effort: a failing or missing AI provider
	// degrades the session to ready with a warning, never to error.
	insights, warning := m.generateInsights(sessionID, schema, sampleRows)

	elapsed := time.Since(start).Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok = m.sessions[sessionID]
	if !ok {
		return
	}
	state.Insights = insights
	state.Session.Status = models.SessionStatusReady
	state.Session.Progress = 100
	state.Session.ProcessingTimeMs = elapsed
	if warning != "" {
		state.Session.Warnings = append(state.Session.Warnings, warning)
	}

	fmt.Printf("[Ingest %s] Ready: %d rows, %d columns in %dms\n",
		sessionID[:8], state.Session.RowCount, state.Session.ColumnCount, elapsed)
}

func (m *Manager) generateInsights(sessionID string, schema *models.Schema, sampleRows [][]string) (*models.InsightReport, string) {
	if m.analyst == nil {
		return nil, "AI provider not configured; insights unavailable"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	insights, err := m.analyst.GenerateInsights(ctx, schema, sampleRows)
	if err != nil {
		fmt.Printf("[Ingest %s] Insight generation failed: %v\n", sessionID[:8], err)
		return nil, fmt.Sprintf("insight generation failed: %v", err)
	}

	fmt.Printf("[Ingest %s] Insights: %d key, %d trends, %d suggestions\n",
		sessionID[:8], len(insights.KeyInsights), len(insights.Trends), len(insights.VisualizationSuggestions))
	return insights, ""
}

func (m *Manager) updateSession(sessionID string, fn func(*models.DatasetSession)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.sessions[sessionID]; ok {
		fn(state.Session)
	}
}

func (m *Manager) failSession(sessionID, stage, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.SessionStatusError
	state.Session.Errors = append(state.Session.Errors, models.IngestError{
		Stage:  stage,
		Reason: reason,
	})
}

// cleanupOldSessionsIfNeeded removes finished sessions when at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	toFree := len(m.sessions) - MaxSessions + 1
	deleted := 0
	for id, state := range m.sessions {
		if deleted >= toFree {
			break
		}
		if state.Session.Status != models.SessionStatusReady &&
			state.Session.Status != models.SessionStatusError {
			continue
		}
		if state.Store != nil {
			state.Store.Close()
		}
		delete(m.sessions, id)
		deleted++
		fmt.Printf("[Manager] Cleaned up old session %s to free memory\n", id[:8])
	}
}

// CleanupOldSessions removes sessions older than maxAge, but keeps sessions
// that have been accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	for id, state := range m.sessions {
		if state.Session.Status != models.SessionStatusReady &&
			state.Session.Status != models.SessionStatusError {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}

		sessionTime := state.LastAccessed
		if sessionTime.IsZero() {
			sessionTime = time.Now().Add(-maxAge - time.Hour)
		}

		if sessionTime.Before(cutoff) {
			if state.Store != nil {
				state.Store.Close()
			}
			delete(m.sessions, id)
			fmt.Printf("[Manager] Cleaned up aged session %s (last accessed: %s ago)\n",
				id[:8], time.Since(state.LastAccessed).Round(time.Second))
		}
	}
}

// GetSession returns a snapshot of a session by ID. Callers get a copy so
// they can read and marshal it while ingest goroutines keep mutating the
// live session.
func (m *Manager) GetSession(id string) (*models.DatasetSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	sess := *state.Session
	if state.Session.Errors != nil {
		sess.Errors = append(make([]models.IngestError, 0, len(state.Session.Errors)), state.Session.Errors...)
	}
	if state.Session.Warnings != nil {
		sess.Warnings = append(make([]string, 0, len(state.Session.Warnings)), state.Session.Warnings...)
	}
	return &sess, true
}

// TouchSession updates the LastAccessed timestamp for a session so it is
// not cleaned up while a client is using it.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// GetSchema returns the inferred schema for a ready session.
func (m *Manager) GetSchema(id string) (*models.Schema, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Session.Schema == nil {
		return nil, false
	}
	return state.Session.Schema, true
}

// GetRows returns paginated rows for a session.
func (m *Manager) GetRows(ctx context.Context, id string, page, pageSize int) ([][]interface{}, int, bool) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	if !ok || state.Store == nil {
		m.mu.RUnlock()
		return nil, 0, false
	}
	store := state.Store
	m.mu.RUnlock()

	rows, total, err := store.GetRows(ctx, page, pageSize)
	if err != nil {
		if err == context.DeadlineExceeded || err == context.Canceled {
			fmt.Printf("[Manager] GetRows timeout/cancelled for session %s\n", id[:8])
		} else {
			fmt.Printf("[Manager] GetRows error: %v\n", err)
		}
		return nil, 0, false
	}
	return rows, total, true
}

// SampleRows returns the in-memory preview rows for a session.
func (m *Manager) SampleRows(id string) ([][]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.SampleRows, true
}

// StoreFor returns the row store backing a ready session.
func (m *Manager) StoreFor(id string) (*dataset.RowStore, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Store == nil {
		return nil, false
	}
	return state.Store, true
}

// DeleteSession removes a session and closes its row store.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	if state.Store != nil {
		state.Store.Close()
	}
	delete(m.sessions, id)
	return true
}

// ErrNotReady is returned when an operation needs a ready session.
var ErrNotReady = fmt.Errorf("session is not ready")

// ErrNoProvider is returned when an AI operation is requested but no
// provider is configured.
var ErrNoProvider = fmt.Errorf("AI provider not configured")

// Insights returns the insight report for a session. When no report was
// generated during ingest, or refresh is set, one is generated now and
// cached.
func (m *Manager) Insights(ctx context.Context, id string, refresh bool) (*models.InsightReport, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	if !ok {
		m.mu.RUnlock()
		return nil, fmt.Errorf("session not found")
	}
	if state.Session.Status != models.SessionStatusReady {
		m.mu.RUnlock()
		return nil, ErrNotReady
	}
	if state.Insights != nil && !refresh {
		insights := state.Insights
		m.mu.RUnlock()
		return insights, nil
	}
	schema := state.Session.Schema
	sampleRows := state.SampleRows
	m.mu.RUnlock()

	if m.analyst == nil {
		return nil, ErrNoProvider
	}

	insights, err := m.analyst.GenerateInsights(ctx, schema, sampleRows)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if state, ok := m.sessions[id]; ok {
		state.Insights = insights
	}
	m.mu.Unlock()

	return insights, nil
}
