// Package testutil provides shared mocks for handler and manager tests.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/data-studio/backend/internal/models"
)

// MockStore is an in-memory storage.Store backed by a real directory so
// GetFilePath and Open work for code that reads files from disk.
type MockStore struct {
	mu    sync.RWMutex
	dir   string
	files map[string]*models.FileInfo

	// Error hooks: set to force failures
	SaveErr   error
	GetErr    error
	DeleteErr error
}

// NewMockStore creates a mock store writing files under dir (use t.TempDir()).
func NewMockStore(dir string) *MockStore {
	return &MockStore{
		dir:   dir,
		files: make(map[string]*models.FileInfo),
	}
}

func (s *MockStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return s.SaveBytes(name, buf.Bytes())
}

func (s *MockStore) SaveBytes(name string, data []byte) (*models.FileInfo, error) {
	return s.save(name, "", "upload", data)
}

func (s *MockStore) SaveArtifact(name, contentType string, data []byte) (*models.FileInfo, error) {
	return s.save(name, contentType, "artifact", data)
}

func (s *MockStore) save(name, contentType, kind string, data []byte) (*models.FileInfo, error) {
	if s.SaveErr != nil {
		return nil, s.SaveErr
	}

	id := uuid.New().String()
	if err := os.WriteFile(filepath.Join(s.dir, id), data, 0644); err != nil {
		return nil, err
	}

	info := &models.FileInfo{
		ID:          id,
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		Kind:        kind,
		UploadedAt:  time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info
	return info, nil
}

func (s *MockStore) Get(id string) (*models.FileInfo, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}
	return info, nil
}

func (s *MockStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*models.FileInfo
	for _, info := range s.files {
		if info.Kind == "upload" {
			list = append(list, info)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *MockStore) Delete(id string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("file not found: %s", id)
	}
	os.Remove(filepath.Join(s.dir, id))
	delete(s.files, id)
	return nil
}

func (s *MockStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("file not found: %s", id)
	}
	return filepath.Join(s.dir, id), nil
}

func (s *MockStore) Open(id string) (io.ReadCloser, error) {
	path, err := s.GetFilePath(id)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}
