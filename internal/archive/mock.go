package archive

import (
	"context"
	"fmt"
	"sync"
)

// MockArchive keeps uploads in memory for tests and for running without a
// bucket
type MockArchive struct {
	files map[string][]byte
	mu    sync.RWMutex
}

// NewMockArchive creates an empty in-memory archive
func NewMockArchive() *MockArchive {
	return &MockArchive{files: make(map[string][]byte)}
}

// ArchiveUpload stores content under a deterministic key
func (m *MockArchive) ArchiveUpload(_ context.Context, filename string, content []byte) (string, error) {
	key := fmt.Sprintf("imports/mock_%s", filename)

	m.mu.Lock()
	m.files[key] = append([]byte(nil), content...)
	m.mu.Unlock()

	return key, nil
}

// GetPresignedURL returns a fake URL for stored keys
func (m *MockArchive) GetPresignedURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.files[key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("file not found in mock archive: %s", key)
	}
	return fmt.Sprintf("https://mock-bucket.local/%s", key), nil
}

// Files returns a copy of the stored uploads
func (m *MockArchive) Files() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make(map[string][]byte, len(m.files))
	for k, v := range m.files {
		files[k] = v
	}
	return files
}
