package llm

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{
		Content:    []ContentBlock{{Type: "text", Text: "mock response"}},
		StopReason: StopEndTurn,
	}, nil
}

// MockFileStore is an in-memory test double for FileStore.
type MockFileStore struct {
	mu    sync.Mutex
	next  int
	files map[string]FileInfo

	UploadErr error
}

func NewMockFileStore() *MockFileStore {
	return &MockFileStore{files: make(map[string]FileInfo)}
}

func (m *MockFileStore) Upload(ctx context.Context, path string) (*FileInfo, error) {
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	info := FileInfo{
		ID:        fmt.Sprintf("file-%03d", m.next),
		Name:      filepath.Base(path),
		Size:      int64(len(path)),
		MediaType: "text/plain",
	}
	m.files[info.ID] = info
	return &info, nil
}

func (m *MockFileStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return fmt.Errorf("file not found: %s", id)
	}
	delete(m.files, id)
	return nil
}

func (m *MockFileStore) List(ctx context.Context) ([]FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FileInfo, 0, len(m.files))
	for _, f := range m.files {
		out = append(out, f)
	}
	return out, nil
}
