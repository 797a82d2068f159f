package testhelpers

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MemoryImageStore keeps uploaded images in memory.
type MemoryImageStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{Objects: make(map[string][]byte)}
}

func (s *MemoryImageStore) Save(_ context.Context, key, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url := "https://media.test/" + key
	s.Objects[url] = data
	return url, nil
}

func (s *MemoryImageStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, url)
	s.Deleted = append(s.Deleted, url)
	return nil
}

func (s *MemoryImageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}

// MockImageStore is a testify mock of the image store.
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(ctx context.Context, key, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, key, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}
