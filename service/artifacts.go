package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/techpathlabs/milestonedesk/engine"
)

// ArtifactStore is an engine.ArtifactStore that can also drop objects
// when their session goes away.
type ArtifactStore interface {
	engine.ArtifactStore
	Delete(ctx context.Context, key string) error
}

// MemoryArtifactStore keeps export files in process memory. It is used
// when no MINIO endpoint is configured.
type MemoryArtifactStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{objects: make(map[string][]byte)}
}

func (s *MemoryArtifactStore) Put(ctx context.Context, key string, content []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), content...)
	return nil
}

// URL is always empty; objects are served through Get.
func (s *MemoryArtifactStore) URL(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (s *MemoryArtifactStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("artifact %q not found", key)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryArtifactStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Count returns the number of stored objects
func (s *MemoryArtifactStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
