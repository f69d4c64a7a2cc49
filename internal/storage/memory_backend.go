// ABOUTME: In-process vector backend for development and tests
// ABOUTME: Keeps vectors in a map guarded by a RWMutex
package storage

import (
	"context"
	"sync"

	"github.com/harper/sitechat/internal/models"
)

// MemoryBackend stores vectors in memory
type MemoryBackend struct {
	mu      sync.RWMutex
	vectors map[string]models.IndexedVector
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{vectors: make(map[string]models.IndexedVector)}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Upsert(_ context.Context, vectors []models.IndexedVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range vectors {
		values := make([]float32, len(v.Values))
		copy(values, v.Values)
		v.Values = values
		m.vectors[v.ID] = v
	}
	return nil
}

func (m *MemoryBackend) Query(_ context.Context, vector []float32, topK int) (models.RetrievalResult, error) {
	m.mu.RLock()
	candidates := make([]models.IndexedVector, 0, len(m.vectors))
	for _, v := range m.vectors {
		candidates = append(candidates, v)
	}
	m.mu.RUnlock()

	return rankVectors(vector, candidates, topK), nil
}

func (m *MemoryBackend) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.vectors = make(map[string]models.IndexedVector)
	return nil
}

func (m *MemoryBackend) DeleteByURL(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, v := range m.vectors {
		if v.Metadata.URL == url {
			delete(m.vectors, id)
		}
	}
	return nil
}

func (m *MemoryBackend) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.vectors), nil
}
