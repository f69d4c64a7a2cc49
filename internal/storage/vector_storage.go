// ABOUTME: Vector backend on Charm KV with cosine similarity search
// ABOUTME: Stores each vector as JSON under the vector: prefix for cloud-synced storage
package storage

import (
	"context"
	"fmt"

	"github.com/harper/sitechat/internal/charm"
	"github.com/harper/sitechat/internal/models"
)

// KVStore is the subset of the charm client the backend needs
type KVStore interface {
	GetJSON(key string, dest interface{}) error
	SetJSONMany(entries map[string]interface{}) error
	DeleteMany(keys []string) error
	ListKeys(prefix string) ([]string, error)
}

// CharmBackend manages vector storage and similarity search using Charm KV
type CharmBackend struct {
	kv KVStore
}

// NewCharmBackend creates a CharmBackend over a charm client
func NewCharmBackend(kv KVStore) *CharmBackend {
	return &CharmBackend{kv: kv}
}

func (cb *CharmBackend) Name() string { return "charm" }

// Upsert writes every vector in one batch, overwriting existing keys
func (cb *CharmBackend) Upsert(_ context.Context, vectors []models.IndexedVector) error {
	entries := make(map[string]interface{}, len(vectors))
	for _, v := range vectors {
		entries[charm.VectorKey(v.ID)] = v
	}
	return cb.kv.SetJSONMany(entries)
}

// Query performs cosine similarity search across all stored vectors
func (cb *CharmBackend) Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error) {
	vectors, _, err := cb.load(ctx)
	if err != nil {
		return nil, err
	}
	return rankVectors(vector, vectors, topK), nil
}

func (cb *CharmBackend) DeleteAll(_ context.Context) error {
	keys, err := cb.kv.ListKeys(charm.VectorPrefix)
	if err != nil {
		return fmt.Errorf("failed to list vector keys: %w", err)
	}
	return cb.kv.DeleteMany(keys)
}

func (cb *CharmBackend) DeleteByURL(ctx context.Context, url string) error {
	vectors, keys, err := cb.load(ctx)
	if err != nil {
		return err
	}

	var doomed []string
	for i, v := range vectors {
		if v.Metadata.URL == url {
			doomed = append(doomed, keys[i])
		}
	}
	return cb.kv.DeleteMany(doomed)
}

func (cb *CharmBackend) Count(_ context.Context) (int, error) {
	keys, err := cb.kv.ListKeys(charm.VectorPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list vector keys: %w", err)
	}
	return len(keys), nil
}

// load returns every decodable vector with its key; unreadable entries are skipped
func (cb *CharmBackend) load(ctx context.Context) ([]models.IndexedVector, []string, error) {
	keys, err := cb.kv.ListKeys(charm.VectorPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list vector keys: %w", err)
	}

	vectors := make([]models.IndexedVector, 0, len(keys))
	kept := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		var v models.IndexedVector
		if err := cb.kv.GetJSON(key, &v); err != nil {
			continue
		}
		vectors = append(vectors, v)
		kept = append(kept, key)
	}
	return vectors, kept, nil
}
