// ABOUTME: Unit tests for the charm vector backend and cosine similarity
// ABOUTME: Uses an in-memory KVStore so no charm server is needed
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/harper/sitechat/internal/models"
)

// fakeKV mimics the charm client's JSON KV surface
type fakeKV struct {
	data    map[string][]byte
	syncs   int
	listErr error
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

func (f *fakeKV) GetJSON(key string, dest interface{}) error {
	b, ok := f.data[key]
	if !ok {
		return errors.New("key not found: " + key)
	}
	return json.Unmarshal(b, dest)
}

func (f *fakeKV) SetJSONMany(entries map[string]interface{}) error {
	for k, v := range entries {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		f.data[k] = b
	}
	f.syncs++
	return nil
}

func (f *fakeKV) DeleteMany(keys []string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	f.syncs++
	return nil
}

func (f *fakeKV) ListKeys(prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func TestCharmBackend_SaveAndSearch(t *testing.T) {
	kv := newFakeKV()
	cb := NewCharmBackend(kv)
	ctx := context.Background()

	vectors := []models.IndexedVector{
		{ID: "chunk1", Values: []float32{1.0, 0.0, 0.0}, Metadata: models.VectorMetadata{URL: "/a", Text: "one"}},
		{ID: "chunk2", Values: []float32{0.0, 1.0, 0.0}, Metadata: models.VectorMetadata{URL: "/b", Text: "two"}},
		{ID: "chunk3", Values: []float32{0.9, 0.1, 0.0}, Metadata: models.VectorMetadata{URL: "/a", Text: "three", ChunkIndex: 1}},
	}
	if err := cb.Upsert(ctx, vectors); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if kv.syncs != 1 {
		t.Errorf("expected one batched write, got %d", kv.syncs)
	}

	results, err := cb.Query(ctx, []float32{0.95, 0.05, 0.0}, 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].ID != "chunk1" && results[0].ID != "chunk3" {
		t.Errorf("Expected top result to be chunk1 or chunk3, got %s", results[0].ID)
	}
	if results[2].ID != "chunk2" {
		t.Errorf("Expected chunk2 last, got %s", results[2].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("Results not sorted: score[%d]=%.4f > score[%d]=%.4f",
				i, results[i].Score, i-1, results[i-1].Score)
		}
	}
}

func TestCharmBackend_DeleteByURLAndCount(t *testing.T) {
	kv := newFakeKV()
	cb := NewCharmBackend(kv)
	ctx := context.Background()

	_ = cb.Upsert(ctx, []models.IndexedVector{
		{ID: "a0", Values: []float32{1, 0}, Metadata: models.VectorMetadata{URL: "/a"}},
		{ID: "a1", Values: []float32{1, 0}, Metadata: models.VectorMetadata{URL: "/a", ChunkIndex: 1}},
		{ID: "b0", Values: []float32{0, 1}, Metadata: models.VectorMetadata{URL: "/b"}},
	})
	kv.data["unrelated"] = []byte("{}")

	if err := cb.DeleteByURL(ctx, "/a"); err != nil {
		t.Fatalf("DeleteByURL() error = %v", err)
	}
	n, err := cb.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	if err := cb.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if n, _ := cb.Count(ctx); n != 0 {
		t.Errorf("Count() after DeleteAll = %d, want 0", n)
	}
	if _, ok := kv.data["unrelated"]; !ok {
		t.Error("DeleteAll removed a key outside the vector prefix")
	}
}

func TestCharmBackend_EmptySearch(t *testing.T) {
	cb := NewCharmBackend(newFakeKV())

	results, err := cb.Query(context.Background(), []float32{1.0, 0.0, 0.0}, 10)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results, got %d", len(results))
	}
}

func TestCharmBackend_ListError(t *testing.T) {
	kv := newFakeKV()
	kv.listErr = errors.New("kv closed")
	cb := NewCharmBackend(kv)

	if _, err := cb.Query(context.Background(), []float32{1}, 1); err == nil {
		t.Error("expected error when keys cannot be listed")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
		delta    float64
	}{
		{
			name:     "identical vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
			delta:    0.001,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
			delta:    0.001,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
			delta:    0.001,
		},
		{
			name:     "similar vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.9, 0.1, 0.0},
			expected: 0.995, // Approximately
			delta:    0.01,
		},
		{
			name:     "length mismatch",
			a:        []float32{1.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 0.0,
			delta:    0.0001,
		},
		{
			name:     "zero vector",
			a:        []float32{0, 0, 0},
			b:        []float32{1, 0, 0},
			expected: 0.0,
			delta:    0.0001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cosineSimilarity(tt.a, tt.b)
			if abs(result-tt.expected) > tt.delta {
				t.Errorf("cosineSimilarity(%v, %v) = %.4f, expected %.4f (delta %.4f)",
					tt.a, tt.b, result, tt.expected, tt.delta)
			}
		})
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
