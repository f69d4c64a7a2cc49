// ABOUTME: VectorIndex adapter enforcing the fixed embedding dimension in front of a Backend
// ABOUTME: Validates locally before any backend call and wraps backend failures as IndexBackendError
package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/harper/sitechat/internal/models"
)

// vectorNamespace scopes deterministic vector IDs
var vectorNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://sitechat/vectors"))

// Backend is a similarity-search store that holds vectors with metadata
type Backend interface {
	Name() string
	Upsert(ctx context.Context, vectors []models.IndexedVector) error
	Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error)
	DeleteAll(ctx context.Context) error
	DeleteByURL(ctx context.Context, url string) error
	Count(ctx context.Context) (int, error)
}

// VectorIndex fronts a Backend with a fixed dimension and metadata size limit
type VectorIndex struct {
	backend   Backend
	dimension int
	textLimit int
}

// NewVectorIndex creates a VectorIndex for vectors of exactly dimension values
func NewVectorIndex(backend Backend, dimension, textLimit int) (*VectorIndex, error) {
	if backend == nil {
		return nil, &models.ConfigurationError{Field: "index_backend", Reason: "backend is required"}
	}
	if dimension <= 0 {
		return nil, &models.ConfigurationError{Field: "embedding_dimension", Reason: fmt.Sprintf("must be positive, got %d", dimension)}
	}
	if textLimit <= 0 {
		textLimit = models.DefaultMetadataTextLimit
	}
	return &VectorIndex{backend: backend, dimension: dimension, textLimit: textLimit}, nil
}

// VectorID derives the stable identifier for chunk index of url
func VectorID(url string, index int) string {
	return uuid.NewSHA1(vectorNamespace, []byte(url+"#"+strconv.Itoa(index))).String()
}

// Dimension returns the enforced vector length
func (vi *VectorIndex) Dimension() int { return vi.dimension }

// BackendName returns the name of the underlying backend
func (vi *VectorIndex) BackendName() string { return vi.backend.Name() }

// Upsert writes or overwrites vectors by ID. Every vector is checked before the backend is touched.
func (vi *VectorIndex) Upsert(ctx context.Context, vectors []models.IndexedVector) error {
	if len(vectors) == 0 {
		return nil
	}

	prepared := make([]models.IndexedVector, len(vectors))
	for i, v := range vectors {
		if err := v.ValidateDimension(vi.dimension); err != nil {
			return err
		}
		v.Metadata.Text = truncateRunes(v.Metadata.Text, vi.textLimit)
		prepared[i] = v
	}

	if err := vi.backend.Upsert(ctx, prepared); err != nil {
		return vi.wrap("upsert", err)
	}
	return nil
}

// Query returns up to topK matches ordered by descending score
func (vi *VectorIndex) Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error) {
	if len(vector) != vi.dimension {
		return nil, &models.DimensionMismatchError{ID: "query", Expected: vi.dimension, Got: len(vector)}
	}
	if topK < 1 {
		topK = 1
	}

	result, err := vi.backend.Query(ctx, vector, topK)
	if err != nil {
		return nil, vi.wrap("query", err)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if len(result) > topK {
		result = result[:topK]
	}
	return result, nil
}

// DeleteAll clears the whole index
func (vi *VectorIndex) DeleteAll(ctx context.Context) error {
	if err := vi.backend.DeleteAll(ctx); err != nil {
		return vi.wrap("delete_all", err)
	}
	return nil
}

// DeleteByURL removes every vector that came from url
func (vi *VectorIndex) DeleteByURL(ctx context.Context, url string) error {
	if err := vi.backend.DeleteByURL(ctx, url); err != nil {
		return vi.wrap("delete_by_url", err)
	}
	return nil
}

// Count returns how many vectors are stored
func (vi *VectorIndex) Count(ctx context.Context) (int, error) {
	n, err := vi.backend.Count(ctx)
	if err != nil {
		return 0, vi.wrap("count", err)
	}
	return n, nil
}

func (vi *VectorIndex) wrap(op string, err error) error {
	return &models.IndexBackendError{Op: op, Backend: vi.backend.Name(), Err: err}
}

// truncateRunes cuts s to at most limit runes without splitting a code point
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
