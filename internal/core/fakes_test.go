// ABOUTME: Test doubles for the pipeline's collaborators
// ABOUTME: Fake source, embedder, generator, and a backend that fails on demand
package core

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harper/sitechat/internal/models"
	"github.com/harper/sitechat/internal/scrape"
	"github.com/harper/sitechat/internal/storage"
)

const testDim = 8

// fakeSource serves canned page bodies by locator
type fakeSource struct {
	mu      sync.Mutex
	pages   map[string]string
	failing map[string]bool
	fetched []string
}

func (f *fakeSource) Fetch(_ context.Context, locator string) (scrape.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, locator)

	if f.failing[locator] {
		return scrape.Page{}, &models.SourceFetchError{Locator: locator, Err: errors.New("navigation timeout")}
	}
	body, ok := f.pages[locator]
	if !ok {
		return scrape.Page{}, &models.SourceFetchError{Locator: locator, Err: errors.New("404")}
	}
	return scrape.Page{Locator: locator, URL: "https://example.com" + locator, HTML: body}, nil
}

// plainCleaner returns the body unchanged
type plainCleaner struct{}

func (plainCleaner) Clean(p scrape.Page) (string, error) { return p.HTML, nil }

// fakeEmbedder hashes text into a deterministic vector
type fakeEmbedder struct {
	dim       int
	failOn    string
	failTimes int32
	mismatch  bool
	vectors   map[string][]float32
	delay     time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dim: testDim} }

func (f *fakeEmbedder) Dimension() int { return f.dim }
func (f *fakeEmbedder) Model() string  { return "fake-embedding" }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	n := f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if cur <= seen || f.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, &models.EmbeddingServiceError{Op: "embed", Err: errors.New("quota exceeded")}
	}
	if f.mismatch {
		return nil, &models.EmbeddingServiceError{Op: "embed", Err: &models.DimensionMismatchError{Expected: f.dim, Got: f.dim + 1}}
	}
	if n <= f.failTimes {
		return nil, &models.EmbeddingServiceError{Op: "embed", Err: errors.New("503 unavailable")}
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return hashVector(text, f.dim), nil
}

func hashVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		h := fnv.New32a()
		_, _ = h.Write([]byte{byte(i)})
		_, _ = h.Write([]byte(text))
		v[i] = float32(h.Sum32()%1000)/1000 + 0.001
	}
	return v
}

// flakyBackend wraps a memory backend and fails selected operations
type flakyBackend struct {
	*storage.MemoryBackend
	failDeleteAll bool
	failQuery     bool
	failUpsertFor string
}

func (f *flakyBackend) DeleteAll(ctx context.Context) error {
	if f.failDeleteAll {
		return errors.New("permission denied")
	}
	return f.MemoryBackend.DeleteAll(ctx)
}

func (f *flakyBackend) Query(ctx context.Context, v []float32, k int) (models.RetrievalResult, error) {
	if f.failQuery {
		return nil, errors.New("index unavailable")
	}
	return f.MemoryBackend.Query(ctx, v, k)
}

func (f *flakyBackend) Upsert(ctx context.Context, vectors []models.IndexedVector) error {
	for _, v := range vectors {
		if f.failUpsertFor != "" && v.Metadata.URL == f.failUpsertFor {
			return errors.New("payload too large")
		}
	}
	return f.MemoryBackend.Upsert(ctx, vectors)
}

func newTestIndex(t *testing.T) (*storage.VectorIndex, *flakyBackend) {
	t.Helper()
	backend := &flakyBackend{MemoryBackend: storage.NewMemoryBackend()}
	index, err := storage.NewVectorIndex(backend, testDim, models.DefaultMetadataTextLimit)
	if err != nil {
		t.Fatalf("NewVectorIndex() error = %v", err)
	}
	return index, backend
}

// fakeGenerator records the prompt it was given
type fakeGenerator struct {
	reply        string
	err          error
	systemPrompt string
	messages     []models.ChatMessage
}

func (g *fakeGenerator) Complete(_ context.Context, systemPrompt string, messages []models.ChatMessage) (string, error) {
	g.systemPrompt = systemPrompt
	g.messages = messages
	return g.reply, g.err
}
