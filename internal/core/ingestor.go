// ABOUTME: Ingestor runs the scrape, clean, chunk, embed, and upsert pipeline over the configured pages
// ABOUTME: A run clears the index once, then records per-source outcomes without aborting on failures
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/sitechat/internal/llm"
	"github.com/harper/sitechat/internal/metrics"
	"github.com/harper/sitechat/internal/models"
	"github.com/harper/sitechat/internal/scrape"
	"github.com/harper/sitechat/internal/storage"
	"github.com/harper/sitechat/internal/util"
	"golang.org/x/sync/errgroup"
)

// Index is the vector index the pipeline writes to and the retriever reads from
type Index interface {
	Upsert(ctx context.Context, vectors []models.IndexedVector) error
	Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error)
	DeleteAll(ctx context.Context) error
	DeleteByURL(ctx context.Context, url string) error
}

// IngestorConfig holds the source list and embedding fan-out settings
type IngestorConfig struct {
	Sources          []string
	MinContentLength int
	EmbedConcurrency int // 0 means one goroutine per chunk
	EmbedRetries     int
	RetryDelay       time.Duration
}

// IngestorDeps are the collaborators an Ingestor drives
type IngestorDeps struct {
	Source   scrape.Source
	Cleaner  scrape.Cleaner
	Chunker  *ChunkEngine
	Embedder llm.Embedder
	Index    Index
	Metrics  *metrics.Metrics
	Logger   *log.Logger
}

// Ingestor orchestrates full and single-page ingestion
type Ingestor struct {
	source   scrape.Source
	cleaner  scrape.Cleaner
	chunker  *ChunkEngine
	embedder llm.Embedder
	index    Index
	metrics  *metrics.Metrics
	logger   *log.Logger
	cfg      IngestorConfig

	// mu serializes full runs and page refreshes so one run's clear
	// cannot remove vectors another run has already reported
	mu sync.Mutex
}

// NewIngestor creates an Ingestor, rejecting missing collaborators
func NewIngestor(deps IngestorDeps, cfg IngestorConfig) (*Ingestor, error) {
	switch {
	case deps.Source == nil:
		return nil, &models.ConfigurationError{Field: "source", Reason: "content source is required"}
	case deps.Cleaner == nil:
		return nil, &models.ConfigurationError{Field: "cleaner", Reason: "cleaner is required"}
	case deps.Chunker == nil:
		return nil, &models.ConfigurationError{Field: "chunker", Reason: "chunker is required"}
	case deps.Embedder == nil:
		return nil, &models.ConfigurationError{Field: "embedder", Reason: "embedder is required"}
	case deps.Index == nil:
		return nil, &models.ConfigurationError{Field: "index", Reason: "vector index is required"}
	}
	if cfg.MinContentLength < 0 {
		return nil, &models.ConfigurationError{Field: "min_content_length", Reason: "must not be negative"}
	}
	if cfg.EmbedConcurrency < 0 {
		return nil, &models.ConfigurationError{Field: "embed_concurrency", Reason: "must not be negative"}
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("ingest")
	}

	return &Ingestor{
		source:   deps.Source,
		cleaner:  deps.Cleaner,
		chunker:  deps.Chunker,
		embedder: deps.Embedder,
		index:    deps.Index,
		metrics:  deps.Metrics,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// Sources returns the configured locators
func (in *Ingestor) Sources() []string {
	out := make([]string, len(in.cfg.Sources))
	copy(out, in.cfg.Sources)
	return out
}

// Run re-ingests every configured source
func (in *Ingestor) Run(ctx context.Context) (*models.IngestReport, error) {
	return in.RunSources(ctx, in.cfg.Sources)
}

// RunSources clears the index and ingests locators one after another.
// Only a failed clear aborts; every other failure is recorded against its source.
func (in *Ingestor) RunSources(ctx context.Context, locators []string) (*models.IngestReport, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	start := time.Now()
	report := &models.IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Sources:   make([]models.SourceOutcome, 0, len(locators)),
	}
	logger := in.logger.With("run", report.RunID)

	if err := in.index.DeleteAll(ctx); err != nil {
		logger.Error("clearing index failed, aborting run", "err", err)
		in.metrics.RecordRun("aborted", start)
		return nil, err
	}
	logger.Info("index cleared", "sources", len(locators))

	for _, locator := range locators {
		outcome, _ := in.ingest(ctx, locator, false)
		report.Record(outcome)
		in.logOutcome(logger, outcome)
	}

	report.CompletedAt = time.Now().UTC()
	in.metrics.RecordRun("completed", start)
	logger.Info("ingestion finished",
		"chunks", report.TotalChunks,
		"succeeded", report.Count(models.SourceSucceeded),
		"skipped", report.Count(models.SourceSkipped),
		"failed", report.Count(models.SourceFailed),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return report, nil
}

// IngestPage refreshes a single page without clearing the rest of the index.
// The page's old vectors are replaced only once new ones are ready.
func (in *Ingestor) IngestPage(ctx context.Context, locator string) (models.SourceOutcome, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	outcome, err := in.ingest(ctx, locator, true)
	in.logOutcome(in.logger, outcome)
	return outcome, err
}

func (in *Ingestor) logOutcome(logger *log.Logger, o models.SourceOutcome) {
	switch o.Status {
	case models.SourceSucceeded:
		logger.Info("source indexed", "source", o.Locator, "url", o.URL, "chunks", o.Chunks)
	case models.SourceSkipped:
		logger.Info("source skipped", "source", o.Locator, "reason", o.Reason)
	default:
		logger.Warn("source failed", "source", o.Locator, "err", o.Error)
	}
}

// ingest runs one source through every step. With replace set, vectors
// previously stored for the page URL are removed before the new ones land.
func (in *Ingestor) ingest(ctx context.Context, locator string, replace bool) (models.SourceOutcome, error) {
	outcome := models.SourceOutcome{Locator: locator}
	fail := func(err error) (models.SourceOutcome, error) {
		outcome.Status = models.SourceFailed
		outcome.Error = err.Error()
		outcome.Chunks = 0
		in.metrics.RecordSource(string(models.SourceFailed), 0)
		return outcome, err
	}
	skip := func(reason string) (models.SourceOutcome, error) {
		if replace && outcome.URL != "" {
			if err := in.index.DeleteByURL(ctx, outcome.URL); err != nil {
				return fail(err)
			}
		}
		outcome.Status = models.SourceSkipped
		outcome.Reason = reason
		in.metrics.RecordSource(string(models.SourceSkipped), 0)
		return outcome, nil
	}

	page, err := in.source.Fetch(ctx, locator)
	if err != nil {
		return fail(err)
	}
	outcome.URL = page.URL

	text, err := in.cleaner.Clean(page)
	if err != nil {
		return fail(&models.SourceFetchError{Locator: locator, Err: err})
	}

	if n := utf8.RuneCountInString(text); n < in.cfg.MinContentLength {
		return skip(fmt.Sprintf("content too short (%d < %d characters)", n, in.cfg.MinContentLength))
	}

	chunks := in.chunker.ChunkPage(page.URL, text)
	if len(chunks) == 0 {
		return skip("no chunks produced")
	}

	vectors, err := in.embedChunks(ctx, chunks)
	if err != nil {
		return fail(err)
	}

	if replace {
		if err := in.index.DeleteByURL(ctx, page.URL); err != nil {
			return fail(err)
		}
	}
	if err := in.index.Upsert(ctx, vectors); err != nil {
		return fail(err)
	}

	outcome.Status = models.SourceSucceeded
	outcome.Chunks = len(chunks)
	in.metrics.RecordSource(string(models.SourceSucceeded), len(chunks))
	return outcome, nil
}

// embedChunks embeds every chunk concurrently and returns vectors in chunk order.
// The first failure cancels the remaining calls.
func (in *Ingestor) embedChunks(ctx context.Context, chunks []models.Chunk) ([]models.IndexedVector, error) {
	vectors := make([]models.IndexedVector, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	if in.cfg.EmbedConcurrency > 0 {
		g.SetLimit(in.cfg.EmbedConcurrency)
	}

	for i, chunk := range chunks {
		g.Go(func() error {
			values, err := in.embed(gctx, chunk.Text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunk.Index, err)
			}
			vectors[i] = models.IndexedVector{
				ID:     storage.VectorID(chunk.SourceURL, chunk.Index),
				Values: values,
				Metadata: models.VectorMetadata{
					URL:        chunk.SourceURL,
					Text:       chunk.Text,
					ChunkIndex: chunk.Index,
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// embed calls the embedder, retrying transient failures when configured
func (in *Ingestor) embed(ctx context.Context, text string) ([]float32, error) {
	var values []float32
	err := util.Retry(ctx, in.cfg.EmbedRetries, in.cfg.RetryDelay, func(attempt int) error {
		start := time.Now()
		v, err := in.embedder.Embed(ctx, text)
		in.metrics.ObserveEmbed(start)
		if err != nil {
			var dimErr *models.DimensionMismatchError
			if errors.As(err, &dimErr) {
				return util.Permanent(err)
			}
			if attempt < in.cfg.EmbedRetries {
				in.logger.Debug("embedding failed, retrying", "attempt", attempt+1, "err", err)
			}
			return err
		}
		values = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}
