// ABOUTME: Builds every sitechat component from a Config with explicit construction
// ABOUTME: Selects the vector backend and model providers and owns their lifetimes
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/sitechat/internal/charm"
	"github.com/harper/sitechat/internal/config"
	"github.com/harper/sitechat/internal/core"
	"github.com/harper/sitechat/internal/llm"
	"github.com/harper/sitechat/internal/metrics"
	"github.com/harper/sitechat/internal/models"
	"github.com/harper/sitechat/internal/scrape"
	"github.com/harper/sitechat/internal/server"
	"github.com/harper/sitechat/internal/storage"
)

// App holds the wired pipeline for one process
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	Index     *storage.VectorIndex
	Embedder  llm.Embedder
	Ingestor  *core.Ingestor
	Hydrator  *core.ContextHydrator
	Responder *core.Responder // nil when no chat provider is configured
	Charm     *charm.Client   // set only for the charm backend

	closers []io.Closer
}

// NewLogger returns a stderr logger at the configured level
func NewLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "sitechat"})
	if lvl, err := log.ParseLevel(strings.ToLower(level)); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// New wires the index, embedder, ingestion pipeline, retrieval, and chat
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewLogger(cfg.Log.Level)
	}

	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	backend, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Index, err = storage.NewVectorIndex(backend, cfg.Embedding.Dimension, cfg.Index.TextLimit)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Embedder, err = a.newEmbedder(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	source, err := scrape.NewSource(cfg.Ingest.Fetcher, cfg.Site.URL, cfg.Ingest.Timeout)
	if err != nil {
		a.Close()
		return nil, err
	}
	cleaner, err := scrape.NewCleaner(cfg.Ingest.Cleaner)
	if err != nil {
		a.Close()
		return nil, err
	}
	chunker, err := core.NewChunkEngine(cfg.ChunkSettings())
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Ingestor, err = core.NewIngestor(core.IngestorDeps{
		Source:   source,
		Cleaner:  cleaner,
		Chunker:  chunker,
		Embedder: a.Embedder,
		Index:    a.Index,
		Metrics:  a.Metrics,
		Logger:   logger.WithPrefix("ingest"),
	}, core.IngestorConfig{
		Sources:          cfg.Site.Sources,
		MinContentLength: cfg.Ingest.MinContentLength,
		EmbedConcurrency: cfg.Ingest.EmbedConcurrency,
		EmbedRetries:     cfg.Ingest.EmbedRetries,
		RetryDelay:       cfg.Ingest.RetryDelay,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Hydrator = core.NewContextHydrator(a.Embedder, a.Index, cfg.Retrieval.TopK, a.Metrics, logger.WithPrefix("retrieve"))

	generator, err := a.newGenerator(ctx)
	var cfgErr *models.ConfigurationError
	switch {
	case err == nil:
		a.Responder = core.NewResponder(a.Hydrator, generator)
	case errors.As(err, &cfgErr):
		logger.Warn("chat disabled", "provider", cfg.Chat.Provider, "reason", cfgErr.Reason)
	default:
		a.Close()
		return nil, err
	}

	logger.Debug("app ready",
		"backend", a.Index.BackendName(),
		"dimension", a.Index.Dimension(),
		"embedder", a.Embedder.Model(),
		"fetcher", cfg.Ingest.Fetcher,
		"chat", a.Responder != nil,
	)
	return a, nil
}

// ServerDeps wires the HTTP API to the app's components; chat routes
// are left out when no chat provider is configured
func (a *App) ServerDeps() server.Deps {
	deps := server.Deps{
		Ingester:  a.Ingestor,
		Retriever: a.Hydrator,
		Stats:     a.Index,
		Metrics:   a.Metrics,
		Logger:    a.Logger.WithPrefix("http"),
	}
	if a.Responder != nil {
		deps.Replier = a.Responder
	}
	return deps
}

// Close releases backend connections
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openBackend(ctx context.Context) (storage.Backend, error) {
	cfg := a.Config.Index
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemoryBackend(), nil

	case "charm":
		client, err := charm.NewClient(&charm.Config{
			Host:     a.Config.Charm.Host,
			DBName:   a.Config.Charm.DBName,
			AutoSync: a.Config.Charm.AutoSync,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Charm: %w", err)
		}
		a.Charm = client
		a.closers = append(a.closers, client)
		return storage.NewCharmBackend(client), nil

	case "pgvector":
		b, err := storage.NewPgVectorBackend(ctx, cfg.DatabaseURL, cfg.Table, a.Config.Embedding.Dimension)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b)
		return b, nil

	case "redis":
		b, err := storage.NewRedisBackend(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b)
		return b, nil
	}
	return nil, &models.ConfigurationError{Field: "index.backend", Reason: fmt.Sprintf("unknown backend %q", cfg.Backend)}
}

func (a *App) newEmbedder(ctx context.Context) (llm.Embedder, error) {
	cfg := a.Config
	switch cfg.Embedding.Provider {
	case "gemini":
		gc := a.geminiConfig()
		if cfg.Embedding.Model != "" {
			gc.EmbeddingModel = cfg.Embedding.Model
		}
		return llm.NewGeminiClient(ctx, gc)
	case "openai":
		oc := a.openAIConfig()
		if cfg.Embedding.Model != "" {
			oc.EmbeddingModel = cfg.Embedding.Model
		}
		return llm.NewOpenAIClientWithConfig(oc)
	}
	return nil, &models.ConfigurationError{Field: "embedding.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Embedding.Provider)}
}

func (a *App) newGenerator(ctx context.Context) (llm.Generator, error) {
	cfg := a.Config
	switch cfg.Chat.Provider {
	case "gemini":
		gc := a.geminiConfig()
		if cfg.Chat.Model != "" {
			gc.ChatModel = cfg.Chat.Model
		}
		return llm.NewGeminiClient(ctx, gc)
	case "openai":
		oc := a.openAIConfig()
		if cfg.Chat.Model != "" {
			oc.ChatModel = cfg.Chat.Model
		}
		return llm.NewOpenAIClientWithConfig(oc)
	}
	return nil, &models.ConfigurationError{Field: "chat.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Chat.Provider)}
}

func (a *App) geminiConfig() *llm.GeminiConfig {
	cfg := a.Config
	gc := llm.DefaultGeminiConfig(cfg.Gemini.APIKey)
	gc.BaseURL = cfg.Gemini.BaseURL
	gc.Dimension = cfg.Embedding.Dimension
	gc.Temperature = cfg.Chat.Temperature
	gc.MaxTokens = cfg.Chat.MaxTokens
	return gc
}

func (a *App) openAIConfig() *llm.ClientConfig {
	cfg := a.Config
	oc := llm.DefaultConfig(cfg.OpenAI.APIKey)
	oc.BaseURL = cfg.OpenAI.BaseURL
	oc.Dimension = cfg.Embedding.Dimension
	oc.Temperature = cfg.Chat.Temperature
	oc.MaxTokens = cfg.Chat.MaxTokens
	return oc
}
