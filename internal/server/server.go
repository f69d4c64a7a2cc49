// ABOUTME: HTTP surface for ingestion, retrieval, and chat built on echo
// ABOUTME: Wires routes, JSON error handling, request logging, and graceful shutdown
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/sitechat/internal/metrics"
	"github.com/harper/sitechat/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown
const shutdownTimeout = 10 * time.Second

// Ingester runs full and single-page ingestion
type Ingester interface {
	Run(ctx context.Context) (*models.IngestReport, error)
	RunSources(ctx context.Context, locators []string) (*models.IngestReport, error)
	IngestPage(ctx context.Context, locator string) (models.SourceOutcome, error)
}

// Retriever answers similarity queries
type Retriever interface {
	Search(ctx context.Context, query string, topK int) (models.RetrievalResult, error)
	Retrieve(ctx context.Context, query string, topK int) string
}

// Replier generates chat replies
type Replier interface {
	Reply(ctx context.Context, messages []models.ChatMessage) (models.ChatReply, error)
}

// IndexStats reports what the vector index holds
type IndexStats interface {
	BackendName() string
	Dimension() int
	Count(ctx context.Context) (int, error)
}

// Deps are the services the HTTP handlers call into
type Deps struct {
	Ingester  Ingester
	Retriever Retriever
	Replier   Replier
	Stats     IndexStats
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// Server is the sitechat HTTP API
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *log.Logger
}

// New builds the echo instance and registers every route
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("http")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, deps: deps, logger: logger}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.deps.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	api := s.echo.Group("/api")
	if s.deps.Ingester != nil {
		api.POST("/ingest", s.ingest)
		api.GET("/scrape", s.scrape)
	}
	if s.deps.Retriever != nil {
		api.GET("/context", s.retrieveContext)
		api.GET("/search", s.search)
	}
	if s.deps.Replier != nil {
		api.POST("/chat", s.chat)
	}
	if s.deps.Stats != nil {
		api.GET("/stats", s.stats)
	}
}

// Handler exposes the router for tests and embedding in other servers
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return s.echo.Shutdown(shutdownCtx)
}

// handleError renders every failure as {"error": msg}
func (s *Server) handleError(err error, c echo.Context) {
	code := statusFor(err)
	msg := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}

	req := c.Request()
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", code, "method", req.Method, "path", req.URL.Path, "err", err)
	} else {
		s.logger.Warn("request rejected", "status", code, "method", req.Method, "path", req.URL.Path, "err", err)
	}

	if !c.Response().Committed {
		_ = c.JSON(code, map[string]interface{}{"error": msg})
	}
}

// statusFor maps the pipeline's error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var (
		cfgErr   *models.ConfigurationError
		embedErr *models.EmbeddingServiceError
		idxErr   *models.IndexBackendError
		fetchErr *models.SourceFetchError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &embedErr), errors.As(err, &idxErr), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
