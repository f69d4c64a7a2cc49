// ABOUTME: Route handlers for the sitechat HTTP API
// ABOUTME: Each handler validates input, calls one service, and renders JSON
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/harper/sitechat/internal/models"
	"github.com/labstack/echo/v4"
)

type ingestRequest struct {
	Sources []string `json:"sources"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Chunks  int    `json:"chunks"`
	Status  string `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

type contextResponse struct {
	Query   string `json:"query"`
	TopK    int    `json:"top_k"`
	Context string `json:"context"`
}

type searchResponse struct {
	Query   string                 `json:"query"`
	Matches models.RetrievalResult `json:"matches"`
}

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

type statsResponse struct {
	Backend   string `json:"backend"`
	Dimension int    `json:"dimension"`
	Vectors   int    `json:"vectors"`
}

// ingest re-ingests the configured sources, or the ones named in the body.
// The run is detached from the request so a client disconnect after the
// index is cleared cannot leave it empty.
func (s *Server) ingest(c echo.Context) error {
	var req ingestRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	ctx := context.WithoutCancel(c.Request().Context())
	var (
		report *models.IngestReport
		err    error
	)
	if len(req.Sources) > 0 {
		report, err = s.deps.Ingester.RunSources(ctx, req.Sources)
	} else {
		report, err = s.deps.Ingester.Run(ctx)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// scrape refreshes a single page, e.g. /api/scrape?url=/projects
func (s *Server) scrape(c echo.Context) error {
	locator := strings.TrimSpace(c.QueryParam("url"))
	if locator == "" {
		locator = "/"
	}

	outcome, err := s.deps.Ingester.IngestPage(context.WithoutCancel(c.Request().Context()), locator)
	if err != nil {
		s.logger.Error("page ingestion failed", "locator", locator, "err", err)
		return c.JSON(http.StatusInternalServerError, scrapeResponse{
			Success: false,
			URL:     outcome.URL,
			Status:  string(outcome.Status),
			Error:   "Scraping failed",
		})
	}

	return c.JSON(http.StatusOK, scrapeResponse{
		Success: true,
		URL:     outcome.URL,
		Chunks:  outcome.Chunks,
		Status:  string(outcome.Status),
		Reason:  outcome.Reason,
	})
}

// retrieveContext returns the joined context block for a query; failures degrade to ""
func (s *Server) retrieveContext(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	topK, err := parseTopK(c.QueryParam("top_k"))
	if err != nil {
		return err
	}

	block := s.deps.Retriever.Retrieve(c.Request().Context(), query, topK)
	return c.JSON(http.StatusOK, contextResponse{Query: query, TopK: topK, Context: block})
}

// search returns scored matches and surfaces backend failures
func (s *Server) search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	topK, err := parseTopK(c.QueryParam("top_k"))
	if err != nil {
		return err
	}

	matches, err := s.deps.Retriever.Search(c.Request().Context(), query, topK)
	if err != nil {
		return err
	}
	if matches == nil {
		matches = models.RetrievalResult{}
	}
	return c.JSON(http.StatusOK, searchResponse{Query: query, Matches: matches})
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if models.LastUserMessage(req.Messages) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "messages must include a user message")
	}

	reply, err := s.deps.Replier.Reply(c.Request().Context(), req.Messages)
	if err != nil {
		s.logger.Error("chat failed", "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to process chat request")
	}
	return c.JSON(http.StatusOK, reply)
}

func (s *Server) stats(c echo.Context) error {
	n, err := s.deps.Stats.Count(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statsResponse{
		Backend:   s.deps.Stats.BackendName(),
		Dimension: s.deps.Stats.Dimension(),
		Vectors:   n,
	})
}

// parseTopK reads an optional positive top_k; empty means the service default
func parseTopK(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "top_k must be a positive integer")
	}
	return n, nil
}
