// ABOUTME: MCP tool handler implementations for the sitechat server
// ABOUTME: Each handler validates arguments, calls one service, and returns JSON text
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/harper/sitechat/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

const defaultResults = 5

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	retriever  Retriever
	ingester   Ingester
	logger     *log.Logger
	shutdownWg *sync.WaitGroup // tracks in-flight ingestion
}

type contextResponse struct {
	Query   string `json:"query"`
	Context string `json:"context"`
	Found   bool   `json:"found"`
}

type searchResult struct {
	URL        string  `json:"url"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
}

// RetrieveContext handles the retrieve_context tool
func (h *Handlers) RetrieveContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	topK := request.GetInt("top_k", defaultResults)
	if topK <= 0 {
		return mcp.NewToolResultError("top_k must be positive"), nil
	}

	block := h.retriever.Retrieve(ctx, query, topK)
	return jsonResult(contextResponse{Query: query, Context: block, Found: block != ""})
}

// SearchSite handles the search_site tool
func (h *Handlers) SearchSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	maxResults := request.GetInt("max_results", defaultResults)
	if maxResults <= 0 {
		return mcp.NewToolResultError("max_results must be positive"), nil
	}

	matches, err := h.retriever.Search(ctx, query, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("site search failed: %v", err)), nil
	}

	response := searchResponse{Query: query, Results: make([]searchResult, 0, len(matches))}
	for _, m := range matches {
		response.Results = append(response.Results, searchResult{
			URL:        m.URL,
			ChunkIndex: m.ChunkIndex,
			Score:      m.Score,
			Text:       m.Text,
		})
	}
	return jsonResult(response)
}

// IngestSite handles the ingest_site tool
func (h *Handlers) IngestSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.shutdownWg.Add(1)
	defer h.shutdownWg.Done()

	sources := request.GetStringSlice("sources", nil)
	ctx = context.WithoutCancel(ctx)

	var (
		report *models.IngestReport
		err    error
	)
	if len(sources) > 0 {
		report, err = h.ingester.RunSources(ctx, sources)
	} else {
		report, err = h.ingester.Run(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingestion aborted: %v", err)), nil
	}
	return jsonResult(report)
}

// IngestPage handles the ingest_page tool
func (h *Handlers) IngestPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	locator, err := request.RequireString("url")
	if err != nil || strings.TrimSpace(locator) == "" {
		return mcp.NewToolResultError("url argument is required and must be a string"), nil
	}

	h.shutdownWg.Add(1)
	defer h.shutdownWg.Done()

	outcome, err := h.ingester.IngestPage(context.WithoutCancel(ctx), locator)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("page ingestion failed: %v", err)), nil
	}
	return jsonResult(outcome)
}

// Shutdown waits for in-flight ingestion to finish
func (h *Handlers) Shutdown() {
	h.logger.Info("waiting for pending ingestion to complete")
	h.shutdownWg.Wait()
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
