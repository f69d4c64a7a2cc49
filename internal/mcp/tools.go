// ABOUTME: MCP tool definitions and registration for the sitechat server
// ABOUTME: Exposes retrieval and ingestion to LLM agents over stdio
package mcp

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/harper/sitechat/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Retriever answers similarity queries against the site index
type Retriever interface {
	Search(ctx context.Context, query string, topK int) (models.RetrievalResult, error)
	Retrieve(ctx context.Context, query string, topK int) string
}

// Ingester refreshes the site index
type Ingester interface {
	Run(ctx context.Context) (*models.IngestReport, error)
	RunSources(ctx context.Context, locators []string) (*models.IngestReport, error)
	IngestPage(ctx context.Context, locator string) (models.SourceOutcome, error)
}

// RegisterTools registers all MCP tools with the server. A nil ingester
// leaves the index read-only.
func RegisterTools(server *mcpserver.MCPServer, retriever Retriever, ingester Ingester, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default().WithPrefix("mcp")
	}
	handlers := &Handlers{
		retriever:  retriever,
		ingester:   ingester,
		logger:     logger,
		shutdownWg: &sync.WaitGroup{},
	}

	// 1. retrieve_context - the joined context block the chat assistant sees
	server.AddTool(mcp.Tool{
		Name:        "retrieve_context",
		Description: "Retrieve the most relevant site content for a question, joined into a single context block. Returns an empty context when nothing relevant is indexed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Question or topic to find site content for",
				},
				"top_k": map[string]interface{}{
					"type":        "number",
					"description": "Number of chunks to retrieve (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.RetrieveContext)

	// 2. search_site - scored matches with their source pages
	server.AddTool(mcp.Tool{
		Name:        "search_site",
		Description: "Semantic search over the indexed site. Returns scored matches with page URL, chunk index, and text.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchSite)

	if ingester == nil {
		return handlers
	}

	// 3. ingest_site - clear the index and re-ingest every page
	server.AddTool(mcp.Tool{
		Name:        "ingest_site",
		Description: "Clear the index and re-ingest the configured site pages (or the given locators). Returns a per-page report.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sources": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Optional page paths to ingest instead of the configured list (e.g., '/', '/about')",
				},
			},
		},
	}, handlers.IngestSite)

	// 4. ingest_page - refresh one page without clearing the rest
	server.AddTool(mcp.Tool{
		Name:        "ingest_page",
		Description: "Re-ingest a single page, replacing its previous chunks without touching the rest of the index.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Page path or absolute URL on the site (e.g., '/projects')",
				},
			},
			Required: []string{"url"},
		},
	}, handlers.IngestPage)

	return handlers
}
