// ABOUTME: Tests for MCP tool handlers
// ABOUTME: Calls handlers directly with constructed tool requests against stub services
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/harper/sitechat/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

type stubRetriever struct {
	block    string
	matches  models.RetrievalResult
	err      error
	lastTopK int
}

func (s *stubRetriever) Search(ctx context.Context, query string, topK int) (models.RetrievalResult, error) {
	s.lastTopK = topK
	return s.matches, s.err
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, topK int) string {
	s.lastTopK = topK
	return s.block
}

type stubIngester struct {
	report      *models.IngestReport
	err         error
	outcome     models.SourceOutcome
	lastSources []string
	ctxErr      error
}

func (s *stubIngester) Run(ctx context.Context) (*models.IngestReport, error) {
	s.ctxErr = ctx.Err()
	return s.report, s.err
}

func (s *stubIngester) RunSources(ctx context.Context, locators []string) (*models.IngestReport, error) {
	s.lastSources = locators
	s.ctxErr = ctx.Err()
	return s.report, s.err
}

func (s *stubIngester) IngestPage(ctx context.Context, locator string) (models.SourceOutcome, error) {
	s.ctxErr = ctx.Err()
	return s.outcome, s.err
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func newHandlers(ret Retriever, ing Ingester) *Handlers {
	server := mcpserver.NewMCPServer("sitechat-test", "0.0.0")
	return RegisterTools(server, ret, ing, nil)
}

func TestRetrieveContext(t *testing.T) {
	ret := &stubRetriever{block: "I write Go services."}
	h := newHandlers(ret, nil)

	result, err := h.RetrieveContext(context.Background(), callRequest("retrieve_context", map[string]interface{}{
		"query": "what do you build",
		"top_k": float64(3),
	}))
	if err != nil {
		t.Fatalf("RetrieveContext() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var got contextResponse
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Context != "I write Go services." || !got.Found {
		t.Errorf("response = %+v", got)
	}
	if ret.lastTopK != 3 {
		t.Errorf("topK = %d, want 3", ret.lastTopK)
	}
}

func TestRetrieveContext_Validation(t *testing.T) {
	h := newHandlers(&stubRetriever{}, nil)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing query", map[string]interface{}{}},
		{"blank query", map[string]interface{}{"query": "  "}},
		{"zero top_k", map[string]interface{}{"query": "go", "top_k": float64(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.RetrieveContext(context.Background(), callRequest("retrieve_context", tt.args))
			if err != nil {
				t.Fatalf("unexpected Go error: %v", err)
			}
			if !result.IsError {
				t.Error("expected tool error result")
			}
		})
	}
}

func TestSearchSite(t *testing.T) {
	ret := &stubRetriever{matches: models.RetrievalResult{
		{ID: "a", URL: "https://jane.dev/projects", ChunkIndex: 2, Text: "Go", Score: 0.91},
	}}
	h := newHandlers(ret, nil)

	result, err := h.SearchSite(context.Background(), callRequest("search_site", map[string]interface{}{"query": "go"}))
	if err != nil {
		t.Fatalf("SearchSite() error = %v", err)
	}
	var got searchResponse
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Results) != 1 || got.Results[0].ChunkIndex != 2 || got.Results[0].URL != "https://jane.dev/projects" {
		t.Errorf("results = %+v", got.Results)
	}
	if ret.lastTopK != defaultResults {
		t.Errorf("topK = %d, want default %d", ret.lastTopK, defaultResults)
	}

	failing := newHandlers(&stubRetriever{err: errors.New("index unavailable")}, nil)
	result, _ = failing.SearchSite(context.Background(), callRequest("search_site", map[string]interface{}{"query": "go"}))
	if !result.IsError || !strings.Contains(resultText(t, result), "index unavailable") {
		t.Errorf("expected search failure, got %+v", result)
	}
}

func TestIngestSite(t *testing.T) {
	report := &models.IngestReport{RunID: "run-7"}
	report.Record(models.SourceOutcome{Locator: "/", Status: models.SourceSucceeded, Chunks: 2})
	ing := &stubIngester{report: report}
	h := newHandlers(&stubRetriever{}, ing)

	result, err := h.IngestSite(context.Background(), callRequest("ingest_site", map[string]interface{}{
		"sources": []interface{}{"/", "/about"},
	}))
	if err != nil {
		t.Fatalf("IngestSite() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if len(ing.lastSources) != 2 {
		t.Errorf("sources = %v", ing.lastSources)
	}
	if !strings.Contains(resultText(t, result), `"run_id":"run-7"`) {
		t.Errorf("report missing run id: %s", resultText(t, result))
	}

	aborted := newHandlers(&stubRetriever{}, &stubIngester{err: &models.IndexBackendError{Op: "delete_all", Backend: "charm", Err: errors.New("offline")}})
	result, _ = aborted.IngestSite(context.Background(), callRequest("ingest_site", nil))
	if !result.IsError {
		t.Error("expected aborted ingestion to be a tool error")
	}
	aborted.Shutdown()
}

func TestIngestPage(t *testing.T) {
	ing := &stubIngester{outcome: models.SourceOutcome{Locator: "/projects", URL: "https://jane.dev/projects", Status: models.SourceSucceeded, Chunks: 5}}
	h := newHandlers(&stubRetriever{}, ing)

	result, err := h.IngestPage(context.Background(), callRequest("ingest_page", map[string]interface{}{"url": "/projects"}))
	if err != nil {
		t.Fatalf("IngestPage() error = %v", err)
	}
	var got models.SourceOutcome
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Chunks != 5 || got.Status != models.SourceSucceeded {
		t.Errorf("outcome = %+v", got)
	}

	result, _ = h.IngestPage(context.Background(), callRequest("ingest_page", map[string]interface{}{}))
	if !result.IsError {
		t.Error("expected error for missing url")
	}
}

func TestIngestTools_IgnoreCallerCancellation(t *testing.T) {
	ing := &stubIngester{
		report:  &models.IngestReport{RunID: "run-1"},
		outcome: models.SourceOutcome{Locator: "/about", Status: models.SourceSucceeded},
	}
	h := newHandlers(&stubRetriever{}, ing)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.IngestSite(ctx, callRequest("ingest_site", nil)); err != nil {
		t.Fatalf("IngestSite() error = %v", err)
	}
	if ing.ctxErr != nil {
		t.Errorf("ingest_site ran with a cancelled context: %v", ing.ctxErr)
	}

	if _, err := h.IngestPage(ctx, callRequest("ingest_page", map[string]interface{}{"url": "/about"})); err != nil {
		t.Fatalf("IngestPage() error = %v", err)
	}
	if ing.ctxErr != nil {
		t.Errorf("ingest_page ran with a cancelled context: %v", ing.ctxErr)
	}
}
