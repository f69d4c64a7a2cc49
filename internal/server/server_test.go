// ABOUTME: Tests for the sitechat HTTP API
// ABOUTME: Drives the echo router with httptest against stub services
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harper/sitechat/internal/metrics"
	"github.com/harper/sitechat/internal/models"
)

type stubIngester struct {
	report      *models.IngestReport
	err         error
	outcome     models.SourceOutcome
	pageErr     error
	lastSources []string
	lastPage    string
	ctxErr      error
}

func (s *stubIngester) Run(ctx context.Context) (*models.IngestReport, error) {
	s.lastSources = nil
	s.ctxErr = ctx.Err()
	return s.report, s.err
}

func (s *stubIngester) RunSources(ctx context.Context, locators []string) (*models.IngestReport, error) {
	s.lastSources = locators
	s.ctxErr = ctx.Err()
	return s.report, s.err
}

func (s *stubIngester) IngestPage(ctx context.Context, locator string) (models.SourceOutcome, error) {
	s.lastPage = locator
	s.ctxErr = ctx.Err()
	return s.outcome, s.pageErr
}

type stubRetriever struct {
	context   string
	matches   models.RetrievalResult
	searchErr error
	lastTopK  int
}

func (s *stubRetriever) Search(ctx context.Context, query string, topK int) (models.RetrievalResult, error) {
	s.lastTopK = topK
	return s.matches, s.searchErr
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, topK int) string {
	s.lastTopK = topK
	return s.context
}

type stubReplier struct {
	reply models.ChatReply
	err   error
	got   []models.ChatMessage
}

func (s *stubReplier) Reply(ctx context.Context, messages []models.ChatMessage) (models.ChatReply, error) {
	s.got = messages
	return s.reply, s.err
}

type stubStats struct{ count int }

func (s stubStats) BackendName() string                    { return "memory" }
func (s stubStats) Dimension() int                         { return 768 }
func (s stubStats) Count(ctx context.Context) (int, error) { return s.count, nil }

func serve(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := New(Deps{Metrics: metrics.New()})

	rec := serve(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = serve(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing Go collector")
	}
}

func TestIngest(t *testing.T) {
	report := &models.IngestReport{RunID: "run-1", StartedAt: time.Now()}
	report.Record(models.SourceOutcome{Locator: "/", Status: models.SourceSucceeded, Chunks: 3})

	t.Run("configured sources", func(t *testing.T) {
		ing := &stubIngester{report: report}
		rec := serve(t, New(Deps{Ingester: ing}), http.MethodPost, "/api/ingest", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var got models.IngestReport
		decode(t, rec, &got)
		if got.RunID != "run-1" || got.TotalChunks != 3 {
			t.Errorf("report = %+v", got)
		}
		if ing.lastSources != nil {
			t.Errorf("expected configured sources, got %v", ing.lastSources)
		}
	})

	t.Run("explicit sources", func(t *testing.T) {
		ing := &stubIngester{report: report}
		rec := serve(t, New(Deps{Ingester: ing}), http.MethodPost, "/api/ingest", `{"sources":["/blog"]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(ing.lastSources) != 1 || ing.lastSources[0] != "/blog" {
			t.Errorf("sources = %v", ing.lastSources)
		}
	})

	t.Run("clear failure", func(t *testing.T) {
		ing := &stubIngester{err: &models.IndexBackendError{Op: "delete_all", Backend: "memory", Err: errors.New("denied")}}
		rec := serve(t, New(Deps{Ingester: ing}), http.MethodPost, "/api/ingest", "")
		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
		var body map[string]string
		decode(t, rec, &body)
		if !strings.Contains(body["error"], "delete_all") {
			t.Errorf("error body = %v", body)
		}
	})
}

func TestIngestOutlivesClientDisconnect(t *testing.T) {
	report := &models.IngestReport{RunID: "run-1"}

	tests := []struct {
		name   string
		method string
		target string
	}{
		{"full run", http.MethodPost, "/api/ingest"},
		{"single page", http.MethodGet, "/api/scrape?url=/about"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &stubIngester{report: report}
			srv := New(Deps{Ingester: ing})

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req := httptest.NewRequest(tt.method, tt.target, nil).WithContext(ctx)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if ing.ctxErr != nil {
				t.Errorf("ingester saw a cancelled context: %v", ing.ctxErr)
			}
		})
	}
}

func TestScrape(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		outcome     models.SourceOutcome
		err         error
		wantCode    int
		wantLocator string
		wantSuccess bool
		wantChunks  int
	}{
		{
			name:        "indexed page",
			target:      "/api/scrape?url=/projects",
			outcome:     models.SourceOutcome{Locator: "/projects", URL: "https://jane.dev/projects", Status: models.SourceSucceeded, Chunks: 4},
			wantCode:    http.StatusOK,
			wantLocator: "/projects",
			wantSuccess: true,
			wantChunks:  4,
		},
		{
			name:        "defaults to homepage",
			target:      "/api/scrape",
			outcome:     models.SourceOutcome{Locator: "/", Status: models.SourceSkipped, Reason: "content too short"},
			wantCode:    http.StatusOK,
			wantLocator: "/",
			wantSuccess: true,
		},
		{
			name:        "failure",
			target:      "/api/scrape?url=/about",
			outcome:     models.SourceOutcome{Locator: "/about", Status: models.SourceFailed},
			err:         &models.SourceFetchError{Locator: "/about", Err: errors.New("timeout")},
			wantCode:    http.StatusInternalServerError,
			wantLocator: "/about",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &stubIngester{outcome: tt.outcome, pageErr: tt.err}
			rec := serve(t, New(Deps{Ingester: ing}), http.MethodGet, tt.target, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if ing.lastPage != tt.wantLocator {
				t.Errorf("locator = %q, want %q", ing.lastPage, tt.wantLocator)
			}
			var got scrapeResponse
			decode(t, rec, &got)
			if got.Success != tt.wantSuccess || got.Chunks != tt.wantChunks {
				t.Errorf("response = %+v", got)
			}
		})
	}
}

func TestContext(t *testing.T) {
	ret := &stubRetriever{context: "I write Go services."}
	srv := New(Deps{Retriever: ret})

	rec := serve(t, srv, http.MethodGet, "/api/context?q=what+do+you+build&top_k=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got contextResponse
	decode(t, rec, &got)
	if got.Context != "I write Go services." || got.Query != "what do you build" {
		t.Errorf("response = %+v", got)
	}
	if ret.lastTopK != 3 {
		t.Errorf("topK = %d, want 3", ret.lastTopK)
	}

	for _, target := range []string{"/api/context", "/api/context?q=x&top_k=0", "/api/context?q=x&top_k=abc"} {
		if rec := serve(t, srv, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, rec.Code)
		}
	}
}

func TestSearch(t *testing.T) {
	ret := &stubRetriever{matches: models.RetrievalResult{{ID: "a", URL: "https://jane.dev/", Text: "hello", Score: 0.9}}}
	rec := serve(t, New(Deps{Retriever: ret}), http.MethodGet, "/api/search?q=hello", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got searchResponse
	decode(t, rec, &got)
	if len(got.Matches) != 1 || got.Matches[0].ID != "a" {
		t.Errorf("matches = %+v", got.Matches)
	}

	failing := &stubRetriever{searchErr: &models.IndexBackendError{Op: "query", Backend: "redis", Err: errors.New("down")}}
	if rec := serve(t, New(Deps{Retriever: failing}), http.MethodGet, "/api/search?q=hello", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestChat(t *testing.T) {
	rep := &stubReplier{reply: models.ChatReply{Content: "Hi there", ContextUsed: true}}
	srv := New(Deps{Replier: rep})

	rec := serve(t, srv, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hello"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string]interface{}
	decode(t, rec, &got)
	if got["reply"] != "Hi there" || got["context_used"] != true {
		t.Errorf("response = %v", got)
	}
	if len(rep.got) != 1 || rep.got[0].Content != "hello" {
		t.Errorf("messages = %+v", rep.got)
	}

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"messages":`, http.StatusBadRequest},
		{"no user message", `{"messages":[{"role":"assistant","content":"hi"}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(t, srv, http.MethodPost, "/api/chat", tt.body); rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
		})
	}

	failing := &stubReplier{err: errors.New("rate limited")}
	rec = serve(t, New(Deps{Replier: failing}), http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hello"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "Failed to process chat request" {
		t.Errorf("error body = %v", body)
	}
}

func TestStats(t *testing.T) {
	rec := serve(t, New(Deps{Stats: stubStats{count: 12}}), http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got statsResponse
	decode(t, rec, &got)
	if got.Vectors != 12 || got.Backend != "memory" || got.Dimension != 768 {
		t.Errorf("stats = %+v", got)
	}
}

func TestUnregisteredRoutes(t *testing.T) {
	srv := New(Deps{})
	if rec := serve(t, srv, http.MethodPost, "/api/chat", `{}`); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when no replier is wired", rec.Code)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	srv := New(Deps{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
