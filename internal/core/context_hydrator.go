// ABOUTME: ContextHydrator turns a visitor question into a context block of the most similar site chunks
// ABOUTME: Retrieval failures degrade to an empty context so the chat path never breaks
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/sitechat/internal/llm"
	"github.com/harper/sitechat/internal/metrics"
	"github.com/harper/sitechat/internal/models"
)

// DefaultTopK is how many chunks are retrieved when the caller does not say
const DefaultTopK = 5

// contextSeparator joins retrieved chunk texts
const contextSeparator = "\n\n"

// ContextHydrator retrieves site context for prompts
type ContextHydrator struct {
	embedder llm.Embedder
	index    Index
	topK     int
	metrics  *metrics.Metrics
	logger   *log.Logger
}

// NewContextHydrator creates a new ContextHydrator; topK <= 0 uses DefaultTopK
func NewContextHydrator(embedder llm.Embedder, index Index, topK int, m *metrics.Metrics, logger *log.Logger) *ContextHydrator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = log.Default().WithPrefix("retrieve")
	}
	return &ContextHydrator{
		embedder: embedder,
		index:    index,
		topK:     topK,
		metrics:  m,
		logger:   logger,
	}
}

// Search embeds the query and returns scored matches, propagating errors
func (ch *ContextHydrator) Search(ctx context.Context, query string, topK int) (models.RetrievalResult, error) {
	if topK <= 0 {
		topK = ch.topK
	}
	if strings.TrimSpace(query) == "" {
		return models.RetrievalResult{}, nil
	}

	vector, err := ch.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return ch.index.Query(ctx, vector, topK)
}

// Retrieve returns the non-empty texts of the topK nearest chunks joined by blank lines.
// Any failure is logged and yields "".
func (ch *ContextHydrator) Retrieve(ctx context.Context, query string, topK int) string {
	start := time.Now()

	result, err := ch.Search(ctx, query, topK)
	if err != nil {
		ch.logger.Warn("context retrieval failed", "err", err)
		ch.metrics.RecordRetrieval("degraded", 0, start)
		return ""
	}

	texts := result.Texts()
	outcome := "hit"
	if len(texts) == 0 {
		outcome = "empty"
	}
	ch.metrics.RecordRetrieval(outcome, len(texts), start)
	return strings.Join(texts, contextSeparator)
}

// BuildSystemPrompt wraps retrieved context in the assistant instructions
func BuildSystemPrompt(contextBlock string) string {
	return fmt.Sprintf(`You are a helpful assistant. Use the following context to answer questions when relevant:

Context:
%s

Instructions:
- Answer based on the provided context when possible
- If the context doesn't contain relevant information, use your general knowledge
- Be concise and helpful
- If you're unsure about something, say so`, contextBlock)
}
