// ABOUTME: Embedder and Generator interfaces shared by the OpenAI and Gemini clients
// ABOUTME: Callers depend on these so tests can substitute fakes for the remote models
package llm

import (
	"context"
	"fmt"

	"github.com/harper/sitechat/internal/models"
)

// Embedder converts text into a fixed-dimension vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// Generator produces an assistant reply for a conversation
type Generator interface {
	Complete(ctx context.Context, systemPrompt string, messages []models.ChatMessage) (string, error)
}

// Default generation settings
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// checkDimension wraps a wrong-sized vector as an EmbeddingServiceError
func checkDimension(values []float32, expected int) error {
	if len(values) != expected {
		return &models.EmbeddingServiceError{
			Op:  "embed",
			Err: &models.DimensionMismatchError{Expected: expected, Got: len(values)},
		}
	}
	return nil
}

func embedErr(format string, args ...interface{}) error {
	return &models.EmbeddingServiceError{Op: "embed", Err: fmt.Errorf(format, args...)}
}
