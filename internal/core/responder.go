// ABOUTME: Responder answers a visitor conversation using retrieved site context
// ABOUTME: Retrieval, prompt assembly, and generation run as explicit sequential steps
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/sitechat/internal/llm"
	"github.com/harper/sitechat/internal/models"
)

// Responder generates chat replies
type Responder struct {
	hydrator  *ContextHydrator
	generator llm.Generator
}

// NewResponder creates a Responder
func NewResponder(hydrator *ContextHydrator, generator llm.Generator) *Responder {
	return &Responder{hydrator: hydrator, generator: generator}
}

// Reply answers the latest user message in messages
func (r *Responder) Reply(ctx context.Context, messages []models.ChatMessage) (models.ChatReply, error) {
	question := models.LastUserMessage(messages)
	if strings.TrimSpace(question) == "" {
		return models.ChatReply{}, fmt.Errorf("conversation has no user message")
	}

	contextBlock := r.hydrator.Retrieve(ctx, question, 0)

	content, err := r.generator.Complete(ctx, BuildSystemPrompt(contextBlock), messages)
	if err != nil {
		return models.ChatReply{}, fmt.Errorf("failed to generate reply: %w", err)
	}

	return models.ChatReply{Content: content, ContextUsed: contextBlock != ""}, nil
}
