// ABOUTME: Gemini client for 768-dimensional embeddings and chat generation
// ABOUTME: Wraps google.golang.org/genai with the same Embedder and Generator contracts as the OpenAI client
package llm

import (
	"context"
	"fmt"

	"github.com/harper/sitechat/internal/models"
	"google.golang.org/genai"
)

// Gemini defaults
const (
	DefaultGeminiEmbeddingModel = "gemini-embedding-001"
	DefaultGeminiChatModel      = "gemini-2.0-flash"
)

// GeminiConfig holds configuration for the Gemini client
type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Dimension      int
	Temperature    float32
	MaxTokens      int
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig(apiKey string) *GeminiConfig {
	return &GeminiConfig{
		APIKey:         apiKey,
		ChatModel:      DefaultGeminiChatModel,
		EmbeddingModel: DefaultGeminiEmbeddingModel,
		Dimension:      models.DefaultEmbeddingDimension,
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
	}
}

// GeminiClient embeds and generates through the Gemini API
type GeminiClient struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
	dimension      int
	temperature    float32
	maxTokens      int
}

// NewGeminiClient creates a Gemini client
func NewGeminiClient(ctx context.Context, config *GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, &models.ConfigurationError{Field: "gemini_api_key", Reason: "Gemini API key is required"}
	}
	if config.Dimension <= 0 {
		return nil, &models.ConfigurationError{Field: "embedding_dimension", Reason: "must be positive"}
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		chatModel:      config.ChatModel,
		embeddingModel: config.EmbeddingModel,
		dimension:      config.Dimension,
		temperature:    config.Temperature,
		maxTokens:      config.MaxTokens,
	}, nil
}

// Dimension returns the vector length every embedding must have
func (g *GeminiClient) Dimension() int { return g.dimension }

// Model returns the embedding model name
func (g *GeminiClient) Model() string { return g.embeddingModel }

// Embed generates one embedding with OutputDimensionality pinned to the configured dimension
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(g.dimension)),
	})
	if err != nil {
		return nil, &models.EmbeddingServiceError{Op: "embed", Err: err}
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, embedErr("no embeddings returned")
	}

	values := resp.Embeddings[0].Values
	if err := checkDimension(values, g.dimension); err != nil {
		return nil, err
	}
	return values, nil
}

// Complete generates a reply; assistant turns are sent with the model role
func (g *GeminiClient) Complete(ctx context.Context, systemPrompt string, messages []models.ChatMessage) (string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		case models.RoleSystem:
			continue
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("no messages to send")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: int32(g.maxTokens),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}

	return resp.Text(), nil
}
