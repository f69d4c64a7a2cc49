// ABOUTME: OpenAI client for embeddings and chat completions
// ABOUTME: Requests embeddings at the configured dimension and works against any OpenAI-compatible base URL
package llm

import (
	"context"
	"fmt"

	"github.com/harper/sitechat/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Dimension      int
	Temperature    float32
	MaxTokens      int
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:         apiKey,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		Dimension:      models.DefaultEmbeddingDimension,
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
	}
}

// OpenAIClient wraps the OpenAI API client
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	dimension      int
	temperature    float32
	maxTokens      int
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, &models.ConfigurationError{Field: "openai_api_key", Reason: "OpenAI API key is required"}
	}
	if config.Dimension <= 0 {
		return nil, &models.ConfigurationError{Field: "embedding_dimension", Reason: "must be positive"}
	}

	oc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oc.BaseURL = config.BaseURL
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oc),
		chatModel:      config.ChatModel,
		embeddingModel: config.EmbeddingModel,
		dimension:      config.Dimension,
		temperature:    config.Temperature,
		maxTokens:      config.MaxTokens,
	}, nil
}

// Dimension returns the vector length every embedding must have
func (c *OpenAIClient) Dimension() int { return c.dimension }

// Model returns the embedding model name
func (c *OpenAIClient) Model() string { return c.embeddingModel }

// Embed generates a single embedding vector. Failures are not retried here.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(c.embeddingModel),
		Dimensions: c.dimension,
	})
	if err != nil {
		return nil, &models.EmbeddingServiceError{Op: "embed", Err: err}
	}

	if len(resp.Data) == 0 {
		return nil, embedErr("no embeddings returned")
	}

	values := resp.Data[0].Embedding
	if err := checkDimension(values, c.dimension); err != nil {
		return nil, err
	}
	return values, nil
}

// Complete runs a chat completion with the system prompt prepended to the conversation.
// Caller-supplied system messages are dropped.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt string, messages []models.ChatMessage) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case models.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case models.RoleSystem:
			// Only the server-built system prompt instructs the model
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
