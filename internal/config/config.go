// ABOUTME: Centralized configuration for the sitechat ingestion and chat services
// ABOUTME: Loads defaults, an optional config file, and environment overrides through viper
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/harper/sitechat/internal/models"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override (SITECHAT_CHUNK_SIZE, ...)
const EnvPrefix = "SITECHAT"

// BackendMemory is the in-process index; its vectors live only as long as the process
const BackendMemory = "memory"

// Supported component names
var (
	Backends  = []string{BackendMemory, "charm", "pgvector", "redis"}
	Providers = []string{"gemini", "openai"}
	Fetchers  = []string{"http", "chromedp"}
	Cleaners  = []string{"boilerplate", "readability"}
)

// DefaultSources are the portfolio pages ingested when nothing is configured
var DefaultSources = []string{"/", "/about", "/projects", "/chat"}

// Config holds all configuration for sitechat
type Config struct {
	Site      SiteConfig      `mapstructure:"site"`
	Chunk     ChunkConfig     `mapstructure:"chunk"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Chat      ChatConfig      `mapstructure:"chat"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Index     IndexConfig     `mapstructure:"index"`
	Charm     CharmConfig     `mapstructure:"charm"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// SiteConfig names the site being indexed
type SiteConfig struct {
	URL     string   `mapstructure:"url"`
	Sources []string `mapstructure:"sources"`
}

// ChunkConfig mirrors models.ChunkConfig with config-file keys
type ChunkConfig struct {
	Size       int      `mapstructure:"size"`
	Overlap    int      `mapstructure:"overlap"`
	Separators []string `mapstructure:"separators"`
}

// IngestConfig controls fetching and embedding during ingestion
type IngestConfig struct {
	MinContentLength int           `mapstructure:"min_content_length"`
	EmbedConcurrency int           `mapstructure:"embed_concurrency"`
	EmbedRetries     int           `mapstructure:"embed_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Fetcher          string        `mapstructure:"fetcher"`
	Cleaner          string        `mapstructure:"cleaner"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

// EmbeddingConfig selects the embedding provider and vector size
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

// ChatConfig selects the chat completion provider
type ChatConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// IndexConfig selects the vector backend and its connection settings
type IndexConfig struct {
	Backend     string `mapstructure:"backend"`
	TextLimit   int    `mapstructure:"text_limit"`
	DatabaseURL string `mapstructure:"database_url"`
	Table       string `mapstructure:"table"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type CharmConfig struct {
	Host     string `mapstructure:"host"`
	DBName   string `mapstructure:"db"`
	AutoSync bool   `mapstructure:"auto_sync"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from defaults, the optional file at path, and the environment
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional unprefixed names win over nothing but lose to SITECHAT_*
	bindings := map[string][]string{
		"openai.api_key":     {"SITECHAT_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"gemini.api_key":     {"SITECHAT_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"index.database_url": {"SITECHAT_INDEX_DATABASE_URL", "DATABASE_URL"},
		"index.redis_url":    {"SITECHAT_INDEX_REDIS_URL", "REDIS_URL"},
		"site.url":           {"SITECHAT_SITE_URL", "SITE_URL"},
		"charm.host":         {"SITECHAT_CHARM_HOST", "CHARM_HOST"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	return &cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.url", "http://localhost:3000")
	v.SetDefault("site.sources", DefaultSources)

	v.SetDefault("chunk.size", models.DefaultChunkSize)
	v.SetDefault("chunk.overlap", models.DefaultChunkOverlap)
	v.SetDefault("chunk.separators", models.DefaultSeparators)

	v.SetDefault("ingest.min_content_length", models.DefaultMinContentLength)
	v.SetDefault("ingest.embed_concurrency", 0)
	v.SetDefault("ingest.embed_retries", 0)
	v.SetDefault("ingest.retry_delay", 2*time.Second)
	v.SetDefault("ingest.timeout", 30*time.Second)
	v.SetDefault("ingest.fetcher", "http")
	v.SetDefault("ingest.cleaner", "boilerplate")

	v.SetDefault("retrieval.top_k", 5)

	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimension", models.DefaultEmbeddingDimension)

	v.SetDefault("chat.provider", "gemini")
	v.SetDefault("chat.model", "")
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.max_tokens", 1000)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "")

	v.SetDefault("index.backend", BackendMemory)
	v.SetDefault("index.text_limit", models.DefaultMetadataTextLimit)
	v.SetDefault("index.database_url", "")
	v.SetDefault("index.table", "site_vectors")
	v.SetDefault("index.redis_url", "redis://localhost:6379/0")
	v.SetDefault("index.redis_prefix", "sitechat")

	v.SetDefault("charm.host", "charm.2389.dev")
	v.SetDefault("charm.db", "sitechat")
	v.SetDefault("charm.auto_sync", true)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("log.level", "info")
}

// normalize lowercases component names and trims the site URL
func (c *Config) normalize() {
	c.Site.URL = strings.TrimRight(strings.TrimSpace(c.Site.URL), "/")
	c.Ingest.Fetcher = strings.ToLower(strings.TrimSpace(c.Ingest.Fetcher))
	c.Ingest.Cleaner = strings.ToLower(strings.TrimSpace(c.Ingest.Cleaner))
	c.Embedding.Provider = strings.ToLower(strings.TrimSpace(c.Embedding.Provider))
	c.Chat.Provider = strings.ToLower(strings.TrimSpace(c.Chat.Provider))
	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
}

// ChunkSettings converts the chunk section into the chunker's config
func (c *Config) ChunkSettings() models.ChunkConfig {
	seps := make([]string, len(c.Chunk.Separators))
	copy(seps, c.Chunk.Separators)
	return models.ChunkConfig{ChunkSize: c.Chunk.Size, Overlap: c.Chunk.Overlap, Separators: seps}
}

// Validate rejects settings that would fail later in the pipeline
func (c *Config) Validate() error {
	if err := c.ChunkSettings().Validate(); err != nil {
		return err
	}
	if c.Embedding.Dimension <= 0 {
		return invalid("embedding.dimension", "must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Retrieval.TopK <= 0 {
		return invalid("retrieval.top_k", "must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Ingest.MinContentLength < 0 {
		return invalid("ingest.min_content_length", "must not be negative, got %d", c.Ingest.MinContentLength)
	}
	if c.Ingest.EmbedConcurrency < 0 {
		return invalid("ingest.embed_concurrency", "must not be negative, got %d", c.Ingest.EmbedConcurrency)
	}
	if c.Ingest.EmbedRetries < 0 || c.Ingest.EmbedRetries > 10 {
		return invalid("ingest.embed_retries", "must be 0-10, got %d", c.Ingest.EmbedRetries)
	}
	if c.Ingest.Timeout <= 0 {
		return invalid("ingest.timeout", "must be positive, got %s", c.Ingest.Timeout)
	}
	if c.Index.TextLimit <= 0 {
		return invalid("index.text_limit", "must be positive, got %d", c.Index.TextLimit)
	}
	if c.Site.URL == "" {
		return invalid("site.url", "is required")
	}
	if len(c.Site.Sources) == 0 {
		return invalid("site.sources", "at least one source is required")
	}

	choices := []struct {
		field string
		value string
		allow []string
	}{
		{"index.backend", c.Index.Backend, Backends},
		{"embedding.provider", c.Embedding.Provider, Providers},
		{"chat.provider", c.Chat.Provider, Providers},
		{"ingest.fetcher", c.Ingest.Fetcher, Fetchers},
		{"ingest.cleaner", c.Ingest.Cleaner, Cleaners},
	}
	for _, ch := range choices {
		if !contains(ch.allow, ch.value) {
			return invalid(ch.field, "unknown value %q (want one of %s)", ch.value, strings.Join(ch.allow, ", "))
		}
	}

	if c.Index.Backend == "pgvector" && c.Index.DatabaseURL == "" {
		return invalid("index.database_url", "required for the pgvector backend")
	}
	return nil
}

func invalid(field, format string, args ...interface{}) error {
	return &models.ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func contains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}
