// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every upstream client.
type HTTPConfig struct {
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "whats-next/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// GraphConfig holds settings for the citation graph fetchers.
type GraphConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey is the Semantic Scholar API key sent as x-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Limit caps the neighbors requested per direction (default and maximum 1000).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// MinInterval is the minimum delay before and between calls (default 2.05s).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval" mapstructure:"min_interval"`
}

// SearchConfig holds settings for the web search fetcher.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults caps the search hits inspected per query (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// MinInterval is the minimum delay between search requests (default 1s).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval" mapstructure:"min_interval"`
}

// LookupConfig holds settings for the arXiv paper lookup.
type LookupConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MinInterval is the minimum delay between lookups (default 3s, arXiv's published limit).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval" mapstructure:"min_interval"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "hash", "openai", or "ollama" (default "hash").
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the provider model name (e.g. "text-embedding-3-small").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates against the provider when required.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Dimensions is the vector size for the hash provider (512 when unset).
	// For the openai provider a positive value is sent as the requested
	// output size; ollama ignores it.
	Dimensions int `json:"dimensions" yaml:"dimensions" mapstructure:"dimensions"`

	// BatchSize caps the texts sent per provider call (default 128).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
}

// IndexBackend identifies the vector store implementation.
type IndexBackend string

const (
	IndexMemory        IndexBackend = "memory"
	IndexSQLite        IndexBackend = "sqlite"
	IndexRedis         IndexBackend = "redis"
	IndexElasticsearch IndexBackend = "elasticsearch"
)

// IndexConfig holds settings for the vector index store.
type IndexConfig struct {
	// Backend selects memory, sqlite, redis, or elasticsearch (default sqlite).
	Backend IndexBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Dir is the base directory for sqlite indexes (default "db").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Addr is the Redis address or the Elasticsearch URL.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" mapstructure:"addr"`

	// Password authenticates against Redis.
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`

	// APIKey authenticates against Elasticsearch.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Prefix namespaces index names in shared Redis or Elasticsearch clusters (default "whatsnext").
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// DefaultK is the number of results returned when a request leaves k unset (default 10).
	DefaultK int `json:"default_k" yaml:"default_k" mapstructure:"default_k"`
}

// LibraryConfig holds settings for the Zotero user library.
type LibraryConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// UserID is the numeric Zotero library id.
	UserID string `json:"user_id" yaml:"user_id" mapstructure:"user_id"`

	// Type is "user" or "group" (default "user").
	Type string `json:"type" yaml:"type" mapstructure:"type"`

	// APIKey is sent as the Zotero-API-Key header.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// JudgeConfig holds settings for the LLM judgment collaborator.
type JudgeConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider is "openai" or "anthropic" (default "openai").
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the chat model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates against the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Interests describes the reader for read/skip judgments.
	Interests string `json:"interests" yaml:"interests" mapstructure:"interests"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// RequestTimeout bounds one recommendation request, fetches included (default 5m).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn, or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every component configuration.
type Config struct {
	Graph     GraphConfig     `json:"graph" yaml:"graph" mapstructure:"graph"`
	Search    SearchConfig    `json:"search" yaml:"search" mapstructure:"search"`
	Lookup    LookupConfig    `json:"lookup" yaml:"lookup" mapstructure:"lookup"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Index     IndexConfig     `json:"index" yaml:"index" mapstructure:"index"`
	Library   LibraryConfig   `json:"library" yaml:"library" mapstructure:"library"`
	Judge     JudgeConfig     `json:"judge" yaml:"judge" mapstructure:"judge"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "whats-next/0.1"

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	httpCfg := HTTPConfig{Timeout: 30 * time.Second, UserAgent: DefaultUserAgent}
	return Config{
		Graph: GraphConfig{
			HTTPConfig:  httpCfg,
			Limit:       1000,
			MinInterval: 2050 * time.Millisecond,
		},
		Search: SearchConfig{
			HTTPConfig:  httpCfg,
			MaxResults:  20,
			MinInterval: time.Second,
		},
		Lookup: LookupConfig{
			HTTPConfig:  httpCfg,
			MinInterval: 3 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			BatchSize: 128,
		},
		Index: IndexConfig{
			Backend:  IndexSQLite,
			Dir:      "db",
			Prefix:   "whatsnext",
			DefaultK: 10,
		},
		Library: LibraryConfig{HTTPConfig: httpCfg, Type: "user"},
		Judge: JudgeConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: DefaultUserAgent},
			Provider:   "openai",
			Model:      "gpt-4o-mini",
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  5 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}
