// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed constructs the embedding function used to index and query
// documents. Every provider satisfies eino's embedding.Embedder.
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/pdiddy/whats-next/pkg/types"
)

// ErrConfiguration marks a missing credential or an unsupported provider.
var ErrConfiguration = errors.New("embedding configuration error")

const (
	defaultOpenAIModel = "text-embedding-3-small"
	defaultOllamaURL   = "http://localhost:11434/v1"
	defaultOllamaModel = "nomic-embed-text"
	defaultBatchSize   = 128
)

// New builds the configured provider wrapped in batching. Unknown provider
// names and missing credentials fail here rather than at first use.
func New(ctx context.Context, cfg types.EmbeddingConfig) (embedding.Embedder, error) {
	var (
		e   embedding.Embedder
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "hash":
		e = NewHashEmbedder(cfg.Dimensions)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai provider requires an API key", ErrConfiguration)
		}
		oc := &openaiEmbed.EmbeddingConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   orDefault(cfg.Model, defaultOpenAIModel),
		}
		if cfg.Dimensions > 0 {
			dim := cfg.Dimensions
			oc.Dimensions = &dim
		}
		e, err = openaiEmbed.NewEmbedder(ctx, oc)
	case "ollama":
		// Ollama serves an OpenAI-compatible API and ignores the key.
		e, err = openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
			APIKey:  orDefault(cfg.APIKey, "ollama"),
			BaseURL: orDefault(cfg.BaseURL, defaultOllamaURL),
			Model:   orDefault(cfg.Model, defaultOllamaModel),
		})
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s embedder: %w", ErrConfiguration, cfg.Provider, err)
	}
	return Batched(e, cfg.BatchSize), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// batched splits large inputs across several provider calls. Any failed
// batch fails the whole call; partial output is never returned.
type batched struct {
	inner embedding.Embedder
	size  int
}

// Batched wraps e so that no single call carries more than size texts.
func Batched(e embedding.Embedder, size int) embedding.Embedder {
	if size <= 0 {
		size = defaultBatchSize
	}
	return &batched{inner: e, size: size}
}

func (b *batched) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += b.size {
		end := min(start+b.size, len(texts))
		vecs, err := b.inner.EmbedStrings(ctx, texts[start:end], opts...)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedding batch %d-%d: got %d vectors for %d texts", start, end, len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
