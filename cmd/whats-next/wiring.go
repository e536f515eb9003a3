// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/pdiddy/whats-next/internal/embed"
	"github.com/pdiddy/whats-next/internal/httputil"
	"github.com/pdiddy/whats-next/internal/index"
	"github.com/pdiddy/whats-next/internal/judge"
	"github.com/pdiddy/whats-next/internal/library"
	"github.com/pdiddy/whats-next/internal/pipeline"
	"github.com/pdiddy/whats-next/internal/source"
	"github.com/pdiddy/whats-next/pkg/types"
)

// components is everything a command may need, built from one Config.
type components struct {
	pipeline *pipeline.Pipeline
	store    index.Store
}

func (c *components) Close() error {
	return c.store.Close()
}

// buildOptions selects the optional collaborators.
type buildOptions struct {
	// judge builds the LLM judge; failure is an error.
	judge bool
	// optionalJudge builds the judge when a key is configured and logs
	// instead of failing otherwise.
	optionalJudge bool
}

// buildComponents wires fetchers, the index manager and the optional
// library and judge into a pipeline. The citation fetchers share one pacer
// because they call the same upstream.
func buildComponents(ctx context.Context, cfg types.Config, opts buildOptions) (*components, error) {
	log := appLogger

	embedder, err := embed.New(ctx, cfg.Embedding)
	if err != nil {
		return nil, err
	}
	store, err := index.Open(ctx, cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("opening %s index store: %w", cfg.Index.Backend, err)
	}
	manager := index.NewManager(store, embedder, index.WithLogger(log), index.WithDefaultK(cfg.Index.DefaultK))

	graph := source.NewSemanticScholar(cfg.Graph, httputil.NewPacer(cfg.Graph.MinInterval), log)
	lookup := source.NewArxivLookup(cfg.Lookup, httputil.NewPacer(cfg.Lookup.MinInterval), log)
	search := source.NewDuckDuckGo(cfg.Search, httputil.NewPacer(cfg.Search.MinInterval))

	p := &pipeline.Pipeline{
		Citing:     graph.CitingFetcher(),
		CitedBy:    graph.CitedByFetcher(),
		Web:        source.NewWebSearchFetcher(search, lookup, log),
		Lookup:     lookup,
		Index:      manager,
		Logger:     log,
		GraphLimit: cfg.Graph.Limit,
		WebLimit:   cfg.Search.MaxResults,
	}

	if cfg.Library.UserID != "" {
		z, err := library.NewZotero(cfg.Library, log)
		if err != nil {
			store.Close()
			return nil, err
		}
		p.Library = z
	}

	switch {
	case opts.judge:
		j, err := judge.New(ctx, cfg.Judge, log)
		if err != nil {
			store.Close()
			return nil, err
		}
		p.Judge = j
	case opts.optionalJudge && cfg.Judge.APIKey != "":
		j, err := judge.New(ctx, cfg.Judge, log)
		if err != nil {
			log.Warn("judge disabled", "err", err)
			break
		}
		p.Judge = j
	}

	log.Debug("components ready",
		"index_backend", cfg.Index.Backend,
		"embedding", cfg.Embedding.Provider,
		"library", p.Library != nil,
		"judge", p.Judge != nil)
	return &components{pipeline: p, store: store}, nil
}
