// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences fetch, merge, index and rank for the two
// request shapes: the neighborhood of one seed paper ("what's next") and
// the combined neighborhood of a library collection (the digest).
//
// Fetcher failures are soft. A failed fetch contributes no documents, is
// reported in Response.Sources, and the request carries on. Only an index
// build failure ends a request with an error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/whats-next/internal/dedupe"
	"github.com/pdiddy/whats-next/internal/index"
	"github.com/pdiddy/whats-next/internal/judge"
	"github.com/pdiddy/whats-next/internal/library"
	"github.com/pdiddy/whats-next/internal/source"
	"github.com/pdiddy/whats-next/pkg/types"
)

var (
	// ErrInvalidRequest marks a request missing its seed, collection or query.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoLibrary marks a digest request on a pipeline without a library.
	ErrNoLibrary = errors.New("no library configured")
)

// Library is the user-library collaborator used by the digest flow.
type Library interface {
	CollectionKey(ctx context.Context, name string) (string, error)
	CollectionItems(ctx context.Context, key string) ([]library.Item, error)
}

// Pipeline holds the collaborators for both flows. Citing, CitedBy, Web and
// Index are required; Lookup, Library and Judge are optional.
type Pipeline struct {
	Citing  source.Fetcher
	CitedBy source.Fetcher
	Web     source.Fetcher
	Lookup  source.PaperLookup
	Library Library
	Index   *index.Manager
	Judge   judge.Judge
	Logger  *slog.Logger

	// GraphLimit and WebLimit are passed to the fetchers; zero means the
	// fetcher's own default.
	GraphLimit int
	WebLimit   int
}

// NextRequest asks for papers to read after one seed paper.
type NextRequest struct {
	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`
	Query   string `json:"query" yaml:"query"`
	K       int    `json:"k,omitempty" yaml:"k,omitempty"`
	Enrich  bool   `json:"enrich,omitempty" yaml:"enrich,omitempty"`
}

// DigestRequest asks for papers to read after a whole collection.
type DigestRequest struct {
	Collection string `json:"collection" yaml:"collection"`
	Query      string `json:"query" yaml:"query"`
	K          int    `json:"k,omitempty" yaml:"k,omitempty"`
	Enrich     bool   `json:"enrich,omitempty" yaml:"enrich,omitempty"`

	// Library, when set, replaces the pipeline's library for this request.
	Library Library `json:"-" yaml:"-"`
}

// SourceReport is the outcome of one fetch.
type SourceReport struct {
	Source string `json:"source" yaml:"source"`
	Input  string `json:"input" yaml:"input"`
	Count  int    `json:"count" yaml:"count"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Member is a collection item and the arXiv id it resolved to.
type Member struct {
	Title   string `json:"title" yaml:"title"`
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Response is the outcome of one request.
type Response struct {
	IndexName  string               `json:"index_name" yaml:"index_name"`
	Query      string               `json:"query" yaml:"query"`
	Seed       *types.PaperMetadata `json:"seed,omitempty" yaml:"seed,omitempty"`
	Members    []Member             `json:"members,omitempty" yaml:"members,omitempty"`
	Candidates int                  `json:"candidates" yaml:"candidates"`
	Sources    []SourceReport       `json:"sources" yaml:"sources"`
	Results    []types.RankedResult `json:"results" yaml:"results"`
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func report(input string, r source.Result) SourceReport {
	rep := SourceReport{Source: r.Source, Input: input, Count: len(r.Documents)}
	if r.Err != nil {
		rep.Error = r.Err.Error()
	}
	return rep
}

// WhatsNext fetches the seed's citation neighborhood and web results for
// the query, merges them, rebuilds the index named after the seed and
// returns the top k matches. The seed lookup, the two graph fetches (in
// sequence) and the web fetch run concurrently.
func (p *Pipeline) WhatsNext(ctx context.Context, req NextRequest) (*Response, error) {
	seed := strings.TrimSpace(req.ArxivID)
	query := strings.TrimSpace(req.Query)
	if seed == "" || query == "" {
		return nil, fmt.Errorf("%w: arxiv id and query are required", ErrInvalidRequest)
	}
	if id, ok := source.ParseArxivID(seed); ok {
		seed = id
	}
	log := p.logger().With("seed", seed)

	var (
		meta                 *types.PaperMetadata
		citing, citedBy, web source.Result
		g                    errgroup.Group
	)
	if p.Lookup != nil {
		g.Go(func() error {
			m, err := p.Lookup.ByID(ctx, seed)
			if err != nil {
				log.Warn("seed lookup failed", "err", err)
				return nil
			}
			log.Info("seed resolved", "title", m.Title, "categories", m.Categories)
			meta = &m
			return nil
		})
	}
	g.Go(func() error {
		citing = p.Citing.Fetch(ctx, seed, p.GraphLimit)
		citedBy = p.CitedBy.Fetch(ctx, seed, p.GraphLimit)
		return nil
	})
	g.Go(func() error {
		web = p.Web.Fetch(ctx, query, p.WebLimit)
		return nil
	})
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var existing []string
	if meta != nil {
		existing = append(existing, meta.Title)
	}
	docs := dedupe.Merge(existing, citing.Documents, citedBy.Documents, web.Documents)
	log.Info("sources merged", "citations", len(citing.Documents), "cited_by", len(citedBy.Documents),
		"web", len(web.Documents), "merged", len(docs))

	resp := &Response{
		Query:      query,
		Seed:       meta,
		Candidates: len(docs),
		Sources:    []SourceReport{report(seed, citing), report(seed, citedBy), report(query, web)},
	}
	if err := p.rank(ctx, index.SanitizeName(seed), query, req.K, req.Enrich, docs, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Digest resolves every member of a collection to an arXiv id, expands
// each through the citation graph, adds one web search for the query, and
// ranks the combined set in an index named after the collection. Members
// that cannot be resolved are reported and skipped. Papers whose titles are
// already in the collection are never recommended.
func (p *Pipeline) Digest(ctx context.Context, req DigestRequest) (*Response, error) {
	name := strings.TrimSpace(req.Collection)
	query := strings.TrimSpace(req.Query)
	if name == "" || query == "" {
		return nil, fmt.Errorf("%w: collection and query are required", ErrInvalidRequest)
	}
	lib := p.Library
	if req.Library != nil {
		lib = req.Library
	}
	if lib == nil {
		return nil, ErrNoLibrary
	}
	log := p.logger().With("collection", name)

	key, err := lib.CollectionKey(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolving collection %q: %w", name, err)
	}
	items, err := lib.CollectionItems(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("listing collection %q: %w", name, err)
	}

	// Web search does not depend on the members; start it now.
	var (
		web source.Result
		g   errgroup.Group
	)
	g.Go(func() error {
		web = p.Web.Fetch(ctx, query, p.WebLimit)
		return nil
	})

	members := p.resolveMembers(ctx, items)
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}

	resp := &Response{Query: query, Members: members}
	merger := dedupe.NewMerger(titles)
	for _, m := range members {
		if m.ArxivID == "" {
			continue
		}
		for _, f := range []source.Fetcher{p.Citing, p.CitedBy} {
			r := f.Fetch(ctx, m.ArxivID, p.GraphLimit)
			merger.Add(r.Documents)
			resp.Sources = append(resp.Sources, report(m.ArxivID, r))
		}
	}

	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	merger.Add(web.Documents)
	resp.Sources = append(resp.Sources, report(query, web))

	docs := merger.Documents()
	resp.Candidates = len(docs)
	log.Info("collection expanded", "members", len(items), "resolved", countResolved(members),
		"merged", len(docs), "rejected", merger.Rejected)

	if err := p.rank(ctx, name, query, req.K, req.Enrich, docs, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// resolveMembers maps items to arXiv ids: an arXiv DOI is used directly,
// anything else goes through a title lookup.
func (p *Pipeline) resolveMembers(ctx context.Context, items []library.Item) []Member {
	members := make([]Member, len(items))
	for i, it := range items {
		members[i].Title = it.Title
		if id, ok := source.ParseArxivID(it.DOI); ok {
			members[i].ArxivID = id
			continue
		}
		if p.Lookup == nil {
			members[i].Error = "no paper lookup configured"
			continue
		}
		meta, err := p.Lookup.ByTitle(ctx, it.Title)
		if err != nil {
			p.logger().Warn("skipping unresolved member", "title", it.Title, "err", err)
			members[i].Error = err.Error()
			continue
		}
		members[i].ArxivID = meta.ID
	}
	return members
}

func countResolved(members []Member) int {
	n := 0
	for _, m := range members {
		if m.ArxivID != "" {
			n++
		}
	}
	return n
}

// rank rebuilds the named index from docs and fills resp with the top k.
func (p *Pipeline) rank(ctx context.Context, name, query string, k int, enrich bool, docs []types.SourceDocument, resp *Response) error {
	idx, err := p.Index.Build(ctx, name, docs)
	if err != nil {
		return err
	}
	defer idx.Release()
	resp.IndexName = idx.Name()

	results, err := rankIndex(ctx, idx, query, k)
	if err != nil {
		return err
	}
	if enrich {
		p.enrich(ctx, query, results)
	}
	resp.Results = results
	p.logger().Info("ranked", "index", idx.Name(), "indexed", idx.Size(), "returned", len(results))
	return nil
}

func rankIndex(ctx context.Context, idx *index.Index, query string, k int) ([]types.RankedResult, error) {
	hits, err := idx.Query(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", idx.Name(), err)
	}
	results := make([]types.RankedResult, len(hits))
	for i, h := range hits {
		results[i] = types.NewRankedResult(h.Document, h.Score)
	}
	return results, nil
}

func (p *Pipeline) enrich(ctx context.Context, query string, results []types.RankedResult) {
	if p.Judge == nil {
		p.logger().Warn("enrichment requested but no judge configured")
		return
	}
	judge.Enrich(ctx, p.Judge, query, results, p.logger())
}

// Search ranks an index persisted by an earlier request without fetching.
func (p *Pipeline) Search(ctx context.Context, name, query string, k int, enrich bool) ([]types.RankedResult, error) {
	query = strings.TrimSpace(query)
	if strings.TrimSpace(name) == "" || query == "" {
		return nil, fmt.Errorf("%w: index name and query are required", ErrInvalidRequest)
	}
	idx, err := p.Index.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer idx.Release()

	results, err := rankIndex(ctx, idx, query, k)
	if err != nil {
		return nil, err
	}
	if enrich {
		p.enrich(ctx, query, results)
	}
	return results, nil
}
