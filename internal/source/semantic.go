// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/whats-next/internal/httputil"
	"github.com/pdiddy/whats-next/internal/normalize"
	"github.com/pdiddy/whats-next/pkg/types"
)

// semanticGraphBase is the Semantic Scholar graph paper endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticGraphBase = "https://api.semanticscholar.org/graph/v1/paper"

const (
	graphFields   = "paperId,title,abstract,year,url"
	maxGraphLimit = 1000
)

// direction selects which side of the citation graph to walk.
type direction struct {
	name     string
	path     string // URL suffix after the paper reference
	key      string // field holding the neighbor in each data item
	tag      types.SourceType
	upstream string
}

var (
	referencesDirection = direction{
		name: "citing", path: "references", key: "citedPaper",
		tag: types.SourceCitation, upstream: "Semantic Scholar references",
	}
	citationsDirection = direction{
		name: "cited_by", path: "citations", key: "citingPaper",
		tag: types.SourceCitedPaper, upstream: "Semantic Scholar citations",
	}
)

// SemanticScholar is the citation graph client. Both directions share one
// Pacer because they share one upstream rate-limit domain.
type SemanticScholar struct {
	client *http.Client
	pacer  *httputil.Pacer
	cfg    types.GraphConfig
	logger *slog.Logger
}

// NewSemanticScholar builds a graph client. The pacer enforces the
// upstream's minimum spacing before and between every call.
func NewSemanticScholar(cfg types.GraphConfig, pacer *httputil.Pacer, logger *slog.Logger) *SemanticScholar {
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticScholar{
		client: httputil.NewClient(cfg.HTTPConfig),
		pacer:  pacer,
		cfg:    cfg,
		logger: logger,
	}
}

// CitingFetcher returns the fetcher for papers the seed cites (its
// references), tagged "citation".
func (s *SemanticScholar) CitingFetcher() Fetcher {
	return &graphFetcher{client: s, dir: referencesDirection}
}

// CitedByFetcher returns the fetcher for papers citing the seed, tagged
// "cited_paper".
func (s *SemanticScholar) CitedByFetcher() Fetcher {
	return &graphFetcher{client: s, dir: citationsDirection}
}

type graphFetcher struct {
	client *SemanticScholar
	dir    direction
}

func (f *graphFetcher) Name() string { return f.dir.name }

func (f *graphFetcher) Fetch(ctx context.Context, paperID string, limit int) Result {
	recs, err := f.client.neighbors(ctx, paperID, f.dir, limit)
	if err != nil {
		f.client.logger.Warn("graph fetch failed", "fetcher", f.dir.name, "paper", paperID, "err", err)
		return Failed(f.dir.name, err)
	}
	docs := normalize.All(recs, f.client.logger)
	f.client.logger.Info("graph fetch complete", "fetcher", f.dir.name, "paper", paperID,
		"received", len(recs), "accepted", len(docs))
	return Ok(f.dir.name, docs)
}

// neighbors requests one direction of the graph for paperID. Each data item
// is decoded on its own so one malformed record cannot void the response.
func (s *SemanticScholar) neighbors(ctx context.Context, paperID string, dir direction, limit int) ([]normalize.RawRecord, error) {
	if paperID == "" {
		return nil, fmt.Errorf("empty paper id")
	}
	if limit <= 0 {
		limit = s.cfg.Limit
	}
	if limit <= 0 || limit > maxGraphLimit {
		limit = maxGraphLimit
	}

	if err := s.pacer.AwaitSlot(ctx); err != nil {
		return nil, fmt.Errorf("waiting for %s slot: %w", dir.upstream, err)
	}

	params := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"fields": {graphFields},
	}
	reqURL := fmt.Sprintf("%s/%s/%s?%s", semanticGraphBase,
		url.PathEscape(graphPaperRef(paperID)), dir.path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("x-api-key", s.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", dir.upstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Upstream: dir.upstream, StatusCode: resp.StatusCode}
	}

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", dir.upstream, err)
	}

	recs := make([]normalize.RawRecord, 0, len(body.Data))
	for _, raw := range body.Data {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(raw, &item); err != nil {
			s.logger.Debug("skipping malformed graph item", "err", err)
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(item[dir.key], &fields); err != nil || fields == nil {
			s.logger.Debug("skipping graph item without paper", "key", dir.key)
			continue
		}
		recs = append(recs, normalize.RawRecord{SourceType: dir.tag, Fields: fields})
	}
	return recs, nil
}
