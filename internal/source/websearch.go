// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/whats-next/internal/httputil"
	"github.com/pdiddy/whats-next/internal/normalize"
	"github.com/pdiddy/whats-next/pkg/types"
)

// duckDuckGoBase is the DuckDuckGo Lite HTML endpoint. Declared as a var so
// tests can substitute an httptest server.
var duckDuckGoBase = "https://lite.duckduckgo.com/lite/"

// browserUserAgent is sent to DuckDuckGo, which rejects obvious bot agents.
const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// SearchHit is one keyword search result. Hits are not necessarily papers.
type SearchHit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// WebSearch runs a keyword query against a search engine.
type WebSearch interface {
	Search(ctx context.Context, query string, max int) ([]SearchHit, error)
}

// PaperLookup resolves arXiv ids and titles to metadata.
type PaperLookup interface {
	ByID(ctx context.Context, id string) (types.PaperMetadata, error)
	ByTitle(ctx context.Context, title string) (types.PaperMetadata, error)
}

// DuckDuckGo scrapes the DuckDuckGo Lite results page.
type DuckDuckGo struct {
	client *http.Client
	pacer  *httputil.Pacer
	cfg    types.SearchConfig
}

// NewDuckDuckGo builds a search client paced by pacer.
func NewDuckDuckGo(cfg types.SearchConfig, pacer *httputil.Pacer) *DuckDuckGo {
	return &DuckDuckGo{client: httputil.NewClient(cfg.HTTPConfig), pacer: pacer, cfg: cfg}
}

// Search returns up to max hits in page order.
func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if max <= 0 {
		max = d.cfg.MaxResults
	}
	if max <= 0 {
		max = 20
	}

	if err := d.pacer.AwaitSlot(ctx); err != nil {
		return nil, fmt.Errorf("waiting for search slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		duckDuckGoBase+"?"+url.Values{"q": {query}}.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Upstream: "DuckDuckGo", StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing DuckDuckGo page: %w", err)
	}
	return parseLiteResults(doc, max), nil
}

// parseLiteResults walks result links in document order. A snippet cell
// belongs to the most recent link before it.
func parseLiteResults(doc *goquery.Document, max int) []SearchHit {
	var hits []SearchHit
	doc.Find("a.result-link, td.result-snippet").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "a" {
			if len(hits) >= max {
				return false
			}
			href, _ := s.Attr("href")
			hits = append(hits, SearchHit{
				Title: strings.TrimSpace(s.Text()),
				Link:  cleanRedirect(href),
			})
			return true
		}
		if n := len(hits); n > 0 && hits[n-1].Snippet == "" {
			hits[n-1].Snippet = strings.TrimSpace(s.Text())
		}
		return true
	})
	return hits
}

// cleanRedirect unwraps DuckDuckGo's "/l/?uddg=<target>" redirect links.
func cleanRedirect(raw string) string {
	if !strings.Contains(raw, "uddg=") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return raw
}

// WebSearchFetcher turns keyword search hits into arXiv papers.
type WebSearchFetcher struct {
	search WebSearch
	lookup PaperLookup
	logger *slog.Logger
}

// NewWebSearchFetcher builds the web fetcher.
func NewWebSearchFetcher(search WebSearch, lookup PaperLookup, logger *slog.Logger) *WebSearchFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSearchFetcher{search: search, lookup: lookup, logger: logger}
}

// Name returns the fetcher identifier.
func (f *WebSearchFetcher) Name() string { return "web" }

// Fetch searches for query, keeps arXiv links, and resolves each distinct
// id through the paper lookup. Ids that fail to resolve are skipped.
func (f *WebSearchFetcher) Fetch(ctx context.Context, query string, limit int) Result {
	hits, err := f.search.Search(ctx, query, limit)
	if err != nil {
		f.logger.Warn("web search failed", "query", query, "err", err)
		return Failed(f.Name(), err)
	}

	ids := PaperIDs(hits)
	recs := make([]normalize.RawRecord, 0, len(ids))
	for _, id := range ids {
		meta, err := f.lookup.ByID(ctx, id)
		if err != nil {
			f.logger.Warn("skipping unresolved web hit", "arxiv_id", id, "err", err)
			continue
		}
		recs = append(recs, normalize.RawRecord{SourceType: types.SourceWeb, Fields: map[string]any{
			"id":        meta.ID,
			"title":     meta.Title,
			"abstract":  meta.Summary,
			"url":       meta.EntryID,
			"published": meta.Published,
		}})
	}

	docs := normalize.All(recs, f.logger)
	f.logger.Info("web fetch complete", "query", query,
		"hits", len(hits), "papers", len(ids), "accepted", len(docs))
	return Ok(f.Name(), docs)
}

// PaperIDs keeps hits linking to arxiv.org, excluding the ar5iv mirror,
// and returns their distinct version-free ids in hit order.
func PaperIDs(hits []SearchHit) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, h := range hits {
		if !strings.Contains(h.Link, "arxiv.org") || strings.Contains(h.Link, "ar5iv") {
			continue
		}
		id, ok := ParseArxivID(h.Link)
		if !ok {
			id = LastPathID(h.Link)
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
