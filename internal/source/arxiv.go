// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/whats-next/internal/dedupe"
	"github.com/pdiddy/whats-next/internal/httputil"
	"github.com/pdiddy/whats-next/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// titleCandidates is how many title-search hits are compared against the
// requested title before falling back to the top hit.
const titleCandidates = 5

// ArxivLookup resolves arXiv ids and titles to paper metadata.
type ArxivLookup struct {
	client *http.Client
	pacer  *httputil.Pacer
	cfg    types.LookupConfig
	logger *slog.Logger
}

// NewArxivLookup builds a lookup client paced by pacer.
func NewArxivLookup(cfg types.LookupConfig, pacer *httputil.Pacer, logger *slog.Logger) *ArxivLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArxivLookup{
		client: httputil.NewClient(cfg.HTTPConfig),
		pacer:  pacer,
		cfg:    cfg,
		logger: logger,
	}
}

// ByID fetches metadata for one arXiv id.
func (a *ArxivLookup) ByID(ctx context.Context, id string) (types.PaperMetadata, error) {
	bare, ok := ParseArxivID(id)
	if !ok {
		return types.PaperMetadata{}, fmt.Errorf("%w: %q is not an arXiv id", ErrResolutionFailure, id)
	}

	entries, err := a.query(ctx, url.Values{"id_list": {bare}, "max_results": {"1"}})
	if err != nil {
		return types.PaperMetadata{}, err
	}
	if len(entries) == 0 {
		return types.PaperMetadata{}, fmt.Errorf("%w: no arXiv entry for %s", ErrResolutionFailure, bare)
	}
	return entries[0].metadata(), nil
}

// ByTitle searches arXiv by title and returns the entry whose normalized
// title matches exactly, or the top hit when none does.
func (a *ArxivLookup) ByTitle(ctx context.Context, title string) (types.PaperMetadata, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return types.PaperMetadata{}, fmt.Errorf("%w: empty title", ErrResolutionFailure)
	}

	// Quotes and colons are query syntax; keep the words.
	terms := strings.Fields(strings.NewReplacer(`"`, " ", ":", " ").Replace(title))
	entries, err := a.query(ctx, url.Values{
		"search_query": {`ti:"` + strings.Join(terms, " ") + `"`},
		"max_results":  {fmt.Sprintf("%d", titleCandidates)},
	})
	if err != nil {
		return types.PaperMetadata{}, err
	}
	if len(entries) == 0 {
		return types.PaperMetadata{}, fmt.Errorf("%w: no arXiv match for title %q", ErrResolutionFailure, title)
	}

	want := dedupe.NormalizeTitle(title)
	for _, e := range entries {
		if dedupe.NormalizeTitle(e.Title) == want {
			return e.metadata(), nil
		}
	}
	return entries[0].metadata(), nil
}

func (a *ArxivLookup) query(ctx context.Context, params url.Values) ([]arxivEntry, error) {
	if err := a.pacer.AwaitSlot(ctx); err != nil {
		return nil, fmt.Errorf("waiting for arXiv slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if a.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", a.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, a.client, req, 0, a.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: arXiv API request: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Upstream: "arXiv API", StatusCode: resp.StatusCode}
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: parsing arXiv response: %w", ErrUpstreamUnavailable, err)
	}

	entries := feed.Entries[:0]
	for _, e := range feed.Entries {
		// The API reports bad queries as a single entry under /api/errors.
		if strings.Contains(e.ID, "/api/errors") {
			return nil, fmt.Errorf("%w: arXiv API error: %s", ErrResolutionFailure, strings.TrimSpace(e.Summary))
		}
		if _, ok := ParseArxivID(e.ID); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Categories []arxivCategory `xml:"category"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

func (e arxivEntry) metadata() types.PaperMetadata {
	id, _ := ParseArxivID(e.ID)
	m := types.PaperMetadata{
		ID:      id,
		Title:   strings.Join(strings.Fields(e.Title), " "),
		Summary: strings.TrimSpace(e.Summary),
		EntryID: strings.TrimSpace(e.ID),
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			m.Categories = append(m.Categories, c.Term)
		}
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		m.Published = t
	}
	return m
}
