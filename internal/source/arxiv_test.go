// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/whats-next/internal/logger"
	"github.com/pdiddy/whats-next/pkg/types"
)

func atomEntry(id, title, summary string) string {
	return fmt.Sprintf(`<entry>
  <id>http://arxiv.org/abs/%sv1</id>
  <published>2023-01-17T18:58:40Z</published>
  <title>%s</title>
  <summary>  %s  </summary>
  <category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
  <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
</entry>`, id, title, summary)
}

func atomFeed(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom">` +
		strings.Join(entries, "") + `</feed>`
}

func withArxivServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() {
		arxivAPIBase = old
		ts.Close()
	})
}

func newLookup() *ArxivLookup {
	return NewArxivLookup(types.LookupConfig{HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second}}, nil, logger.Discard())
}

func TestArxivLookup_ByID(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2301.07041", r.URL.Query().Get("id_list"))
		w.Write([]byte(atomFeed(atomEntry("2301.07041", "A  Title\n  Across Lines", "The summary."))))
	})

	meta, err := newLookup().ByID(context.Background(), "arXiv:2301.07041v3")
	require.NoError(t, err)
	assert.Equal(t, "2301.07041", meta.ID)
	assert.Equal(t, "A Title Across Lines", meta.Title)
	assert.Equal(t, "The summary.", meta.Summary)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, meta.Categories)
	assert.Equal(t, 2023, meta.Published.Year())
	assert.Equal(t, "http://arxiv.org/abs/2301.07041v1", meta.EntryID)
}

func TestArxivLookup_ByIDNotFound(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(atomFeed()))
	})
	_, err := newLookup().ByID(context.Background(), "2301.07041")
	assert.ErrorIs(t, err, ErrResolutionFailure)
}

func TestArxivLookup_ByIDRejectsNonArxiv(t *testing.T) {
	_, err := newLookup().ByID(context.Background(), "10.1145/123")
	assert.ErrorIs(t, err, ErrResolutionFailure)
}

func TestArxivLookup_APIErrorEntry(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(atomFeed(`<entry><id>http://arxiv.org/api/errors#incorrect_id_format</id><title>Error</title><summary>incorrect id format</summary></entry>`)))
	})
	_, err := newLookup().ByID(context.Background(), "2301.07041")
	assert.ErrorIs(t, err, ErrResolutionFailure)
}

func TestArxivLookup_HTTPError(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	_, err := newLookup().ByID(context.Background(), "2301.07041")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestArxivLookup_ByTitlePrefersExactMatch(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `ti:"Attention Is All You Need"`, r.URL.Query().Get("search_query"))
		w.Write([]byte(atomFeed(
			atomEntry("2001.00001", "Attention Is Not All You Need", "Other."),
			atomEntry("1706.03762", "Attention is all you need", "Transformer."),
		)))
	})

	meta, err := newLookup().ByTitle(context.Background(), "Attention Is All You Need")
	require.NoError(t, err)
	assert.Equal(t, "1706.03762", meta.ID)
}

func TestArxivLookup_ByTitleFallsBackToTopHit(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(atomFeed(atomEntry("2001.00001", "Something Close", "Close."))))
	})
	meta, err := newLookup().ByTitle(context.Background(), "Something: Close")
	require.NoError(t, err)
	assert.Equal(t, "2001.00001", meta.ID)
}

func TestArxivLookup_ByTitleEmpty(t *testing.T) {
	_, err := newLookup().ByTitle(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrResolutionFailure)
}
