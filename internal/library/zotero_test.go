// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/whats-next/internal/logger"
	"github.com/pdiddy/whats-next/pkg/types"
)

func serveZotero(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	orig := zoteroAPIBase
	zoteroAPIBase = srv.URL
	t.Cleanup(func() { zoteroAPIBase = orig })
}

func newTestZotero(t *testing.T, cfg types.LibraryConfig) *Zotero {
	t.Helper()
	if cfg.UserID == "" {
		cfg.UserID = "12345"
	}
	z, err := NewZotero(cfg, logger.Discard())
	require.NoError(t, err)
	return z
}

func writeJSON(t *testing.T, w http.ResponseWriter, total int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Total-Results", strconv.Itoa(total))
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestCollections(t *testing.T) {
	serveZotero(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/12345/collections", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Zotero-API-Key"))
		assert.Equal(t, "3", r.Header.Get("Zotero-API-Version"))
		writeJSON(t, w, 3, []map[string]any{
			{"key": "AAAA", "data": map[string]any{"key": "AAAA", "name": "Reading List"}},
			{"key": "BBBB", "data": map[string]any{"key": "BBBB", "name": "Thesis"}},
			{"key": "CCCC", "data": map[string]any{"key": "CCCC", "name": "Reading List"}},
		})
	})

	cols, err := newTestZotero(t, types.LibraryConfig{APIKey: "secret"}).Collections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Reading List": "AAAA", "Thesis": "BBBB"}, cols)
}

func TestCollectionKey_Unknown(t *testing.T) {
	serveZotero(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, 0, []any{})
	})
	_, err := newTestZotero(t, types.LibraryConfig{}).CollectionKey(context.Background(), "Missing")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestCollectionItems(t *testing.T) {
	serveZotero(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/777/collections/AAAA/items/top", r.URL.Path)
		writeJSON(t, w, 4, []map[string]any{
			{"key": "1", "data": map[string]any{"itemType": "journalArticle", "title": "Attention Is All You Need", "DOI": "10.48550/arXiv.1706.03762"}},
			{"key": "2", "data": map[string]any{"itemType": "preprint", "title": "  Deep Sets  "}},
			{"key": "3", "data": map[string]any{"itemType": "note", "title": "my notes"}},
			{"key": "4", "data": map[string]any{"itemType": "book", "title": ""}},
		})
	})

	items, err := newTestZotero(t, types.LibraryConfig{UserID: "777", Type: "group"}).
		CollectionItems(context.Background(), "AAAA")
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{Title: "Attention Is All You Need", DOI: "10.48550/arXiv.1706.03762"},
		{Title: "Deep Sets"},
	}, items)
}

func TestCollectionItems_Paginates(t *testing.T) {
	const total = 130
	var starts []string
	serveZotero(t, func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		starts = append(starts, r.URL.Query().Get("start"))
		var page []map[string]any
		for i := start; i < min(start+pageSize, total); i++ {
			page = append(page, map[string]any{"key": fmt.Sprint(i), "data": map[string]any{"itemType": "preprint", "title": fmt.Sprintf("Paper %d", i)}})
		}
		writeJSON(t, w, total, page)
	})

	items, err := newTestZotero(t, types.LibraryConfig{}).CollectionItems(context.Background(), "K")
	require.NoError(t, err)
	assert.Len(t, items, total)
	assert.Equal(t, []string{"0", "100"}, starts)
}

func TestCollectionItems_HTTPError(t *testing.T) {
	serveZotero(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
	_, err := newTestZotero(t, types.LibraryConfig{}).CollectionItems(context.Background(), "K")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestNewZotero_Validation(t *testing.T) {
	_, err := NewZotero(types.LibraryConfig{}, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewZotero(types.LibraryConfig{UserID: "1", Type: "team"}, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}
