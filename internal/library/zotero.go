// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library reads collections and their members from a Zotero user
// or group library through the Zotero web API v3.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/whats-next/internal/httputil"
	"github.com/pdiddy/whats-next/pkg/types"
)

// zoteroAPIBase is the Zotero web API root. Declared as a var so tests can
// substitute an httptest server.
var zoteroAPIBase = "https://api.zotero.org"

// pageSize is the largest page the Zotero API serves.
const pageSize = 100

var (
	// ErrCollectionNotFound marks a collection name absent from the library.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrConfiguration marks a missing library id or an unknown library type.
	ErrConfiguration = errors.New("library configuration error")
)

// Item is one collection member: its title and, when recorded, its DOI.
type Item struct {
	Title string `json:"title" yaml:"title"`
	DOI   string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// Zotero is a read-only client for one library.
type Zotero struct {
	client *http.Client
	cfg    types.LibraryConfig
	prefix string
	logger *slog.Logger
}

// NewZotero validates cfg and builds a client.
func NewZotero(cfg types.LibraryConfig, logger *slog.Logger) (*Zotero, error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, fmt.Errorf("%w: zotero library id not set", ErrConfiguration)
	}
	var prefix string
	switch cfg.Type {
	case "", "user":
		prefix = "/users/" + url.PathEscape(cfg.UserID)
	case "group":
		prefix = "/groups/" + url.PathEscape(cfg.UserID)
	default:
		return nil, fmt.Errorf("%w: library type %q (want user or group)", ErrConfiguration, cfg.Type)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Zotero{client: httputil.NewClient(cfg.HTTPConfig), cfg: cfg, prefix: prefix, logger: logger}, nil
}

type zoteroObject struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// Collections maps every collection name in the library to its key. When
// two collections share a name the first one listed wins.
func (z *Zotero) Collections(ctx context.Context) (map[string]string, error) {
	objs, err := z.list(ctx, z.prefix+"/collections")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(objs))
	for _, o := range objs {
		var data struct {
			Key  string `json:"key"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(o.Data, &data); err != nil {
			z.logger.Debug("skipping unreadable collection", "key", o.Key, "err", err)
			continue
		}
		key := data.Key
		if key == "" {
			key = o.Key
		}
		if _, dup := out[data.Name]; !dup && data.Name != "" {
			out[data.Name] = key
		}
	}
	return out, nil
}

// CollectionKey resolves a collection name to its key.
func (z *Zotero) CollectionKey(ctx context.Context, name string) (string, error) {
	cols, err := z.Collections(ctx)
	if err != nil {
		return "", err
	}
	key, ok := cols[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	return key, nil
}

// CollectionItems lists the top-level members of a collection. Notes,
// attachments and untitled items are skipped.
func (z *Zotero) CollectionItems(ctx context.Context, key string) ([]Item, error) {
	objs, err := z.list(ctx, z.prefix+"/collections/"+url.PathEscape(key)+"/items/top")
	if err != nil {
		return nil, err
	}
	var items []Item
	for _, o := range objs {
		var data struct {
			ItemType string `json:"itemType"`
			Title    string `json:"title"`
			DOI      string `json:"DOI"`
		}
		if err := json.Unmarshal(o.Data, &data); err != nil {
			z.logger.Debug("skipping unreadable item", "key", o.Key, "err", err)
			continue
		}
		if data.ItemType == "note" || data.ItemType == "attachment" {
			continue
		}
		title := strings.TrimSpace(data.Title)
		if title == "" {
			continue
		}
		items = append(items, Item{Title: title, DOI: strings.TrimSpace(data.DOI)})
	}
	return items, nil
}

// list follows start/limit pagination until Total-Results is reached.
func (z *Zotero) list(ctx context.Context, path string) ([]zoteroObject, error) {
	var all []zoteroObject
	for start := 0; ; start += pageSize {
		params := url.Values{
			"format": {"json"},
			"limit":  {strconv.Itoa(pageSize)},
			"start":  {strconv.Itoa(start)},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, zoteroAPIBase+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Zotero-API-Version", "3")
		if z.cfg.APIKey != "" {
			req.Header.Set("Zotero-API-Key", z.cfg.APIKey)
		}
		if z.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", z.cfg.UserAgent)
		}

		resp, err := httputil.DoWithRetry(ctx, z.client, req, 0, z.logger)
		if err != nil {
			return nil, fmt.Errorf("zotero request: %w", err)
		}
		page, total, err := decodePage(resp)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(page) < pageSize || (total >= 0 && len(all) >= total) {
			return all, nil
		}
	}
}

func decodePage(resp *http.Response) ([]zoteroObject, int, error) {
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, fmt.Errorf("%w: zotero returned HTTP 404", ErrCollectionNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, fmt.Errorf("zotero returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page []zoteroObject
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, 0, fmt.Errorf("decoding zotero response: %w", err)
	}
	total := -1
	if v, err := strconv.Atoi(resp.Header.Get("Total-Results")); err == nil {
		total = v
	}
	return page, total, nil
}
