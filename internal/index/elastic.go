// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/pdiddy/whats-next/pkg/types"
)

// maxCandidates is Elasticsearch's upper bound for knn num_candidates.
const maxCandidates = 10000

// ElasticStore keeps each index as its own Elasticsearch index with a
// dense_vector field using cosine similarity.
type ElasticStore struct {
	es     *elasticsearch.Client
	prefix string
}

// NewElasticStore builds a client for cfg.Addr.
func NewElasticStore(cfg types.IndexConfig) (*ElasticStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: elasticsearch address not set", ErrConfiguration)
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Addr},
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &ElasticStore{es: es, prefix: orPrefix(cfg.Prefix)}, nil
}

var esNameReplacer = strings.NewReplacer(`\`, "-", "/", "-", "*", "-", "?", "-", `"`, "-",
	"<", "-", ">", "-", "|", "-", " ", "-", ",", "-", "#", "-", ":", "-")

// indexName maps a name onto Elasticsearch's lowercase index naming rules.
// Lowercasing and replacement lose information, so a hash of the exact
// name is appended to keep distinct names on distinct indexes.
func (s *ElasticStore) indexName(name string) string {
	h := fnv.New64a()
	h.Write([]byte(name))
	return fmt.Sprintf("%s-%s-%016x", strings.ToLower(s.prefix), strings.ToLower(esNameReplacer.Replace(name)), h.Sum64())
}

type esSource struct {
	Seq      int                  `json:"seq"`
	Document types.SourceDocument `json:"doc"`
	Vector   []float32            `json:"vector,omitempty"`
}

func (s *ElasticStore) Create(ctx context.Context, name string, dim int) error {
	props := map[string]any{
		"seq": map[string]any{"type": "integer"},
		"doc": map[string]any{"type": "object", "enabled": false},
	}
	if dim > 0 {
		props["vector"] = map[string]any{
			"type":       "dense_vector",
			"dims":       dim,
			"index":      true,
			"similarity": "cosine",
		}
	}
	body, err := json.Marshal(map[string]any{"mappings": map[string]any{"properties": props}})
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{Index: s.indexName(name), Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

func (s *ElasticStore) Destroy(ctx context.Context, name string) error {
	req := esapi.IndicesDeleteRequest{Index: []string{s.indexName(name)}}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index", res)
	}
	return nil
}

// Insert sends one bulk request and refreshes so the entries are
// searchable as soon as it returns.
func (s *ElasticStore) Insert(ctx context.Context, name string, entries []Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		meta := map[string]any{"index": map[string]any{"_id": e.ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(esSource{Seq: e.Seq, Document: e.Document, Vector: e.Vector}); err != nil {
			return fmt.Errorf("encode entry %s: %w", e.ID, err)
		}
	}

	req := esapi.BulkRequest{Index: s.indexName(name), Body: &buf, Refresh: "true"}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("bulk insert", res)
	}

	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  any `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if out.Errors {
		for _, item := range out.Items {
			for _, r := range item {
				if r.Error != nil {
					return fmt.Errorf("bulk insert item failed (HTTP %d): %v", r.Status, r.Error)
				}
			}
		}
		return fmt.Errorf("bulk insert reported errors")
	}
	return nil
}

// Search runs an approximate kNN query. Elasticsearch scores cosine hits as
// (1+cos)/2; the score is mapped back to cosine similarity.
func (s *ElasticStore) Search(ctx context.Context, name string, vector []float32, k int) ([]Hit, error) {
	body, err := json.Marshal(map[string]any{
		"size": k,
		"knn": map[string]any{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": min(max(k*10, 100), maxCandidates),
		},
		"_source": []string{"seq", "doc"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req := esapi.SearchRequest{Index: []string{s.indexName(name)}, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Score  float64  `json:"_score"`
				Source esSource `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	scored := make([]scoredSeq, len(out.Hits.Hits))
	for i, h := range out.Hits.Hits {
		scored[i] = scoredSeq{hit: Hit{Document: h.Source.Document, Score: 2*h.Score - 1}, seq: h.Source.Seq}
	}
	return orderHits(scored, k), nil
}

func (s *ElasticStore) Count(ctx context.Context, name string) (int, error) {
	req := esapi.CountRequest{Index: []string{s.indexName(name)}}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	if res.IsError() {
		return 0, responseError("count", res)
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return out.Count, nil
}

func (s *ElasticStore) Close() error { return nil }

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s failed: %s: %s", op, res.Status(), strings.TrimSpace(string(body)))
}
