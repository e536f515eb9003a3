// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bufio"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/whats-next/pkg/types"
)

// fakeElastic implements the handful of endpoints ElasticStore uses,
// scoring kNN hits the way Elasticsearch scores cosine similarity.
type fakeElastic struct {
	mu      sync.Mutex
	indexes map[string][]esSource
	paths   []string
}

func newFakeElastic(t *testing.T) (*fakeElastic, *httptest.Server) {
	f := &fakeElastic{indexes: make(map[string][]esSource)}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeElastic) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	name := parts[0]
	docs, exists := f.indexes[name]

	reply := func(status int, body any) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
	missing := func() {
		reply(http.StatusNotFound, map[string]any{"error": map[string]any{"type": "index_not_found_exception"}, "status": 404})
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		if exists {
			reply(http.StatusBadRequest, map[string]any{"error": map[string]any{"type": "resource_already_exists_exception"}, "status": 400})
			return
		}
		f.indexes[name] = []esSource{}
		reply(http.StatusOK, map[string]any{"acknowledged": true, "index": name})

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if !exists {
			missing()
			return
		}
		delete(f.indexes, name)
		reply(http.StatusOK, map[string]any{"acknowledged": true})

	case len(parts) == 2 && parts[1] == "_bulk":
		if !exists {
			missing()
			return
		}
		sc := bufio.NewScanner(r.Body)
		sc.Buffer(make([]byte, 1<<20), 1<<24)
		var items []any
		for sc.Scan() {
			if !sc.Scan() {
				break
			}
			var src esSource
			if err := json.Unmarshal(sc.Bytes(), &src); err != nil {
				reply(http.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			docs = append(docs, src)
			items = append(items, map[string]any{"index": map[string]any{"status": 201}})
		}
		f.indexes[name] = docs
		reply(http.StatusOK, map[string]any{"errors": false, "items": items})

	case len(parts) == 2 && parts[1] == "_count":
		if !exists {
			missing()
			return
		}
		reply(http.StatusOK, map[string]any{"count": len(docs)})

	case len(parts) == 2 && parts[1] == "_search":
		if !exists {
			missing()
			return
		}
		var q struct {
			Knn struct {
				QueryVector []float32 `json:"query_vector"`
				K           int       `json:"k"`
			} `json:"knn"`
		}
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			reply(http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		type hit struct {
			Score  float64  `json:"_score"`
			Source esSource `json:"_source"`
		}
		hits := make([]hit, len(docs))
		for i, d := range docs {
			hits[i] = hit{Score: (1 + Cosine(q.Knn.QueryVector, d.Vector)) / 2, Source: esSource{Seq: d.Seq, Document: d.Document}}
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
		if q.Knn.K < len(hits) {
			hits = hits[:q.Knn.K]
		}
		reply(http.StatusOK, map[string]any{"hits": map[string]any{"hits": hits}})

	default:
		reply(http.StatusMethodNotAllowed, map[string]any{"error": "unsupported " + r.Method + " " + r.URL.Path})
	}
}

func newElastic(t *testing.T) Store {
	t.Helper()
	_, srv := newFakeElastic(t)
	s, err := NewElasticStore(types.IndexConfig{Addr: srv.URL, Prefix: "test"})
	require.NoError(t, err)
	return s
}

func TestElasticStoreContract(t *testing.T) {
	storeContract(t, newElastic)
}

func TestElasticStore_IndexNaming(t *testing.T) {
	f, srv := newFakeElastic(t)
	s, err := NewElasticStore(types.IndexConfig{Addr: srv.URL})
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), "My_Collection:2024", 3))
	require.Len(t, f.paths, 1)
	assert.Regexp(t, `^PUT /whatsnext-my_collection-2024-[0-9a-f]{16}$`, f.paths[0])
}

func TestElasticStore_NamesDifferingInCaseStayApart(t *testing.T) {
	_, srv := newFakeElastic(t)
	s, err := NewElasticStore(types.IndexConfig{Addr: srv.URL})
	require.NoError(t, err)
	assert.NotEqual(t, s.indexName("ML_Papers"), s.indexName("ml_papers"))
	assert.NotEqual(t, s.indexName("a:b"), s.indexName("a-b"))
	assert.Equal(t, s.indexName("ml_papers"), s.indexName("ml_papers"))

	m := newTestManager(s)
	ctx := context.Background()
	alpha := []types.SourceDocument{{ID: "1", Title: "Alpha", Abstract: "transformer attention models", URL: "u/1", SourceType: types.SourceWeb}}
	beta := []types.SourceDocument{{ID: "2", Title: "Beta", Abstract: "transformer attention models", URL: "u/2", SourceType: types.SourceWeb}}

	first, err := m.Build(ctx, "ML Papers", alpha)
	require.NoError(t, err)
	defer first.Release()

	second, err := m.Build(ctx, "ml_papers", beta)
	require.NoError(t, err)
	second.Release()

	hits, err := first.Query(ctx, "transformer", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, titles(hits))
}

func TestElasticStore_ScoreIsCosine(t *testing.T) {
	s := newElastic(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "scores", 2))
	require.NoError(t, s.Insert(ctx, "scores", []Entry{
		{ID: "1", Seq: 0, Document: types.SourceDocument{Title: "same"}, Vector: []float32{1, 0}},
		{ID: "2", Seq: 1, Document: types.SourceDocument{Title: "orthogonal"}, Vector: []float32{0, 1}},
		{ID: "3", Seq: 2, Document: types.SourceDocument{Title: "opposite"}, Vector: []float32{-1, 0}},
	}))

	hits, err := s.Search(ctx, "scores", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"same", "orthogonal", "opposite"}, titles(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.0, hits[1].Score, 1e-6)
	assert.InDelta(t, -1.0, hits[2].Score, 1e-6)
}

func TestElasticStore_MissingIndex(t *testing.T) {
	s := newElastic(t)
	ctx := context.Background()

	assert.NoError(t, s.Destroy(ctx, "absent"))
	_, err := s.Count(ctx, "absent")
	assert.ErrorIs(t, err, ErrIndexNotFound)
	_, err = s.Search(ctx, "absent", []float32{1}, 1)
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestNewElasticStore_RequiresAddr(t *testing.T) {
	_, err := NewElasticStore(types.IndexConfig{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestOrderHits_TiesKeepInsertionOrder(t *testing.T) {
	in := []scoredSeq{
		{hit: Hit{Document: types.SourceDocument{Title: "c"}, Score: 0.5}, seq: 2},
		{hit: Hit{Document: types.SourceDocument{Title: "a"}, Score: 0.5}, seq: 0},
		{hit: Hit{Document: types.SourceDocument{Title: "top"}, Score: math.Nextafter(0.5, 1)}, seq: 5},
		{hit: Hit{Document: types.SourceDocument{Title: "b"}, Score: 0.5}, seq: 1},
	}
	assert.Equal(t, []string{"top", "a", "b"}, titles(orderHits(in, 3)))
}
