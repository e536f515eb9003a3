// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/whats-next/pkg/types"
)

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder(64)
	a, err := h.EmbedStrings(context.Background(), []string{"graph neural networks for molecules"})
	require.NoError(t, err)
	b, err := NewHashEmbedder(64).EmbedStrings(context.Background(), []string{"graph neural networks for molecules"})
	require.NoError(t, err)

	require.Len(t, a[0], 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, cosine(a[0], a[0]), 1e-9)
}

func TestHashEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	h := NewHashEmbedder(0)
	vecs, err := h.EmbedStrings(context.Background(), []string{
		"transformer attention for language models",
		"attention mechanisms in transformer language models",
		"soil erosion in alpine meadows",
	})
	require.NoError(t, err)
	assert.Equal(t, defaultHashDimensions, h.Dimension())
	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	vecs, err := NewHashEmbedder(16).EmbedStrings(context.Background(), []string{"the of and"})
	require.NoError(t, err)
	for _, x := range vecs[0] {
		assert.Zero(t, x)
	}
}

func TestNew_Providers(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.EmbeddingConfig
		wantErr error
	}{
		{"default is hash", types.EmbeddingConfig{}, nil},
		{"hash", types.EmbeddingConfig{Provider: "HASH", Dimensions: 32}, nil},
		{"openai without key", types.EmbeddingConfig{Provider: "openai"}, ErrConfiguration},
		{"openai with key", types.EmbeddingConfig{Provider: "openai", APIKey: "sk-test"}, nil},
		{"ollama without key", types.EmbeddingConfig{Provider: "ollama"}, nil},
		{"unsupported", types.EmbeddingConfig{Provider: "word2vec"}, ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(context.Background(), tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, e)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, e)
		})
	}
}

func TestNew_OpenAICompatibleEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		resp := struct {
			Object string `json:"object"`
			Data   []item `json:"data"`
			Model  string `json:"model"`
		}{Object: "list", Model: req.Model}
		for i := range req.Input {
			resp.Data = append(resp.Data, item{Object: "embedding", Index: i, Embedding: []float64{float64(i), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	e, err := New(context.Background(), types.EmbeddingConfig{Provider: "ollama", BaseURL: ts.URL})
	require.NoError(t, err)

	vecs, err := e.EmbedStrings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 1}}, vecs)
}

func TestNew_OpenAIRequestsConfiguredDimensions(t *testing.T) {
	var seen []map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[0.5,0.5]}]}`))
	}))
	defer ts.Close()

	for _, dim := range []int{256, 0} {
		e, err := New(context.Background(), types.EmbeddingConfig{
			Provider: "openai", APIKey: "sk-test", BaseURL: ts.URL, Dimensions: dim,
		})
		require.NoError(t, err)
		_, err = e.EmbedStrings(context.Background(), []string{"a"})
		require.NoError(t, err)
	}

	require.Len(t, seen, 2)
	assert.Equal(t, "text-embedding-3-small", seen[0]["model"])
	assert.EqualValues(t, 256, seen[0]["dimensions"])
	assert.NotContains(t, seen[1], "dimensions", "unset dimensions leave the model default")
}

type countingEmbedder struct {
	calls  int
	failOn int
}

func (c *countingEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	c.calls++
	if c.calls == c.failOn {
		return nil, errors.New("provider down")
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1}
	}
	return out, nil
}

func TestBatched_SplitsInput(t *testing.T) {
	inner := &countingEmbedder{}
	vecs, err := Batched(inner, 2).EmbedStrings(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vecs, 5)
	assert.Equal(t, 3, inner.calls)
}

func TestBatched_AllOrNothing(t *testing.T) {
	inner := &countingEmbedder{failOn: 2}
	vecs, err := Batched(inner, 2).EmbedStrings(context.Background(), []string{"a", "b", "c"})
	assert.Error(t, err)
	assert.Nil(t, vecs)
}
