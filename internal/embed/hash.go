// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
)

const defaultHashDimensions = 512

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)

// HashEmbedder maps text to signed, hashed term-frequency vectors. It needs
// no corpus preparation or network access and is fully deterministic, so the
// same text always embeds to the same vector.
type HashEmbedder struct {
	dim       int
	stopwords map[string]struct{}
}

// NewHashEmbedder returns an embedder producing vectors of size dim.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = defaultHashDimensions
	}
	return &HashEmbedder{dim: dim, stopwords: defaultStopwords()}
}

// Dimension returns the vector size.
func (h *HashEmbedder) Dimension() int { return h.dim }

// EmbedStrings embeds each text independently.
func (h *HashEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, h.dim)
	tf := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := h.stopwords[tok]; stop {
			continue
		}
		tf[tok]++
	}
	for tok, n := range tf {
		sum := fnv.New64a()
		sum.Write([]byte(tok))
		v := sum.Sum64()
		sign := 1.0
		if v>>63 == 1 {
			sign = -1.0
		}
		vec[v%uint64(h.dim)] += sign * (1 + math.Log(float64(n)))
	}

	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	if norm = math.Sqrt(norm); norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "we", "our", "can", "will", "which", "into", "about", "between", "through", "than",
		"such", "also", "not", "no", "has", "have", "had", "do", "does", "using", "use", "based",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
