// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index builds named vector indexes from SourceDocuments and ranks
// them against free-text queries.
//
// An index is rebuilt from scratch on every request: any index of the same
// name is destroyed before new entries go in, so results never include
// documents from an earlier run. Scores are cosine similarity, higher is
// better, for every backend.
package index

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/whats-next/pkg/types"
)

var (
	// ErrIndexBuild marks an embedding or insertion failure. The index is
	// not usable and must not be queried.
	ErrIndexBuild = errors.New("index build failed")

	// ErrIndexNotFound marks a query against an index that does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrConfiguration marks an unknown backend or unusable store settings.
	ErrConfiguration = errors.New("index configuration error")
)

// Entry is one embedded document as stored.
type Entry struct {
	ID       string
	Seq      int
	Document types.SourceDocument
	Vector   []float32
}

// Hit is one ranked document with its cosine similarity to the query.
type Hit struct {
	Document types.SourceDocument
	Score    float64
}

// Store is a vector index backend. Implementations key every index by name
// and must treat Destroy of a missing index as success.
type Store interface {
	// Create makes an empty index for vectors of size dim. A dim of zero
	// creates an index that will never hold entries.
	Create(ctx context.Context, name string, dim int) error
	Destroy(ctx context.Context, name string) error
	Insert(ctx context.Context, name string, entries []Entry) error
	// Search returns at most k hits ordered by descending score, ties in
	// insertion order.
	Search(ctx context.Context, name string, vector []float32, k int) ([]Hit, error)
	// Count returns the number of entries, or ErrIndexNotFound.
	Count(ctx context.Context, name string) (int, error)
	Close() error
}

// SanitizeName turns a seed id or collection name into an index name:
// whitespace runs become "_", path separators become "_".
func SanitizeName(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsSpace(r):
			if !space {
				b.WriteRune('_')
			}
			space = true
			continue
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
		space = false
	}
	name := b.String()
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// rank scores entries by brute force against q. Entries must be in
// insertion order; the stable sort keeps that order among equal scores.
func rank(entries []Entry, q []float32, k int) []Hit {
	hits := make([]Hit, len(entries))
	for i, e := range entries {
		hits[i] = Hit{Document: e.Document, Score: Cosine(q, e.Vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

type scoredSeq struct {
	hit Hit
	seq int
}

// orderHits sorts backend results by descending score then ascending seq,
// so remote stores rank ties the same way the local ones do.
func orderHits(in []scoredSeq, k int) []Hit {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].hit.Score != in[j].hit.Score {
			return in[i].hit.Score > in[j].hit.Score
		}
		return in[i].seq < in[j].seq
	})
	if k < len(in) {
		in = in[:k]
	}
	hits := make([]Hit, len(in))
	for i, s := range in {
		hits[i] = s.hit
	}
	return hits
}

// encodeVector packs v as little-endian float32, the layout RediSearch
// expects for FLOAT32 vector fields.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
