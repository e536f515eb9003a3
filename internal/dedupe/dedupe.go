// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedupe merges fetcher outputs into one set of documents with
// globally unique normalized titles. Earlier inputs win on collision.
package dedupe

import (
	"strings"
	"unicode"

	"github.com/pdiddy/whats-next/pkg/types"
)

// NormalizeTitle lowercases a title, drops punctuation, and collapses
// whitespace so that trivially different renderings compare equal.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Merger accumulates documents across several Add calls. Titles known in
// advance (the seed paper, collection members) are never admitted.
type Merger struct {
	titles map[string]bool
	ids    map[string]bool
	docs   []types.SourceDocument
	// Rejected counts documents refused as duplicates or excluded titles.
	Rejected int
}

// NewMerger returns a Merger excluding existingTitles.
func NewMerger(existingTitles []string) *Merger {
	m := &Merger{titles: make(map[string]bool), ids: make(map[string]bool)}
	for _, t := range existingTitles {
		if key := NormalizeTitle(t); key != "" {
			m.titles[key] = true
		}
	}
	return m
}

// Add admits every document whose normalized title (and id, when set) has
// not been seen, in input order, and returns the admitted documents.
func (m *Merger) Add(docs []types.SourceDocument) []types.SourceDocument {
	var kept []types.SourceDocument
	for _, d := range docs {
		key := NormalizeTitle(d.Title)
		if key == "" || m.titles[key] || (d.ID != "" && m.ids[d.ID]) {
			m.Rejected++
			continue
		}
		m.titles[key] = true
		if d.ID != "" {
			m.ids[d.ID] = true
		}
		kept = append(kept, d)
	}
	m.docs = append(m.docs, kept...)
	return kept
}

// Documents returns everything admitted so far, in admission order.
func (m *Merger) Documents() []types.SourceDocument {
	return m.docs
}

// Merge processes seqs in the given order against existingTitles. Callers
// pass citations, then cited-by, then web results so that graph sources
// take precedence over search on title collision.
func Merge(existingTitles []string, seqs ...[]types.SourceDocument) []types.SourceDocument {
	m := NewMerger(existingTitles)
	for _, s := range seqs {
		m.Add(s)
	}
	return m.Documents()
}
