// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SourceType tags which fetcher produced a document. The tag travels with
// the document all the way into the ranked response.
type SourceType string

const (
	// SourceCitedPaper marks papers that cite the seed (cited-by edge).
	SourceCitedPaper SourceType = "cited_paper"
	// SourceCitation marks papers the seed cites (reference edge).
	SourceCitation SourceType = "citation"
	// SourceWeb marks papers found through keyword web search.
	SourceWeb SourceType = "web"
)

// Valid reports whether s is one of the known provenance tags.
func (s SourceType) Valid() bool {
	switch s {
	case SourceCitedPaper, SourceCitation, SourceWeb:
		return true
	}
	return false
}

// FromGraph reports whether documents of this type come from the citation graph.
func (s SourceType) FromGraph() bool {
	return s == SourceCitedPaper || s == SourceCitation
}

// SourceDocument is the canonical unit flowing through the pipeline.
type SourceDocument struct {
	// ID is unique within one pipeline run (an S2 paper id, arXiv id, or URL).
	ID string `json:"id" yaml:"id"`

	// Title is never empty; its normalized form is the deduplication key.
	Title string `json:"title" yaml:"title"`

	// Abstract is the embedded payload. Never empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// URL is the canonical external link.
	URL string `json:"url" yaml:"url"`

	// SourceType records which fetcher produced the document.
	SourceType SourceType `json:"sourceType" yaml:"source_type"`
}

// Insights holds the optional judgment attached to a ranked result by an
// enrichment collaborator.
type Insights struct {
	Read   bool   `json:"read" yaml:"read"`
	Reason string `json:"reason" yaml:"reason"`
}

// RankedResult is one entry of the response list.
type RankedResult struct {
	Title    string     `json:"title" yaml:"title"`
	Abstract string     `json:"abstract" yaml:"abstract"`
	Insights *Insights  `json:"insights" yaml:"insights"`
	Link     string     `json:"link" yaml:"link"`
	Score    float64    `json:"score" yaml:"score"`
	Source   SourceType `json:"sourceType" yaml:"source_type"`
}

// NewRankedResult builds a response entry from a scored document.
func NewRankedResult(doc SourceDocument, score float64) RankedResult {
	return RankedResult{
		Title:    doc.Title,
		Abstract: doc.Abstract,
		Link:     doc.URL,
		Score:    score,
		Source:   doc.SourceType,
	}
}

// PaperMetadata is what the paper-lookup collaborator returns for an arXiv
// identifier or a title search.
type PaperMetadata struct {
	// ID is the bare arXiv identifier without version suffix (e.g. "2301.07041").
	ID string `json:"id" yaml:"id"`

	Title      string    `json:"title" yaml:"title"`
	Categories []string  `json:"categories" yaml:"categories"`
	Published  time.Time `json:"published" yaml:"published"`
	Summary    string    `json:"summary" yaml:"summary"`

	// EntryID is the abs page URL reported by the lookup service.
	EntryID string `json:"entry_id" yaml:"entry_id"`
}
