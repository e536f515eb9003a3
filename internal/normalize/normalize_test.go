// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/whats-next/internal/logger"
	"github.com/pdiddy/whats-next/pkg/types"
)

func graphFields() map[string]any {
	return map[string]any{
		"paperId":  "abc123",
		"title":    "  Attention   Is All You Need ",
		"abstract": "We propose the Transformer.",
		"year":     float64(2017),
		"url":      "https://www.semanticscholar.org/paper/abc123",
	}
}

func TestNormalize_GraphRecord(t *testing.T) {
	doc, err := Normalize(RawRecord{SourceType: types.SourceCitation, Fields: graphFields()})
	require.NoError(t, err)

	assert.Equal(t, "abc123", doc.ID)
	assert.Equal(t, "Attention Is All You Need", doc.Title)
	assert.Equal(t, "We propose the Transformer.", doc.Abstract)
	assert.Equal(t, 2017, doc.Year)
	assert.Equal(t, types.SourceCitation, doc.SourceType)
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		source types.SourceType
		mutate func(f map[string]any)
		want   error
	}{
		{"null abstract", types.SourceCitation, func(f map[string]any) { f["abstract"] = nil }, ErrMissingField},
		{"empty abstract", types.SourceCitedPaper, func(f map[string]any) { f["abstract"] = "   " }, ErrMissingField},
		{"missing title", types.SourceCitation, func(f map[string]any) { delete(f, "title") }, ErrMissingField},
		{"empty url", types.SourceCitation, func(f map[string]any) { f["url"] = "" }, ErrMissingField},
		{"graph without year", types.SourceCitedPaper, func(f map[string]any) { delete(f, "year") }, ErrMissingField},
		{"graph with null year", types.SourceCitation, func(f map[string]any) { f["year"] = nil }, ErrMissingField},
		{"title not a string", types.SourceCitation, func(f map[string]any) { f["title"] = 42.0 }, ErrMalformedRecord},
		{"year not numeric", types.SourceCitation, func(f map[string]any) { f["year"] = "soon" }, ErrMalformedRecord},
		{"year fractional", types.SourceCitation, func(f map[string]any) { f["year"] = 2017.5 }, ErrMalformedRecord},
		{"year wrong type", types.SourceCitation, func(f map[string]any) { f["year"] = []any{2017} }, ErrMalformedRecord},
		{"unknown source type", types.SourceType("internet"), func(map[string]any) {}, ErrMalformedRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := graphFields()
			tt.mutate(f)
			_, err := Normalize(RawRecord{SourceType: tt.source, Fields: f})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalize_NilFields(t *testing.T) {
	_, err := Normalize(RawRecord{SourceType: types.SourceWeb})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestNormalize_WebRecordWithoutYear(t *testing.T) {
	doc, err := Normalize(RawRecord{SourceType: types.SourceWeb, Fields: map[string]any{
		"id":       "2301.07041",
		"title":    "Some Preprint",
		"abstract": "Summary text.",
		"url":      "http://arxiv.org/abs/2301.07041v2",
	}})
	require.NoError(t, err)
	assert.Equal(t, "2301.07041", doc.ID)
	assert.Zero(t, doc.Year)
}

func TestNormalize_YearFromPublished(t *testing.T) {
	f := map[string]any{
		"title":     "Dated",
		"abstract":  "x",
		"url":       "http://arxiv.org/abs/1",
		"published": time.Date(2023, 1, 17, 0, 0, 0, 0, time.UTC),
	}
	doc, err := Normalize(RawRecord{SourceType: types.SourceWeb, Fields: f})
	require.NoError(t, err)
	assert.Equal(t, 2023, doc.Year)

	f["published"] = "2021-06-01T12:00:00Z"
	doc, err = Normalize(RawRecord{SourceType: types.SourceWeb, Fields: f})
	require.NoError(t, err)
	assert.Equal(t, 2021, doc.Year)

	f["published"] = "June 2021"
	_, err = Normalize(RawRecord{SourceType: types.SourceWeb, Fields: f})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestNormalize_YearVariants(t *testing.T) {
	for _, v := range []any{2020, int64(2020), json.Number("2020"), "2020", float64(2020)} {
		f := graphFields()
		f["year"] = v
		doc, err := Normalize(RawRecord{SourceType: types.SourceCitation, Fields: f})
		require.NoError(t, err, "%T", v)
		assert.Equal(t, 2020, doc.Year)
	}
}

func TestNormalize_IDFallsBackToURL(t *testing.T) {
	f := graphFields()
	delete(f, "paperId")
	doc, err := Normalize(RawRecord{SourceType: types.SourceCitation, Fields: f})
	require.NoError(t, err)
	assert.Equal(t, f["url"], doc.ID)
}

func TestAll_KeepsOnlyAdmissible(t *testing.T) {
	bad := graphFields()
	bad["abstract"] = nil
	recs := []RawRecord{
		{SourceType: types.SourceCitation, Fields: graphFields()},
		{SourceType: types.SourceCitation, Fields: bad},
		{SourceType: types.SourceCitedPaper, Fields: map[string]any{"title": 1}},
	}

	docs := All(recs, logger.Discard())
	require.Len(t, docs, 1)
	for _, d := range docs {
		assert.NotEmpty(t, d.Title)
		assert.NotEmpty(t, d.Abstract)
		assert.NotEmpty(t, d.URL)
		assert.NotZero(t, d.Year)
	}
}
