// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts provider records into the canonical
// SourceDocument. No other package sees raw provider shapes.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/whats-next/pkg/types"
)

var (
	// ErrMalformedRecord marks a record whose fields have unexpected types.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMissingField marks a record lacking a required field.
	ErrMissingField = errors.New("missing required field")
)

// RawRecord is a provider record awaiting normalization. Fields holds the
// decoded provider payload; SourceType selects which admission rules apply.
type RawRecord struct {
	SourceType types.SourceType
	Fields     map[string]any
}

// Normalize maps one raw record to a SourceDocument. Records missing a
// title, abstract, or url are rejected, as are citation-graph records
// without a year. Web records may omit the year.
func Normalize(rec RawRecord) (types.SourceDocument, error) {
	if !rec.SourceType.Valid() {
		return types.SourceDocument{}, fmt.Errorf("%w: unknown source type %q", ErrMalformedRecord, rec.SourceType)
	}
	if rec.Fields == nil {
		return types.SourceDocument{}, fmt.Errorf("%w: no fields", ErrMalformedRecord)
	}

	title, err := requiredString(rec.Fields, "title")
	if err != nil {
		return types.SourceDocument{}, err
	}
	abstract, err := requiredString(rec.Fields, "abstract")
	if err != nil {
		return types.SourceDocument{}, err
	}
	link, err := requiredString(rec.Fields, "url")
	if err != nil {
		return types.SourceDocument{}, err
	}

	year, err := yearOf(rec.Fields)
	if err != nil {
		return types.SourceDocument{}, err
	}
	if year == 0 && rec.SourceType.FromGraph() {
		return types.SourceDocument{}, fmt.Errorf("%w: year", ErrMissingField)
	}

	id, err := optionalString(rec.Fields, "paperId")
	if err != nil {
		return types.SourceDocument{}, err
	}
	if id == "" {
		if id, err = optionalString(rec.Fields, "id"); err != nil {
			return types.SourceDocument{}, err
		}
	}
	if id == "" {
		id = link
	}

	return types.SourceDocument{
		ID:         id,
		Title:      collapseSpace(title),
		Abstract:   strings.TrimSpace(abstract),
		Year:       year,
		URL:        link,
		SourceType: rec.SourceType,
	}, nil
}

// All normalizes every record, logging and skipping rejects.
func All(recs []RawRecord, logger *slog.Logger) []types.SourceDocument {
	if logger == nil {
		logger = slog.Default()
	}
	docs := make([]types.SourceDocument, 0, len(recs))
	dropped := 0
	for _, rec := range recs {
		doc, err := Normalize(rec)
		if err != nil {
			dropped++
			logger.Debug("dropped record", "source", rec.SourceType, "reason", err)
			continue
		}
		docs = append(docs, doc)
	}
	if dropped > 0 {
		logger.Info("normalized records", "accepted", len(docs), "dropped", dropped)
	}
	return docs
}

func requiredString(f map[string]any, key string) (string, error) {
	s, err := optionalString(f, key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return s, nil
}

func optionalString(f map[string]any, key string) (string, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrMalformedRecord, key, v)
	}
	return strings.TrimSpace(s), nil
}

// yearOf reads "year" as a number or numeric string, falling back to the
// year of a "published" timestamp. Zero means unknown.
func yearOf(f map[string]any) (int, error) {
	if v, ok := f["year"]; ok && v != nil {
		y, err := toYear(v)
		if err != nil {
			return 0, err
		}
		if y != 0 {
			return y, nil
		}
	}

	switch p := f["published"].(type) {
	case nil:
		return 0, nil
	case time.Time:
		if p.IsZero() {
			return 0, nil
		}
		return p.Year(), nil
	case string:
		if p == "" {
			return 0, nil
		}
		t, err := time.Parse(time.RFC3339, p)
		if err != nil {
			return 0, fmt.Errorf("%w: published %q", ErrMalformedRecord, p)
		}
		return t.Year(), nil
	default:
		return 0, fmt.Errorf("%w: published is %T", ErrMalformedRecord, p)
	}
}

func toYear(v any) (int, error) {
	var y int
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: year %v is not integral", ErrMalformedRecord, n)
		}
		y = int(n)
	case int:
		y = n
	case int64:
		y = int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: year %q", ErrMalformedRecord, n)
		}
		y = int(i)
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: year %q", ErrMalformedRecord, n)
		}
		y = i
	default:
		return 0, fmt.Errorf("%w: year is %T", ErrMalformedRecord, v)
	}
	if y < 0 {
		return 0, fmt.Errorf("%w: negative year %d", ErrMalformedRecord, y)
	}
	return y, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
