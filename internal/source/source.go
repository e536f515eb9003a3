// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source implements the fan-out adapters that gather candidate papers
// for one request: the two citation-graph directions, keyword web search, and
// the arXiv paper lookup those adapters depend on.
//
// Fetchers never return errors. An upstream failure yields a failed Result
// with zero documents so the orchestrator can decide, explicitly, to carry on
// with whatever the other fetchers produced.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/whats-next/pkg/types"
)

var (
	// ErrUpstreamUnavailable marks non-2xx responses, timeouts, transport
	// failures, and rate-limit rejections from any upstream.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrResolutionFailure marks an id or title lookup that found nothing.
	ErrResolutionFailure = errors.New("resolution failure")
)

// StatusError records a non-2xx HTTP status from an upstream.
type StatusError struct {
	Upstream   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Upstream, e.StatusCode)
}

// Unwrap lets callers match any StatusError with ErrUpstreamUnavailable.
func (e *StatusError) Unwrap() error { return ErrUpstreamUnavailable }

// Fetcher gathers candidate documents for one input: a paper id for the
// graph fetchers, a free-text query for web search.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, input string, limit int) Result
}

// Result is the outcome of one fetch. A failed result carries no documents.
type Result struct {
	Source    string
	Documents []types.SourceDocument
	Err       error
}

// Ok builds a successful result.
func Ok(source string, docs []types.SourceDocument) Result {
	return Result{Source: source, Documents: docs}
}

// Failed builds a failed result wrapping err as an upstream failure.
func Failed(source string, err error) Result {
	if !errors.Is(err, ErrUpstreamUnavailable) {
		err = fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return Result{Source: source, Err: err}
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.Err == nil }
