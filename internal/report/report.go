// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders ranked results for the terminal and saves whole
// runs to YAML so they can be reviewed later without refetching.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/whats-next/internal/pipeline"
	"github.com/pdiddy/whats-next/pkg/types"
)

const titleWidth = 60

// FormatTable writes results as a fixed-width table.
func FormatTable(results []types.RankedResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-6s  %-11s  %s\n", "Rank", "Title", "Score", "Source", "Link")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, r := range results {
		fmt.Fprintf(w, "%-4d  %-60s  %-6.3f  %-11s  %s\n",
			i+1, truncate(r.Title, titleWidth), r.Score, r.Source, r.Link)
		if r.Insights != nil {
			verdict := "skip"
			if r.Insights.Read {
				verdict = "read"
			}
			fmt.Fprintf(w, "      %s: %s\n", verdict, r.Insights.Reason)
		}
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
}

// FormatResponse writes the per-source summary followed by the table.
func FormatResponse(resp *pipeline.Response, w io.Writer) {
	if resp.Seed != nil {
		fmt.Fprintf(w, "Seed: %s (%s)\n", resp.Seed.Title, strings.Join(resp.Seed.Categories, ", "))
	}
	unresolved := 0
	for _, m := range resp.Members {
		if m.ArxivID == "" {
			unresolved++
		}
	}
	if len(resp.Members) > 0 {
		fmt.Fprintf(w, "Members: %d (%d unresolved)\n", len(resp.Members), unresolved)
	}
	for _, s := range resp.Sources {
		if s.Error != "" {
			fmt.Fprintf(w, "  %-9s %-24s failed: %s\n", s.Source, truncate(s.Input, 24), s.Error)
			continue
		}
		fmt.Fprintf(w, "  %-9s %-24s %d documents\n", s.Source, truncate(s.Input, 24), s.Count)
	}
	fmt.Fprintf(w, "Index %s: %d candidates\n\n", resp.IndexName, resp.Candidates)
	FormatTable(resp.Results, w)
}

// FormatJSON writes results as indented JSON, the same array the HTTP
// endpoints return.
func FormatJSON(results []types.RankedResult, w io.Writer) error {
	if results == nil {
		results = []types.RankedResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
