// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/whats-next/internal/pipeline"
	"github.com/pdiddy/whats-next/internal/report"
)

var nextCmd = &cobra.Command{
	Use:   "next [arxiv-id]",
	Short: "Recommend papers to read after one seed paper",
	Long: `Next collects the papers the seed cites, the papers that cite it, and the
arXiv papers a web search for the query turns up. The candidates are
deduplicated, indexed under the seed id, and ranked against the query.

The seed may be a bare arXiv id, an old-style id, or an arXiv URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNext,
}

func init() {
	nextCmd.Flags().String("arxiv-id", "", "seed arXiv id (alternative to the positional argument)")
	addRankFlags(nextCmd)

	rootCmd.AddCommand(nextCmd)
}

// addRankFlags registers the flags shared by next and digest.
func addRankFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "free-text description of what to read next (required)")
	cmd.Flags().Int("k", 0, "number of results (default from index.default_k)")
	cmd.Flags().Bool("enrich", false, "ask the LLM judge whether each result is worth reading")
	cmd.Flags().Bool("json", false, "output results as JSON")
	cmd.Flags().String("save", "", "write the request and response to a YAML run file")
}

func runNext(cmd *cobra.Command, args []string) error {
	seed, _ := cmd.Flags().GetString("arxiv-id")
	if len(args) == 1 {
		seed = args[0]
	}
	query, _ := cmd.Flags().GetString("query")
	k, _ := cmd.Flags().GetInt("k")
	enrich, _ := cmd.Flags().GetBool("enrich")

	c, err := buildComponents(cmd.Context(), appConfig, buildOptions{judge: enrich})
	if err != nil {
		return err
	}
	defer c.Close()

	req := pipeline.NextRequest{ArxivID: seed, Query: query, K: k, Enrich: enrich}
	resp, err := c.pipeline.WhatsNext(cmd.Context(), req)
	if err != nil {
		return err
	}
	return emit(cmd, report.NewRunFile(&req, nil, resp))
}

// emit prints the response and writes the run file when --save is set.
func emit(cmd *cobra.Command, rf report.RunFile) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		if err := report.FormatJSON(rf.Response.Results, os.Stdout); err != nil {
			return err
		}
	} else {
		report.FormatResponse(rf.Response, os.Stdout)
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := report.SaveRun(path, rf); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved run to %s\n", path)
	}
	return nil
}
