// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/whats-next/internal/pipeline"
	"github.com/pdiddy/whats-next/internal/report"
)

var digestCmd = &cobra.Command{
	Use:   "digest [collection]",
	Short: "Recommend papers to read after a Zotero collection",
	Long: `Digest resolves every item of a Zotero collection to an arXiv id, expands
each through the citation graph, adds one web search for the query, and ranks
the combined candidates in an index named after the collection. Papers already
in the collection are never recommended.

Requires library.user_id and a Zotero API key (.secrets/zotero-api-key).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDigest,
}

func init() {
	digestCmd.Flags().String("collection", "", "collection name (alternative to the positional argument)")
	addRankFlags(digestCmd)

	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	collection, _ := cmd.Flags().GetString("collection")
	if len(args) == 1 {
		collection = args[0]
	}
	query, _ := cmd.Flags().GetString("query")
	k, _ := cmd.Flags().GetInt("k")
	enrich, _ := cmd.Flags().GetBool("enrich")

	c, err := buildComponents(cmd.Context(), appConfig, buildOptions{judge: enrich})
	if err != nil {
		return err
	}
	defer c.Close()

	req := pipeline.DigestRequest{Collection: collection, Query: query, K: k, Enrich: enrich}
	resp, err := c.pipeline.Digest(cmd.Context(), req)
	if err != nil {
		return err
	}
	return emit(cmd, report.NewRunFile(nil, &req, resp))
}
