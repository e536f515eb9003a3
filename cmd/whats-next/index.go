// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/whats-next/internal/report"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and manage persisted indexes",
	Long: `Every request rebuilds the index named after its seed or collection and
leaves it in place. The index subcommands query, list, and drop those
indexes without fetching anything.`,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query <name>",
	Short: "Rank a persisted index against a new query",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexQuery,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted indexes (sqlite backend)",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

var indexDropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "Delete a persisted index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexDrop,
}

func init() {
	indexQueryCmd.Flags().String("query", "", "free-text query (required)")
	indexQueryCmd.Flags().Int("k", 0, "number of results (default from index.default_k)")
	indexQueryCmd.Flags().Bool("enrich", false, "ask the LLM judge whether each result is worth reading")
	indexQueryCmd.Flags().Bool("json", false, "output results as JSON")

	indexCmd.AddCommand(indexQueryCmd, indexListCmd, indexDropCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	k, _ := cmd.Flags().GetInt("k")
	enrich, _ := cmd.Flags().GetBool("enrich")
	asJSON, _ := cmd.Flags().GetBool("json")

	c, err := buildComponents(cmd.Context(), appConfig, buildOptions{judge: enrich})
	if err != nil {
		return err
	}
	defer c.Close()

	results, err := c.pipeline.Search(cmd.Context(), args[0], query, k, enrich)
	if err != nil {
		return err
	}
	if asJSON {
		return report.FormatJSON(results, os.Stdout)
	}
	report.FormatTable(results, os.Stdout)
	return nil
}

// lister is implemented by stores that can enumerate their indexes.
type lister interface {
	Names() ([]string, error)
}

func runIndexList(cmd *cobra.Command, args []string) error {
	c, err := buildComponents(cmd.Context(), appConfig, buildOptions{})
	if err != nil {
		return err
	}
	defer c.Close()

	l, ok := c.store.(lister)
	if !ok {
		return fmt.Errorf("index list is not supported by the %s backend", appConfig.Index.Backend)
	}
	names, err := l.Names()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No indexes.")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runIndexDrop(cmd *cobra.Command, args []string) error {
	c, err := buildComponents(cmd.Context(), appConfig, buildOptions{})
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.pipeline.Index.Drop(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Dropped index %s\n", args[0])
	return nil
}
