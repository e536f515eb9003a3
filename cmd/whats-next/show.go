// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/whats-next/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show <run.yaml>",
	Short: "Print a run file saved with --save",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	rf, err := report.LoadRun(args[0])
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return report.FormatJSON(rf.Response.Results, os.Stdout)
	}
	fmt.Printf("Run at %s: %d result(s) from %d candidate(s), %d source error(s)\n\n",
		rf.Summary.Timestamp.Format("2006-01-02 15:04:05"), rf.Summary.Results,
		rf.Summary.Candidates, len(rf.Summary.SourceErrors))
	for _, e := range rf.Summary.SourceErrors {
		fmt.Printf("  %s\n", e)
	}
	report.FormatResponse(rf.Response, os.Stdout)
	return nil
}
