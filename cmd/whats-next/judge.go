// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/whats-next/internal/judge"
)

var judgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Ask the LLM judge about a single paper",
	Long: `Judge asks the configured chat model whether a paper is worth reading for
an intention, or with --cite whether it belongs in a paper about a keyword.`,
	RunE: runJudge,
}

func init() {
	judgeCmd.Flags().String("title", "", "paper title (required)")
	judgeCmd.Flags().String("abstract", "", "paper abstract")
	judgeCmd.Flags().String("intention", "", "what the reader wants to learn or write (default judge.interests)")
	judgeCmd.Flags().Bool("cite", false, "judge whether to cite the paper instead of whether to read it")
	judgeCmd.Flags().String("keyword", "", "topic keyword for --cite")
	judgeCmd.Flags().Bool("json", false, "output the verdict as JSON")

	rootCmd.AddCommand(judgeCmd)
}

func runJudge(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	abstract, _ := cmd.Flags().GetString("abstract")
	intention, _ := cmd.Flags().GetString("intention")
	cite, _ := cmd.Flags().GetBool("cite")
	keyword, _ := cmd.Flags().GetString("keyword")
	asJSON, _ := cmd.Flags().GetBool("json")

	if title == "" {
		return fmt.Errorf("--title is required")
	}
	if intention == "" {
		intention = appConfig.Judge.Interests
	}
	if intention == "" {
		return fmt.Errorf("--intention is required when judge.interests is not configured")
	}

	j, err := judge.New(cmd.Context(), appConfig.Judge, appLogger)
	if err != nil {
		return err
	}

	paper := judge.Paper{Title: title, Abstract: abstract}
	var v judge.Verdict
	if cite {
		v, err = j.ShouldCite(cmd.Context(), intention, keyword, paper)
	} else {
		v, err = j.ShouldRead(cmd.Context(), intention, paper)
	}
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"decision": v.Decision, "reason": v.Reason})
	}
	answer := "no"
	if v.Decision {
		answer = "yes"
	}
	fmt.Printf("%s: %s\n", answer, v.Reason)
	return nil
}
