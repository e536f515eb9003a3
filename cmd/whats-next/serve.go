// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/whats-next/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recommendation flows over HTTP",
	Long: `Serve exposes GET and POST /whatsNext/ and /DailyPaper/. Both answer
with a JSON array of ranked results. The judge is enabled when an API key for
the configured provider is available; requests with enrich=true are otherwise
answered without insights.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildComponents(ctx, cfg, buildOptions{optionalJudge: true})
	if err != nil {
		return err
	}
	defer c.Close()

	handler := server.New(c.pipeline, cfg.Server.RequestTimeout, appLogger,
		server.WithLibraryDefaults(cfg.Library))
	return server.Run(ctx, cfg.Server, handler, appLogger)
}
