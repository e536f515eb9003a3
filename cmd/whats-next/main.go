// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the whats-next CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/whats-next/internal/logger"
	"github.com/pdiddy/whats-next/internal/secrets"
	"github.com/pdiddy/whats-next/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// appConfig is the resolved configuration: defaults, then the config
	// file, then WHATS_NEXT_* environment variables, then flags, then secrets.
	appConfig types.Config

	// appLogger writes structured logs to stderr.
	appLogger *slog.Logger
)

// rootCmd is the base command for the whats-next CLI.
var rootCmd = &cobra.Command{
	Use:   "whats-next",
	Short: "Recommend the papers to read next",
	Long: `whats-next recommends papers to read after a seed paper or a library
collection. It gathers candidates from the citation graph and from a web
search, indexes them, and ranks them against a free-text query.

Run "whats-next next" for a single seed paper, "whats-next digest" for a
Zotero collection, or "whats-next serve" to expose both over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		appLogger = logger.New(cfg.Log, os.Stderr)
		slog.SetDefault(appLogger)

		s, err := secrets.Load(".secrets/", appLogger)
		if err != nil {
			return err
		}
		if keys := s.Keys(); len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		appConfig = applySecrets(cfg, s)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./whats-next.yaml or ~/.config/whats-next/whats-next.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("index-backend", "", "vector index backend: memory, sqlite, redis, elasticsearch")
	rootCmd.PersistentFlags().String("embedding", "", "embedding provider: hash, openai, ollama")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("index.backend", rootCmd.PersistentFlags().Lookup("index-backend"))
	viper.BindPFlag("embedding.provider", rootCmd.PersistentFlags().Lookup("embedding"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("whats-next")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "whats-next"))
		}
	}

	viper.SetEnvPrefix("WHATS_NEXT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
