// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/whats-next/internal/secrets"
	"github.com/pdiddy/whats-next/pkg/types"
)

// credentialKeys are bound to the environment explicitly because their
// defaults are empty and viper only consults the environment for keys it knows.
var credentialKeys = []string{
	"graph.api_key",
	"embedding.api_key",
	"embedding.base_url",
	"index.addr",
	"index.password",
	"index.api_key",
	"library.api_key",
	"judge.api_key",
	"judge.base_url",
}

// loadConfig registers every default with v and decodes the merged result.
func loadConfig(v *viper.Viper) (types.Config, error) {
	if err := registerDefaults(v, types.DefaultConfig()); err != nil {
		return types.Config{}, err
	}
	for _, key := range credentialKeys {
		if err := v.BindEnv(key); err != nil {
			return types.Config{}, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// registerDefaults round-trips cfg through YAML so that every nested key
// becomes a viper default and can be overridden from the environment.
func registerDefaults(v *viper.Viper, cfg types.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	defaults := viper.New()
	defaults.SetConfigType("yaml")
	if err := defaults.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("reading default config: %w", err)
	}
	for _, key := range defaults.AllKeys() {
		v.SetDefault(key, defaults.Get(key))
	}
	return nil
}

// applySecrets fills credentials the configuration left empty from the
// secrets directory.
func applySecrets(cfg types.Config, s secrets.Secrets) types.Config {
	cfg.Graph.APIKey = s.Resolve(cfg.Graph.APIKey, secrets.SemanticScholarKey)
	if cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKey = s.Resolve(cfg.Embedding.APIKey, secrets.OpenAIKey)
	}

	switch cfg.Judge.Provider {
	case "anthropic":
		cfg.Judge.APIKey = s.Resolve(cfg.Judge.APIKey, secrets.AnthropicKey)
	default:
		cfg.Judge.APIKey = s.Resolve(cfg.Judge.APIKey, secrets.OpenAIKey)
	}

	cfg.Library.APIKey = s.Resolve(cfg.Library.APIKey, secrets.ZoteroKey)
	cfg.Library.UserID = s.Resolve(cfg.Library.UserID, secrets.ZoteroUserID)

	switch cfg.Index.Backend {
	case types.IndexElasticsearch:
		cfg.Index.APIKey = s.Resolve(cfg.Index.APIKey, secrets.ElasticsearchKey)
	case types.IndexRedis:
		cfg.Index.Password = s.Resolve(cfg.Index.Password, secrets.RedisPassword)
	}
	return cfg
}
