// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/whats-next/internal/secrets"
	"github.com/pdiddy/whats-next/pkg/types"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("WHATS_NEXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newViper())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whats-next.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
graph:
  limit: 200
  min_interval: 3s
index:
  backend: redis
  addr: localhost:6379
server:
  addr: ":9000"
`), 0o644))

	t.Setenv("WHATS_NEXT_SERVER_ADDR", ":9100")
	t.Setenv("WHATS_NEXT_JUDGE_API_KEY", "sk-env")
	t.Setenv("WHATS_NEXT_SEARCH_MAX_RESULTS", "5")

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Graph.Limit)
	assert.Equal(t, 3*time.Second, cfg.Graph.MinInterval)
	assert.Equal(t, 30*time.Second, cfg.Graph.Timeout, "unset keys keep their defaults")
	assert.Equal(t, types.IndexRedis, cfg.Index.Backend)
	assert.Equal(t, "localhost:6379", cfg.Index.Addr)
	assert.Equal(t, ":9100", cfg.Server.Addr, "environment overrides the file")
	assert.Equal(t, "sk-env", cfg.Judge.APIKey)
	assert.Equal(t, 5, cfg.Search.MaxResults)
}

func TestApplySecrets(t *testing.T) {
	s := secrets.Secrets{
		secrets.SemanticScholarKey: "s2",
		secrets.OpenAIKey:          "sk",
		secrets.AnthropicKey:       "ant",
		secrets.ZoteroKey:          "zot",
		secrets.ZoteroUserID:       "42",
		secrets.RedisPassword:      "hunter2",
		secrets.ElasticsearchKey:   "es",
	}

	cfg := types.DefaultConfig()
	cfg.Embedding.Provider = "openai"
	cfg.Index.Backend = types.IndexRedis
	cfg.Library.APIKey = "explicit"

	got := applySecrets(cfg, s)
	assert.Equal(t, "s2", got.Graph.APIKey)
	assert.Equal(t, "sk", got.Embedding.APIKey)
	assert.Equal(t, "sk", got.Judge.APIKey)
	assert.Equal(t, "explicit", got.Library.APIKey, "configured values win")
	assert.Equal(t, "42", got.Library.UserID)
	assert.Equal(t, "hunter2", got.Index.Password)
	assert.Empty(t, got.Index.APIKey)

	cfg = types.DefaultConfig()
	cfg.Judge.Provider = "anthropic"
	cfg.Index.Backend = types.IndexElasticsearch
	got = applySecrets(cfg, s)
	assert.Equal(t, "ant", got.Judge.APIKey)
	assert.Empty(t, got.Embedding.APIKey, "hash embeddings need no key")
	assert.Equal(t, "es", got.Index.APIKey)
}
