// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"

	"github.com/pdiddy/whats-next/pkg/types"
)

// Open builds the configured store backend.
func Open(ctx context.Context, cfg types.IndexConfig) (Store, error) {
	switch cfg.Backend {
	case types.IndexMemory:
		return NewMemoryStore(), nil
	case types.IndexSQLite, "":
		return NewSQLiteStore(cfg.Dir)
	case types.IndexRedis:
		return NewRedisStore(ctx, cfg)
	case types.IndexElasticsearch:
		return NewElasticStore(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported backend %q", ErrConfiguration, cfg.Backend)
	}
}
