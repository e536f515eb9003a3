// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/whats-next/pkg/types"
)

// New builds the configured judge.
func New(ctx context.Context, cfg types.JudgeConfig, logger *slog.Logger) (*LLMJudge, error) {
	var (
		c   Completer
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		c, err = NewOpenAICompleter(ctx, cfg)
	case "anthropic":
		c, err = NewAnthropicCompleter(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewLLMJudge(c), nil
}
