// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"fmt"
	"strings"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/pdiddy/whats-next/pkg/types"
)

const defaultOpenAIModel = "gpt-4o-mini"

// ChatModelCompleter drives any eino chat model.
type ChatModelCompleter struct {
	model model.BaseChatModel
}

// NewChatModelCompleter wraps m.
func NewChatModelCompleter(m model.BaseChatModel) *ChatModelCompleter {
	return &ChatModelCompleter{model: m}
}

// NewOpenAICompleter builds an OpenAI-compatible chat model. BaseURL points
// it at any compatible server.
func NewOpenAICompleter(ctx context.Context, cfg types.JudgeConfig) (*ChatModelCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai judge requires an API key", ErrConfiguration)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
	}
	temperature := float32(0)
	m, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       modelName,
		Timeout:     cfg.Timeout,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating chat model: %w", ErrConfiguration, err)
	}
	return NewChatModelCompleter(m), nil
}

func (c *ChatModelCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		return "", fmt.Errorf("calling chat model: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("chat model returned empty content")
	}
	return msg.Content, nil
}
