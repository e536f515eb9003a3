// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package judge asks a chat model whether a recommended paper is worth
// reading, or worth citing, for a stated intention. It sits outside the
// retrieval pipeline: results are ranked without it, and a failed judgment
// never becomes part of a result.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/whats-next/pkg/types"
)

var (
	// ErrJudgmentUnavailable marks a model call that failed or returned
	// something that is not a verdict.
	ErrJudgmentUnavailable = errors.New("judgment unavailable")

	// ErrConfiguration marks a missing credential or unsupported provider.
	ErrConfiguration = errors.New("judge configuration error")
)

// Paper is what the model sees of a candidate.
type Paper struct {
	Title    string
	Abstract string
}

// Verdict is a yes/no decision with the model's explanation.
type Verdict struct {
	Decision bool   `json:"decision" yaml:"decision"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Judge decides whether papers match a reader's intention.
type Judge interface {
	// ShouldRead reports whether the paper is worth reading for intention,
	// with reading insights as the reason.
	ShouldRead(ctx context.Context, intention string, p Paper) (Verdict, error)
	// ShouldCite reports whether the paper belongs in a draft described by
	// intention and keyword.
	ShouldCite(ctx context.Context, intention, keyword string, p Paper) (Verdict, error)
}

// Completer sends one system/user exchange to a chat model and returns the
// text of its reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// LLMJudge renders the judgment prompts and parses the model's JSON reply.
type LLMJudge struct {
	completer Completer
}

// NewLLMJudge wraps a completer.
func NewLLMJudge(c Completer) *LLMJudge {
	return &LLMJudge{completer: c}
}

func (j *LLMJudge) ShouldRead(ctx context.Context, intention string, p Paper) (Verdict, error) {
	user, err := render(readUserTmpl, promptData{Paper: p, Intention: intention})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: rendering prompt: %w", ErrJudgmentUnavailable, err)
	}
	return j.ask(ctx, readSystemPrompt, user, "read", "insights")
}

func (j *LLMJudge) ShouldCite(ctx context.Context, intention, keyword string, p Paper) (Verdict, error) {
	user, err := render(citeUserTmpl, promptData{Paper: p, Intention: intention, Keyword: keyword})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: rendering prompt: %w", ErrJudgmentUnavailable, err)
	}
	return j.ask(ctx, citeSystemPrompt, user, "put", "reason")
}

func (j *LLMJudge) ask(ctx context.Context, system, user, decisionKey, reasonKey string) (Verdict, error) {
	reply, err := j.completer.Complete(ctx, system, user)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrJudgmentUnavailable, err)
	}
	v, err := parseVerdict(reply, decisionKey, reasonKey)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrJudgmentUnavailable, err)
	}
	return v, nil
}

// parseVerdict reads the first JSON object in reply. Models often wrap it
// in a code fence or a sentence.
func parseVerdict(reply, decisionKey, reasonKey string) (Verdict, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return Verdict{}, fmt.Errorf("no JSON object in model reply")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return Verdict{}, fmt.Errorf("parsing model reply: %w", err)
	}

	var v Verdict
	switch d := raw[decisionKey].(type) {
	case bool:
		v.Decision = d
	case string:
		switch strings.ToLower(strings.TrimSpace(d)) {
		case "yes", "true", "y":
			v.Decision = true
		case "no", "false", "n":
		default:
			return Verdict{}, fmt.Errorf("%q is %q, want yes or no", decisionKey, d)
		}
	case nil:
		return Verdict{}, fmt.Errorf("model reply has no %q", decisionKey)
	default:
		return Verdict{}, fmt.Errorf("%q has type %T", decisionKey, d)
	}

	switch r := raw[reasonKey].(type) {
	case string:
		v.Reason = strings.TrimSpace(r)
	case nil:
	default:
		b, _ := json.Marshal(r)
		v.Reason = string(b)
	}
	return v, nil
}

// Enrich fills Insights on each result with a read verdict. A failed
// judgment leaves that result's Insights nil.
func Enrich(ctx context.Context, j Judge, intention string, results []types.RankedResult, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for i := range results {
		if ctx.Err() != nil {
			return
		}
		v, err := j.ShouldRead(ctx, intention, Paper{Title: results[i].Title, Abstract: results[i].Abstract})
		if err != nil {
			logger.Warn("judgment unavailable", "title", results[i].Title, "err", err)
			continue
		}
		results[i].Insights = &types.Insights{Read: v.Decision, Reason: v.Reason}
	}
}
