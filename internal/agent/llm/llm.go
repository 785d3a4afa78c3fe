// Package llm implements the intent classifier and the criteria extractor
// on top of an Eino chat model.
package llm

import (
	"context"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/esg-screener/server/internal/agent/model"
	errx "github.com/esg-screener/server/internal/core/error"
	logx "github.com/esg-screener/server/pkg/logger"
	"github.com/esg-screener/server/pkg/tracing"
)

// UsageFunc receives the priced usage of every model call.
type UsageFunc func(ctx context.Context, usage model.UsageCost)

type Option func(*caller)

// WithUsageHook registers fn to receive usage after each call.
func WithUsageHook(fn UsageFunc) Option {
	return func(c *caller) {
		c.onUsage = fn
	}
}

// caller is the shared single-shot Generate path of both components.
type caller struct {
	chat      einomodel.BaseChatModel
	modelName string
	component string
	onUsage   UsageFunc
}

func newCaller(chat einomodel.BaseChatModel, modelName, component string, opts []Option) caller {
	c := caller{chat: chat, modelName: modelName, component: component}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// generate runs one completion. Failures come back wrapped with errx.WrapLLM.
func (c *caller) generate(ctx context.Context, msgs []*schema.Message) (content string, err error) {
	ctx, span := tracing.StartSpan(ctx, "llm."+c.component,
		attribute.String("llm.model", c.modelName),
		attribute.Int("llm.messages", len(msgs)),
	)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	out, err := c.chat.Generate(ctx, msgs)
	if err != nil {
		logx.Error().Err(err).
			Str("component", c.component).
			Str("model", c.modelName).
			Dur("elapsed", time.Since(start)).
			Msg("model call failed")
		return "", errx.WrapLLM(err)
	}
	if out == nil {
		return "", errx.WrapLLM(errEmptyReply)
	}

	if usage, ok := model.UsageOf(c.modelName, out); ok {
		logx.Debug().
			Str("component", c.component).
			Str("model", c.modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("total_cost_usd", usage.TotalCost).
			Msg("LLM usage")
		span.SetAttributes(attribute.Int("llm.total_tokens", usage.TotalTokens))
		if c.onUsage != nil {
			c.onUsage(ctx, usage)
		}
	}

	content = strings.TrimSpace(out.Content)
	logx.Debug().
		Str("component", c.component).
		Dur("elapsed", time.Since(start)).
		Int("reply_len", len(content)).
		Msg("model call done")
	return content, nil
}
