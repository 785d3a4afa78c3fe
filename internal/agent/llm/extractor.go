package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/esg-screener/server/internal/agent/graph/parsers"
	"github.com/esg-screener/server/internal/agent/graph/prompts"
	"github.com/esg-screener/server/internal/agent/model"
	logx "github.com/esg-screener/server/pkg/logger"
)

// ChatExtractor asks a chat model which attributes a ranking request cares about.
type ChatExtractor struct {
	caller
}

// NewChatExtractor wraps chat; modelName is used for pricing and logs.
func NewChatExtractor(chat einomodel.BaseChatModel, modelName string, opts ...Option) *ChatExtractor {
	return &ChatExtractor{caller: newCaller(chat, modelName, "extractor", opts)}
}

// Extract returns the weighted criteria. A reply naming no usable attribute
// yields parsers.ErrNoCriteria.
func (e *ChatExtractor) Extract(ctx context.Context, utterance string) (model.CriteriaSpec, error) {
	msgs, err := prompts.RenderCriteriaMessages(ctx, utterance)
	if err != nil {
		return nil, err
	}
	content, err := e.generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	spec, err := parsers.ParseCriteria(content)
	if err != nil {
		return nil, fmt.Errorf("extract criteria: %w", err)
	}
	logx.Debug().Str("criteria", spec.Slug(0)).Msg("criteria extracted")
	return spec, nil
}

var _ model.CriteriaExtractor = (*ChatExtractor)(nil)
