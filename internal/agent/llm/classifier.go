package llm

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/esg-screener/server/internal/agent/graph/parsers"
	"github.com/esg-screener/server/internal/agent/graph/prompts"
	"github.com/esg-screener/server/internal/agent/model"
	logx "github.com/esg-screener/server/pkg/logger"
)

var errEmptyReply = errors.New("empty model reply")

// ChatClassifier asks a chat model whether an utterance wants a ranked list.
type ChatClassifier struct {
	caller
}

// NewChatClassifier wraps chat; modelName is used for pricing and logs.
func NewChatClassifier(chat einomodel.BaseChatModel, modelName string, opts ...Option) *ChatClassifier {
	return &ChatClassifier{caller: newCaller(chat, modelName, "classifier", opts)}
}

// Classify returns the parsed verdict. Model and parse failures are returned
// as errors; callers decide how to fail closed.
func (c *ChatClassifier) Classify(ctx context.Context, utterance string) (model.IntentResult, error) {
	msgs, err := prompts.RenderIntentMessages(ctx, utterance)
	if err != nil {
		return model.IntentResult{}, err
	}
	content, err := c.generate(ctx, msgs)
	if err != nil {
		return model.IntentResult{}, err
	}
	res, err := parsers.ParseIntent(content)
	if err != nil {
		return model.IntentResult{}, fmt.Errorf("classify: %w", err)
	}
	logx.Debug().
		Str("intent", string(res.Label)).
		Float64("confidence", res.Confidence).
		Str("reason", res.Reason).
		Msg("utterance classified")
	return res, nil
}

var _ model.IntentClassifier = (*ChatClassifier)(nil)
