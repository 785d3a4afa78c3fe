package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/esg-screener/server/internal/agent/graph/conversations"
	"github.com/esg-screener/server/internal/agent/model"
	logx "github.com/esg-screener/server/pkg/logger"
)

// finalMessage builds the assistant reply of a non-model branch, persists it
// and tags it with the turn kind and running cost.
func finalMessage(ctx context.Context, mm *conversations.MessagesManager, kind model.TurnKind, text string, extra map[string]any) *schema.Message {
	msg := schema.AssistantMessage(text, nil)
	msg.Extra = map[string]any{model.ExtraTurnKind: kind}
	for k, v := range extra {
		msg.Extra[k] = v
	}

	var conversationID string
	_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		conversationID = state.ConversationID
		msg.Extra[model.ExtraTotalCost] = state.TotalCostUSD
		return nil
	})

	if err := mm.SaveResponse(ctx, conversationID, text); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Str("turn_kind", string(kind)).Msg("Error saving assistant response")
	}
	return msg
}

func stateQuery(ctx context.Context) (string, error) {
	var query string
	err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		query = state.Query
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to access state: %w", err)
	}
	return query, nil
}

func stateConversationID(ctx context.Context) (string, error) {
	var id string
	err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		id = state.ConversationID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to access state: %w", err)
	}
	return id, nil
}

func logUsage(conversationID, node string, usage model.UsageCost) {
	logx.Debug().
		Str("conversation_id", conversationID).
		Str("node", node).
		Str("model", usage.Model).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", usage.InputCost).
		Float64("output_cost_usd", usage.OutputCost).
		Float64("total_cost_usd", usage.TotalCost).
		Msg("LLM usage")
}
