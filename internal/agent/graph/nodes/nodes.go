package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/esg-screener/server/internal/agent/graph/conversations"
	"github.com/esg-screener/server/internal/agent/graph/prompts"
	"github.com/esg-screener/server/internal/agent/model"
	errx "github.com/esg-screener/server/internal/core/error"
	"github.com/esg-screener/server/internal/screener"
	"github.com/esg-screener/server/internal/universe"
	logx "github.com/esg-screener/server/pkg/logger"
	"github.com/esg-screener/server/pkg/tracing"
)

// NewInputConverterPreHandler creates the pre-handler for InputConverter node
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		if s.ConversationID == "" {
			s.ConversationID = in.ConversationID
		}
		s.Query = strings.TrimSpace(in.Query)
		s.Intent = nil
		s.Criteria = nil
		s.History = nil
		// Reset tool call counter and limit flag for each new query
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		// Reset accumulated total cost for each new query
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode saves the utterance and checks for a ranking waiting to be exported.
func NewInputConverterNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) (model.TurnInput, error) {
		if err := mm.SaveUserMessage(ctx, input.ConversationID, input.Query); err != nil {
			return model.TurnInput{}, fmt.Errorf("error saving user message: %w", err)
		}

		out := model.TurnInput{
			ConversationID: input.ConversationID,
			Query:          strings.TrimSpace(input.Query),
		}
		pending, err := mm.PendingRanking(ctx, input.ConversationID)
		if err != nil {
			logx.Warn().Err(err).Str("conversation_id", input.ConversationID).Msg("could not load pending ranking")
		}
		out.PendingRanking = pending != nil
		return out, nil
	})
}

// NewInputRouteCondition sends a short "yes" after a ranking to the Exporter.
func NewInputRouteCondition() func(context.Context, model.TurnInput) (string, error) {
	return func(ctx context.Context, in model.TurnInput) (string, error) {
		if in.PendingRanking && IsAffirmative(in.Query) {
			logx.Debug().Str("conversation_id", in.ConversationID).Msg("Routing to Exporter - affirmative reply to export offer")
			return NodeExporter, nil
		}
		return NodeClassifier, nil
	}
}

// NewExporterNode writes the pending ranking to a CSV file.
func NewExporterNode(mm *conversations.MessagesManager, exportDir string) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (*schema.Message, error) {
		ranking, err := mm.PendingRanking(ctx, in.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("load pending ranking: %w", err)
		}
		if ranking == nil {
			return finalMessage(ctx, mm, model.TurnExport, NoPendingRankingMessage, nil), nil
		}

		path, err := screener.Export(exportDir, ranking, ranking.TopN)
		if err != nil {
			logx.Error().Err(err).Str("conversation_id", in.ConversationID).Msg("Export failed")
			return nil, errx.WrapData(err)
		}
		logx.Info().Str("conversation_id", in.ConversationID).Str("path", path).Msg("Ranking exported")

		return finalMessage(ctx, mm, model.TurnExport, "Saved CSV: "+path, map[string]any{
			model.ExtraExportPath: path,
		}), nil
	})
}

// NewClassifierNode classifies the utterance. Failures never abort the turn:
// they become IntentUnknown so the graph can report it.
func NewClassifierNode(classifier model.IntentClassifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.IntentResult, error) {
		res, err := classifier.Classify(ctx, in.Query)
		if err != nil {
			logx.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("Classification failed - failing closed")
			return model.IntentResult{Label: model.IntentUnknown, Reason: err.Error()}, nil
		}
		return res, nil
	})
}

// NewClassifierPostHandler stores the verdict in state.
func NewClassifierPostHandler() func(context.Context, model.IntentResult, *model.AppState) (model.IntentResult, error) {
	return func(ctx context.Context, out model.IntentResult, state *model.AppState) (model.IntentResult, error) {
		state.Intent = &out
		logx.Debug().
			Str("conversation_id", state.ConversationID).
			Str("intent", string(out.Label)).
			Float64("confidence", out.Confidence).
			Msg("Intent resolved")
		return out, nil
	}
}

// NewIntentRouteCondition picks the branch for a verdict.
func NewIntentRouteCondition() func(context.Context, model.IntentResult) (string, error) {
	return func(ctx context.Context, in model.IntentResult) (string, error) {
		if in.IsRanking() {
			return NodeExtractor, nil
		}
		switch in.Label {
		case model.IntentSingle:
			return NodeAnswerAssembler, nil
		case model.IntentOther:
			var query string
			_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
				query = state.Query
				return nil
			})
			if IsFinanceRelated(query) {
				return NodeAnswerAssembler, nil
			}
			logx.Debug().Msg("Routing to Refusal - not finance related")
			return NodeRefusal, nil
		default:
			return NodeClassificationFailure, nil
		}
	}
}

// NewExtractorNode maps the ranking request onto weighted criteria.
func NewExtractorNode(extractor model.CriteriaExtractor) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.IntentResult) (model.CriteriaSpec, error) {
		query, err := stateQuery(ctx)
		if err != nil {
			return nil, err
		}
		return extractor.Extract(ctx, query)
	})
}

// NewExtractorPostHandler stores the criteria in state.
func NewExtractorPostHandler() func(context.Context, model.CriteriaSpec, *model.AppState) (model.CriteriaSpec, error) {
	return func(ctx context.Context, out model.CriteriaSpec, state *model.AppState) (model.CriteriaSpec, error) {
		state.Criteria = out
		return out, nil
	}
}

// NewRankerNode scores the universe and renders the top of the ranking.
func NewRankerNode(mm *conversations.MessagesManager, u *universe.Universe, cfg model.ScreenConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, spec model.CriteriaSpec) (*schema.Message, error) {
		conversationID, _ := stateConversationID(ctx)

		_, span := tracing.StartSpan(ctx, "screener.rank",
			attribute.String("criteria", spec.Slug(0)),
			attribute.Int("universe", u.Len()),
		)
		ranking := screener.Screen(spec, u.Records(), screener.Options{SectorNeutral: cfg.SectorNeutral}, cfg.FetchN, cfg.TopN)
		span.SetAttributes(attribute.Int("eligible", len(ranking.Results)), attribute.Int("excluded", ranking.Excluded))
		tracing.End(span, nil)

		logx.Info().
			Str("conversation_id", conversationID).
			Str("criteria", spec.Slug(0)).
			Int("ranked", len(ranking.Results)).
			Int("excluded", ranking.Excluded).
			Msg("Ranking computed")

		if len(ranking.Results) > 0 {
			if err := mm.SaveRanking(ctx, conversationID, ranking); err != nil {
				logx.Error().Err(err).Str("conversation_id", conversationID).Msg("Error saving ranking; export will be unavailable")
			}
		}

		return finalMessage(ctx, mm, model.TurnRanking, screener.FormatMarkdown(ranking, cfg.TopN), map[string]any{
			model.ExtraRanking: ranking,
		}), nil
	})
}

// NewAnswerAssemblerNode builds the answer model context: system prompt plus history.
func NewAnswerAssemblerNode(mm *conversations.MessagesManager, universeSize int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.IntentResult) ([]*schema.Message, error) {
		conversationID, err := stateConversationID(ctx)
		if err != nil {
			return nil, err
		}
		sys, err := prompts.RenderAnswerSystem(ctx, universeSize)
		if err != nil {
			return nil, fmt.Errorf("generate answer prompt: %w", err)
		}
		messages, err := mm.BuildAnswerContext(ctx, conversationID, sys)
		if err != nil {
			return nil, fmt.Errorf("build answer context: %w", err)
		}
		return messages, nil
	})
}

// NewAnswerChatModelPreHandler creates the pre-handler for AnswerChatModel node
func NewAnswerChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Some providers drop tool_call_id on tool results; recover it from the last assistant call
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			state.History = append(state.History, &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Answer with the company data you already gathered and say which values you could not look up.",
					maxToolCalls,
				),
			})
		}
		return state.History, nil
	}
}

// NewAnswerChatModelPostHandler records usage, normalizes tool call IDs and
// persists the final assistant reply.
func NewAnswerChatModelPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return nil, errx.WrapLLM(fmt.Errorf("answer model returned no message"))
		}
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		if usage, ok := model.UsageOf(modelName, out); ok {
			out.Extra[model.ExtraUsageCost] = usage.Extra()
			logUsage(state.ConversationID, NodeAnswerChatModel, usage)
			state.TotalCostUSD += usage.TotalCost
		}
		out.Extra[model.ExtraTotalCost] = state.TotalCostUSD
		out.Extra[model.ExtraTurnKind] = model.TurnAnswer

		// Normalize tool calls: some providers may omit tool_call IDs.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		}

		// Save only the final assistant message (no further tool calls),
		// or the reply produced once the tool-call limit was reached.
		if out.Role == schema.Assistant && (len(out.ToolCalls) == 0 || state.ToolCallLimitReached) && strings.TrimSpace(out.Content) != "" {
			if err := mm.SaveResponse(ctx, state.ConversationID, out.Content); err != nil {
				logx.Error().
					Str("conversation_id", state.ConversationID).
					Err(err).
					Msg("Error saving assistant response")
			}
		}
		return out, nil
	}
}

// NewToolExecutorCondition creates the condition function for tool execution routing
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to end")
			return compose.END, nil
		}
		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler creates the pre-handler for ToolExecutor node
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("conversation_id", state.ConversationID).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("conversation_id", state.ConversationID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}
		return in, nil
	}
}

// NewRefusalNode answers off-topic utterances with a fixed message.
func NewRefusalNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.IntentResult) (*schema.Message, error) {
		return finalMessage(ctx, mm, model.TurnRefusal, RefusalMessage, nil), nil
	})
}

// NewClassificationFailureNode reports that the utterance could not be classified.
func NewClassificationFailureNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.IntentResult) (*schema.Message, error) {
		return finalMessage(ctx, mm, model.TurnClassificationFailed, ClassificationFailureMessage, map[string]any{
			"reason": in.Reason,
		}), nil
	})
}

// AccumulateUsage adds a model call's cost to the running turn total. It is
// meant as the usage hook of models called from inside lambda nodes.
func AccumulateUsage(ctx context.Context, usage model.UsageCost) {
	err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		state.TotalCostUSD += usage.TotalCost
		logUsage(state.ConversationID, "", usage)
		return nil
	})
	if err != nil {
		logx.Debug().Err(err).Msg("usage outside of graph state")
	}
}
