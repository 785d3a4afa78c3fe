package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/esg-screener/server/internal/agent/graph/conversations"
	"github.com/esg-screener/server/internal/agent/graph/nodes"
	"github.com/esg-screener/server/internal/agent/graph/observers"
	"github.com/esg-screener/server/internal/agent/graph/tools"
	"github.com/esg-screener/server/internal/agent/model"
	"github.com/esg-screener/server/internal/universe"
	logx "github.com/esg-screener/server/pkg/logger"
)

// Runner executes one user turn through the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error)
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	Classifier      model.IntentClassifier
	Extractor       model.CriteriaExtractor
	AnswerModel     einomodel.ChatModel
	AnswerModelName string
	Universe        *universe.Universe
	MessagesManager *conversations.MessagesManager
	Screen          model.ScreenConfig
	ToolMaxCalls    int
}

// GraphBuilder handles the construction of the screening agent graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error) {
	out, err := r.runnable.Invoke(ctx, model.QueryInput{
		ConversationID: in.ConversationID,
		Query:          in.Query,
	}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	return turnResult(out), nil
}

// turnResult reads the turn kind and payload the terminal node left on Extra.
func turnResult(out *schema.Message) *model.TurnResult {
	res := &model.TurnResult{Kind: model.TurnAnswer}
	if out == nil {
		return res
	}
	res.Text = out.Content
	if kind, ok := out.Extra[model.ExtraTurnKind].(model.TurnKind); ok {
		res.Kind = kind
	}
	if ranking, ok := out.Extra[model.ExtraRanking].(*model.Ranking); ok {
		res.Ranking = ranking
	}
	if path, ok := out.Extra[model.ExtraExportPath].(string); ok {
		res.ExportPath = path
	}
	if cost, ok := out.Extra[model.ExtraTotalCost].(float64); ok {
		res.CostUSD = cost
	}
	return res
}

// NewRunner builds the graph and wraps it in a Runner.
func NewRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled agent graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Classifier == nil || config.Extractor == nil || config.AnswerModel == nil {
		return nil, fmt.Errorf("models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.Universe == nil || config.Universe.Len() == 0 {
		return nil, fmt.Errorf("universe is empty")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools configures the universe tools and binds them to the answer model
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	queryTools := tools.GetQueryTools(b.config.Universe)
	toolInfos, err := tools.GetToolInfos(ctx, queryTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.AnswerModel.BindTools(toolInfos); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to answer model")
		return fmt.Errorf("failed to bind tools to answer model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               queryTools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: sanitizeToolArguments,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)

	return nil
}

// sanitizeToolArguments is best-effort and never fails the call.
func sanitizeToolArguments(ctx context.Context, name, arguments string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments, nil
	}

	switch name {
	case tools.ToolLookupCompany:
		if v, ok := m["ticker"]; ok {
			m["ticker"] = strings.ToUpper(strings.TrimSpace(fmt.Sprint(v)))
		}
	case tools.ToolSearchCompanies:
		if v, ok := m["query"]; ok {
			m["query"] = strings.TrimSpace(fmt.Sprint(v))
		}
		// JSON numbers decode as float64
		if v, ok := m["max_results"]; ok {
			switch vv := v.(type) {
			case float64:
				m["max_results"] = clampInt(int(vv), 1, tools.MaxSearchResults)
			case string:
				if n, err := strconv.Atoi(strings.TrimSpace(vv)); err == nil {
					m["max_results"] = clampInt(n, 1, tools.MaxSearchResults)
				} else {
					delete(m, "max_results")
				}
			default:
				delete(m, "max_results")
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(out), nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	mm := b.config.MessagesManager

	b.graph.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(mm),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeExporter,
		nodes.NewExporterNode(mm, b.config.Screen.ExportDir),
	)

	b.graph.AddLambdaNode(nodes.NodeClassifier,
		nodes.NewClassifierNode(b.config.Classifier),
		compose.WithStatePostHandler(nodes.NewClassifierPostHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeExtractor,
		nodes.NewExtractorNode(b.config.Extractor),
		compose.WithStatePostHandler(nodes.NewExtractorPostHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeRanker,
		nodes.NewRankerNode(mm, b.config.Universe, b.config.Screen),
	)

	b.graph.AddLambdaNode(nodes.NodeAnswerAssembler,
		nodes.NewAnswerAssemblerNode(mm, b.config.Universe.Len()),
	)

	b.graph.AddChatModelNode(nodes.NodeAnswerChatModel,
		b.config.AnswerModel,
		compose.WithStatePreHandler(nodes.NewAnswerChatModelPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewAnswerChatModelPostHandler(mm, b.config.AnswerModelName)),
	)

	b.graph.AddLambdaNode(nodes.NodeRefusal,
		nodes.NewRefusalNode(mm),
	)

	b.graph.AddLambdaNode(nodes.NodeClassificationFailure,
		nodes.NewClassificationFailureNode(mm),
	)
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeExtractor, nodes.NodeRanker},
		{nodes.NodeAnswerAssembler, nodes.NodeAnswerChatModel},
		{nodes.NodeToolExecutor, nodes.NodeAnswerChatModel},
		{nodes.NodeExporter, compose.END},
		{nodes.NodeRanker, compose.END},
		{nodes.NodeRefusal, compose.END},
		{nodes.NodeClassificationFailure, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	inputBranch := compose.NewGraphBranch(
		nodes.NewInputRouteCondition(),
		map[string]bool{
			nodes.NodeExporter:   true,
			nodes.NodeClassifier: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeInputConverter, inputBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding input branch")
		return fmt.Errorf("error adding input branch: %w", err)
	}

	intentBranch := compose.NewGraphBranch(
		nodes.NewIntentRouteCondition(),
		map[string]bool{
			nodes.NodeExtractor:             true,
			nodes.NodeAnswerAssembler:       true,
			nodes.NodeRefusal:               true,
			nodes.NodeClassificationFailure: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeClassifier, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}

	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAnswerChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + b.config.ToolMaxCalls*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// clampInt returns v limited to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
