package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/esg-screener/server/internal/agent/graph"
	"github.com/esg-screener/server/internal/agent/graph/conversations"
	"github.com/esg-screener/server/internal/agent/graph/nodes"
	"github.com/esg-screener/server/internal/agent/graph/parsers"
	"github.com/esg-screener/server/internal/agent/llm"
	"github.com/esg-screener/server/internal/agent/model"
	"github.com/esg-screener/server/internal/agent/repo"
	"github.com/esg-screener/server/internal/core"
	errx "github.com/esg-screener/server/internal/core/error"
	"github.com/esg-screener/server/internal/universe"
	logx "github.com/esg-screener/server/pkg/logger"
	pkgredis "github.com/esg-screener/server/pkg/redis"
	"github.com/esg-screener/server/pkg/tracing"
)

// AppConfig defines all configurable parameters for the screener,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis   pkgredis.Config
	Tracing tracing.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Classifier   model.ClassifierModelConfig
	Extractor    model.ExtractorModelConfig
	Answer       model.AnswerModelConfig
	Screen       model.ScreenConfig
	Conversation model.ConversationConfig
	Agent        model.AgentConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	if err := tracing.Init(ctx, cfg.Tracing); err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise tracing")
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logx.Warn().Err(err).Msg("Error flushing traces")
		}
	}()

	u, err := loadUniverse(cfg.Screen)
	if err != nil {
		logx.Fatal().Err(errx.WrapData(err)).Str("path", cfg.Screen.DataPath).Msg("Failed to load company data")
	}

	convRepo, closeRepo, err := newConversationRepository(cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise conversation store")
	}
	defer closeRepo()

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Classifier: &cfg.Classifier,
		Extractor:  &cfg.Extractor,
		Answer:     &cfg.Answer,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create chat models")
	}

	runner, err := graph.NewRunner(ctx, &graph.GraphConfig{
		Classifier:      llm.NewChatClassifier(cms.Classifier, cms.ClassifierModelName, llm.WithUsageHook(nodes.AccumulateUsage)),
		Extractor:       llm.NewChatExtractor(cms.Extractor, cms.ExtractorModelName, llm.WithUsageHook(nodes.AccumulateUsage)),
		AnswerModel:     cms.Answer,
		AnswerModelName: cms.AnswerModelName,
		Universe:        u,
		MessagesManager: conversations.NewMessagesManager(convRepo, cfg.Conversation),
		Screen:          cfg.Screen,
		ToolMaxCalls:    cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build graph")
	}

	turnTimeout, err := time.ParseDuration(cfg.Agent.TurnTimeout)
	if err != nil {
		logx.Fatal().Err(err).Str("value", cfg.Agent.TurnTimeout).Msg("Invalid AGENT_TURN_TIMEOUT")
	}

	chat(ctx, runner, u.Len(), turnTimeout)
}

func loadUniverse(cfg model.ScreenConfig) (*universe.Universe, error) {
	u, err := universe.Load(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.UniverseFilter) == "" {
		return u, nil
	}

	filter, err := universe.CompileFilter(cfg.UniverseFilter)
	if err != nil {
		return nil, err
	}
	sub, err := u.Apply(filter)
	if err != nil {
		return nil, err
	}
	if sub.Len() == 0 {
		return nil, fmt.Errorf("filter %q: %w", cfg.UniverseFilter, universe.ErrEmptyUniverse)
	}
	logx.Info().Str("filter", cfg.UniverseFilter).Int("companies", sub.Len()).Msg("Universe filtered")
	return sub, nil
}

// newConversationRepository uses Redis when REDIS_URL is set and an in-process store otherwise.
func newConversationRepository(cfg AppConfig) (model.ConversationRepository, func(), error) {
	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", cfg.Conversation.TTL, err)
	}

	if !cfg.Redis.Enabled() {
		logx.Info().Msg("REDIS_URL not set; conversations are kept in memory")
		return repo.NewMemoryConversationRepository(ttl), func() {}, nil
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		return nil, nil, errx.WrapRedis(err)
	}
	logx.Info().Msg("Connected to Redis successfully")
	return repo.NewRedisConversationRepository(rdb, ttl), func() { _ = rdb.Close() }, nil
}

func chat(ctx context.Context, runner graph.Runner, universeSize int, turnTimeout time.Duration) {
	conversationID := uuid.NewString()
	logx.Debug().Str("conversation_id", conversationID).Msg("Conversation started")

	fmt.Printf("ESG screener ready: %d companies loaded. Ask for a ranking or about a company (Ctrl-D to quit).\n", universeSize)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
		res, err := runner.Invoke(turnCtx, model.QueryInput{
			ConversationID: conversationID,
			Query:          query,
		})
		cancel()

		switch {
		case err == nil:
			fmt.Println(res.Text)
			logx.Debug().
				Str("turn_kind", string(res.Kind)).
				Float64("total_cost_usd", res.CostUSD).
				Msg("Turn completed")
		case errors.Is(err, parsers.ErrNoCriteria):
			fmt.Println("I couldn't match that request to any attribute I can rank by. Try a clearer request, e.g. \"low beta and low ESG risk\".")
		case errors.Is(err, context.DeadlineExceeded):
			fmt.Println("That took too long. Please try again.")
		case ctx.Err() != nil:
			return
		default:
			logx.Error().Err(err).Int("status", errx.StatusOf(err)).Msg("Turn failed")
			fmt.Println("Sorry, something went wrong answering that. Please try again.")
		}
	}
}
