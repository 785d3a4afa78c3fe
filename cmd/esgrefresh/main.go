// Command esgrefresh scrapes the environmental, social, governance and total
// ESG risk scores for every ticker in the company table and writes them back.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/esg-screener/server/internal/core"
	"github.com/esg-screener/server/internal/universe"
	logx "github.com/esg-screener/server/pkg/logger"
)

type refreshConfig struct {
	Environment string        `envconfig:"ENVIRONMENT" default:"development"`
	DataPath    string        `envconfig:"SCREEN_DATA_PATH" default:"data/sp500_companies.csv"`
	Limit       int           `envconfig:"ESG_REFRESH_LIMIT" default:"0"`
	Pause       time.Duration `envconfig:"ESG_REFRESH_SLEEP" default:"500ms"`
	RenderWait  time.Duration `envconfig:"ESG_REFRESH_RENDER_WAIT" default:"1200ms"`
}

func main() {
	_ = godotenv.Load(".env")

	var cfg refreshConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	flag.StringVar(&cfg.DataPath, "csv", cfg.DataPath, "company table to update in place")
	flag.IntVar(&cfg.Limit, "limit", cfg.Limit, "only refresh the first N tickers (0 = all)")
	flag.DurationVar(&cfg.Pause, "sleep", cfg.Pause, "pause between tickers")
	flag.DurationVar(&cfg.RenderWait, "wait", cfg.RenderWait, "time given to each page to render")
	flag.Parse()

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Str("csv", cfg.DataPath).Msg("ESG refresh failed")
	}
}

func run(ctx context.Context, cfg refreshConfig) error {
	table, err := universe.ReadTableFile(cfg.DataPath)
	if err != nil {
		return err
	}

	fetcher, err := universe.NewBrowserFetcher(cfg.RenderWait)
	if err != nil {
		return err
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logx.Warn().Err(err).Msg("Error closing browser")
		}
	}()

	res, refreshErr := universe.RefreshESG(ctx, table, fetcher, universe.RefreshOptions{
		Limit: cfg.Limit,
		Pause: cfg.Pause,
	})

	// Partial progress is still written when the run is interrupted.
	if err := table.WriteFile(cfg.DataPath); err != nil {
		return err
	}
	logx.Info().
		Int("fetched", res.Fetched).
		Int("failed", res.Failed).
		Int("pillars", res.Pillars).
		Str("csv", cfg.DataPath).
		Msg("ESG refresh written")
	return refreshErr
}
