package universe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/esg-screener/server/internal/agent/model"
	logx "github.com/esg-screener/server/pkg/logger"
)

// PillarAttributes are the columns an ESG refresh writes, in column order.
var PillarAttributes = []model.Attribute{
	model.AttrEnvironmentalRisk,
	model.AttrSocialRisk,
	model.AttrGovernanceRisk,
	model.AttrESGTotal,
}

var pillarLabels = map[model.Attribute][]string{
	model.AttrEnvironmentalRisk: {"environment risk score", "environmental risk score"},
	model.AttrSocialRisk:        {"social risk score"},
	model.AttrGovernanceRisk:    {"governance risk score"},
	model.AttrESGTotal:          {"esg risk rating", "total esg risk", "overall esg risk"},
}

const labelWindow = 200

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ExtractPillars scans rendered page text for pillar labels and takes the
// first number within a short window after each. Labels not found are absent
// from the result.
func ExtractPillars(pageText string) map[model.Attribute]float64 {
	text := strings.ToLower(strings.Join(strings.Fields(pageText), " "))
	out := make(map[model.Attribute]float64, len(pillarLabels))
	for attr, labels := range pillarLabels {
		for _, label := range labels {
			i := strings.Index(text, label)
			if i < 0 {
				continue
			}
			window := text[i:min(len(text), i+labelWindow)]
			m := numberPattern.FindString(window)
			if m == "" {
				continue
			}
			if v, err := strconv.ParseFloat(m, 64); err == nil {
				out[attr] = v
				break
			}
		}
	}
	return out
}

// PageFetcher returns the visible text of a ticker's sustainability page.
type PageFetcher interface {
	PageText(ctx context.Context, ticker string) (string, error)
}

// RefreshOptions controls an ESG refresh run.
type RefreshOptions struct {
	// Limit caps how many tickers are fetched; zero means all.
	Limit int
	// Pause between fetches.
	Pause time.Duration
}

// RefreshResult summarizes a refresh run.
type RefreshResult struct {
	Fetched int
	Failed  int
	// Pillars counts how many pillar cells were filled.
	Pillars int
}

// RefreshESG fetches pillar scores for each ticker in t and writes them into
// the pillar columns, adding the columns when absent. A failed fetch blanks
// that row's pillars and the run continues.
func RefreshESG(ctx context.Context, t *Table, fetcher PageFetcher, opts RefreshOptions) (RefreshResult, error) {
	var res RefreshResult
	tickerCol := t.Column("ticker")
	if tickerCol < 0 {
		return res, fmt.Errorf("%w: table needs 'ticker'", ErrMissingColumn)
	}
	cols := make([]int, len(PillarAttributes))
	for i, a := range PillarAttributes {
		cols[i] = t.EnsureColumn(string(a))
	}

	total := len(t.Rows)
	if opts.Limit > 0 && opts.Limit < total {
		total = opts.Limit
	}
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if tickerCol >= len(t.Rows[i]) {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(t.Rows[i][tickerCol]))
		if ticker == "" {
			continue
		}

		text, err := fetcher.PageText(ctx, ticker)
		var scores map[model.Attribute]float64
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			logx.Warn().Err(err).Str("ticker", ticker).Int("n", i+1).Int("of", total).Msg("esg fetch failed")
			res.Failed++
		} else {
			scores = ExtractPillars(text)
			res.Fetched++
		}

		for j, a := range PillarAttributes {
			cell := ""
			if v, ok := scores[a]; ok {
				cell = strconv.FormatFloat(v, 'f', -1, 64)
				res.Pillars++
			}
			t.Set(i, cols[j], cell)
		}
		logx.Info().Str("ticker", ticker).Int("n", i+1).Int("of", total).Int("pillars", len(scores)).Msg("esg refreshed")

		if opts.Pause > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(opts.Pause):
			}
		}
	}
	return res, nil
}
