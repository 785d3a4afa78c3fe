package screener

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esg-screener/server/internal/agent/model"
)

func company(ticker, sector string, metrics map[model.Attribute]float64) *model.CompanyRecord {
	return &model.CompanyRecord{Ticker: ticker, Name: ticker + " Corp", Sector: sector, Metrics: metrics}
}

func tickers(results []model.ScoredRecord) []string {
	out := make([]string, len(results))
	for i, sr := range results {
		out[i] = sr.Record.Ticker
	}
	return out
}

// syntheticUniverse builds n records with pseudo-random but reproducible metrics.
func syntheticUniverse(n int) []*model.CompanyRecord {
	rng := rand.New(rand.NewSource(42))
	sectors := []string{"Technology", "Energy", "Healthcare", "Utilities"}
	out := make([]*model.CompanyRecord, n)
	for i := range out {
		out[i] = company(fmt.Sprintf("T%03d", i), sectors[i%len(sectors)], map[model.Attribute]float64{
			model.AttrBeta:          0.2 + rng.Float64()*2,
			model.AttrESGTotal:      5 + rng.Float64()*40,
			model.AttrMarketCap:     1e9 + rng.Float64()*3e12,
			model.AttrDividendYield: rng.Float64() * 0.06,
		})
	}
	return out
}

var lowBetaHighESG = model.CriteriaSpec{
	{Attribute: model.AttrBeta, Weight: -1},
	{Attribute: model.AttrESGTotal, Weight: 1},
}

func TestScore_ThreeRecordScenario(t *testing.T) {
	records := []*model.CompanyRecord{
		company("A", "", map[model.Attribute]float64{model.AttrBeta: 0.8, model.AttrESGTotal: 70}),
		company("B", "", map[model.Attribute]float64{model.AttrBeta: 1.5, model.AttrESGTotal: 90}),
		company("C", "", map[model.Attribute]float64{model.AttrBeta: 0.5, model.AttrESGTotal: 40}),
	}

	scored, excluded := Score(lowBetaHighESG, records, Options{})
	require.Zero(t, excluded)
	ranked := Rank(scored)

	// beta n = {A: 0.3, B: 1, C: 0}, esg n = {A: 0.6, B: 1, C: 0}, weights ±0.5.
	assert.Equal(t, []string{"A", "B", "C"}, tickers(ranked))
	assert.InDelta(t, 0.15, ranked[0].Score, 1e-12)
	assert.Equal(t, 0.0, ranked[1].Score)
	assert.Equal(t, 0.0, ranked[2].Score)
	assert.Equal(t, []int{1, 2, 2}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
	assert.InDelta(t, 0.3, ranked[0].Components[model.AttrBeta], 1e-12)
}

func TestScore_Deterministic(t *testing.T) {
	records := syntheticUniverse(503)
	first := Rank(must(Score(lowBetaHighESG, records, Options{SectorNeutral: true})))
	second := Rank(must(Score(lowBetaHighESG, records, Options{SectorNeutral: true})))
	assert.Equal(t, first, second)
}

func TestScore_MissingAttributeExcluded(t *testing.T) {
	records := []*model.CompanyRecord{
		company("AAA", "", map[model.Attribute]float64{model.AttrBeta: 1, model.AttrESGTotal: 20}),
		company("BBB", "", map[model.Attribute]float64{model.AttrBeta: 0.5}),
		company("CCC", "", map[model.Attribute]float64{model.AttrBeta: 0.7, model.AttrESGTotal: 30}),
		nil,
	}
	scored, excluded := Score(lowBetaHighESG, records, Options{})
	assert.Equal(t, 2, excluded)
	assert.ElementsMatch(t, []string{"AAA", "CCC"}, tickers(scored))
}

func TestScore_NoEligibleRecords(t *testing.T) {
	records := []*model.CompanyRecord{company("AAA", "", map[model.Attribute]float64{})}
	scored, excluded := Score(lowBetaHighESG, records, Options{})
	assert.Empty(t, scored)
	assert.Equal(t, 1, excluded)
}

func TestScore_NegationReversesOrder(t *testing.T) {
	records := syntheticUniverse(50)
	forward := Rank(must(Score(lowBetaHighESG, records, Options{})))
	backward := Rank(must(Score(lowBetaHighESG.Negate(), records, Options{})))

	want := tickers(forward)
	for i, j := 0, len(want)-1; i < j; i, j = i+1, j-1 {
		want[i], want[j] = want[j], want[i]
	}
	assert.Equal(t, want, tickers(backward))
	for i := range forward {
		assert.InDelta(t, -forward[i].Score, backward[len(backward)-1-i].Score, 1e-12)
	}
}

func TestScore_ConstantAttributeIsNeutral(t *testing.T) {
	records := []*model.CompanyRecord{
		company("AAA", "", map[model.Attribute]float64{model.AttrBeta: 1}),
		company("BBB", "", map[model.Attribute]float64{model.AttrBeta: 1}),
	}
	scored, _ := Score(model.CriteriaSpec{{Attribute: model.AttrBeta, Weight: 2}}, records, Options{})
	for _, sr := range scored {
		assert.Equal(t, 0.5, sr.Score)
	}
}

func TestScore_SectorNeutral(t *testing.T) {
	// Within each sector, the low-beta company is one standard deviation below the mean.
	records := []*model.CompanyRecord{
		company("E1", "Energy", map[model.Attribute]float64{model.AttrBeta: 1.0}),
		company("E2", "Energy", map[model.Attribute]float64{model.AttrBeta: 2.0}),
		company("T1", "Tech", map[model.Attribute]float64{model.AttrBeta: 0.25}),
		company("T2", "Tech", map[model.Attribute]float64{model.AttrBeta: 0.75}),
		company("U1", "Utilities", map[model.Attribute]float64{model.AttrBeta: 0.5}),
	}
	spec := model.CriteriaSpec{{Attribute: model.AttrBeta, Weight: -1}}

	ranked := Rank(must(Score(spec, records, Options{SectorNeutral: true})))
	assert.Equal(t, []string{"E1", "T1", "U1", "E2", "T2"}, tickers(ranked))
	assert.Equal(t, ranked[0].Score, ranked[1].Score)
	assert.Equal(t, 1, ranked[1].Rank)

	plain := Rank(must(Score(spec, records, Options{})))
	assert.Equal(t, "T1", plain[0].Record.Ticker)
}

func TestTop(t *testing.T) {
	ranked := Rank(must(Score(lowBetaHighESG, syntheticUniverse(503), Options{})))

	top := Top(ranked, 3)
	require.Len(t, top, 3)
	for i := 1; i < len(top); i++ {
		prev, cur := top[i-1], top[i]
		assert.True(t, prev.Score > cur.Score || (prev.Score == cur.Score && prev.Record.Ticker < cur.Record.Ticker))
	}

	assert.Len(t, Top(ranked, 0), DefaultTopN)
	assert.Len(t, Top(ranked[:2], 5), 2)
}

func TestRank_TieBreakByTicker(t *testing.T) {
	rec := func(tk string) *model.CompanyRecord { return company(tk, "", nil) }
	ranked := Rank([]model.ScoredRecord{
		{Record: rec("MSFT"), Score: 0.5},
		{Record: rec("AAPL"), Score: 0.5},
		{Record: rec("ZION"), Score: 0.9},
		{Record: rec("GOOG"), Score: 0.1},
	})
	assert.Equal(t, []string{"ZION", "AAPL", "MSFT", "GOOG"}, tickers(ranked))
	assert.Equal(t, []int{1, 2, 2, 4}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank, ranked[3].Rank})
}

func TestScreen(t *testing.T) {
	r := Screen(lowBetaHighESG, syntheticUniverse(503), Options{}, 100, 15)
	assert.Len(t, r.Results, 100)
	assert.Equal(t, 15, r.TopN)
	assert.Equal(t, lowBetaHighESG, r.Criteria)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestFormatMarkdown(t *testing.T) {
	r := Screen(lowBetaHighESG, syntheticUniverse(20), Options{}, 100, 5)
	out := FormatMarkdown(r, 0)

	assert.True(t, strings.HasPrefix(out, "Here are the top 5 companies for your criteria:"))
	assert.Contains(t, out, "- Beta: prefers lower ↓ (weight 0.50)")
	assert.Contains(t, out, "- ESG risk: prefers higher ↑ (weight 0.50)")
	assert.Contains(t, out, "| Rank | Ticker | Name | Sector | Score |")
	assert.Contains(t, out, "| 1 | "+r.Results[0].Record.Ticker+" |")
	assert.True(t, strings.HasSuffix(out, "Want a CSV of the Top 5?"))
}

func TestFormatMarkdown_Empty(t *testing.T) {
	r := Screen(lowBetaHighESG, []*model.CompanyRecord{company("A", "", nil)}, Options{}, 10, 10)
	out := FormatMarkdown(r, 10)
	assert.Contains(t, out, "No companies have data")
	assert.NotContains(t, out, "Want a CSV")
}

func TestExportImportRoundTrip(t *testing.T) {
	records := syntheticUniverse(40)
	records[3].Name = `Quote "and", comma Inc.`
	r := Screen(lowBetaHighESG, records, Options{SectorNeutral: true}, 100, 15)

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := Export(dir, r, 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "top15_beta-neg_esg_total-pos.csv"), path)

	got, err := Import(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Attribute{model.AttrBeta, model.AttrESGTotal}, got.Attributes)
	require.Len(t, got.Results, 15)
	for i, sr := range got.Results {
		want := r.Results[i]
		assert.Equal(t, want.Record.Ticker, sr.Record.Ticker)
		assert.Equal(t, want.Record.Name, sr.Record.Name)
		assert.Equal(t, want.Rank, sr.Rank)
		assert.Equal(t, want.Score, sr.Score, "scores round-trip exactly")
		for _, a := range got.Attributes {
			assert.Equal(t, want.Record.Metrics[a], sr.Record.Metrics[a])
		}
	}
}

func TestExport_Empty(t *testing.T) {
	_, err := Export(t.TempDir(), &model.Ranking{Criteria: lowBetaHighESG}, 10)
	assert.Error(t, err)
}

func must(scored []model.ScoredRecord, _ int) []model.ScoredRecord {
	return scored
}
