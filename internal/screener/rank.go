package screener

import (
	"cmp"
	"slices"
	"time"

	"github.com/esg-screener/server/internal/agent/model"
)

// DefaultTopN is used when a caller asks for a non-positive count.
const DefaultTopN = 10

// Rank sorts by score descending with ticker ascending as tie-break and
// assigns competition ranks: equal scores share the lowest rank number.
// The input slice is sorted in place and returned.
func Rank(scored []model.ScoredRecord) []model.ScoredRecord {
	slices.SortStableFunc(scored, func(a, b model.ScoredRecord) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Record.Ticker, b.Record.Ticker)
	})
	for i := range scored {
		if i > 0 && scored[i].Score == scored[i-1].Score {
			scored[i].Rank = scored[i-1].Rank
			continue
		}
		scored[i].Rank = i + 1
	}
	return scored
}

// Top returns the first n ranked records.
func Top(ranked []model.ScoredRecord, n int) []model.ScoredRecord {
	if n <= 0 {
		n = DefaultTopN
	}
	return ranked[:min(n, len(ranked))]
}

// Screen scores, ranks and keeps the first fetch results. topN is how many the
// caller intends to display.
func Screen(spec model.CriteriaSpec, records []*model.CompanyRecord, opts Options, fetch, topN int) *model.Ranking {
	scored, excluded := Score(spec, records, opts)
	return &model.Ranking{
		Criteria:  spec,
		Results:   Top(Rank(scored), max(fetch, topN)),
		TopN:      topN,
		Excluded:  excluded,
		CreatedAt: time.Now().UTC(),
	}
}
