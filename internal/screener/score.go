// Package screener turns a CriteriaSpec into a ranked list of companies.
package screener

import (
	"math"

	"github.com/esg-screener/server/internal/agent/model"
)

// Options tunes scoring.
type Options struct {
	// SectorNeutral replaces each attribute by its z-score within the
	// record's sector before min-max normalization.
	SectorNeutral bool
}

// neutral is the normalized value of an attribute that is constant across the eligible set.
const neutral = 0.5

// Score computes one scalar per eligible record:
//
//	n_i   = (x_i - min_i) / (max_i - min_i)   over the eligible set, 0.5 when max == min
//	score = Σ w_i · n_i                       with Σ|w_i| = 1
//
// A record is eligible only when it carries every attribute of spec. The
// number of excluded records is returned alongside. Results keep input order.
func Score(spec model.CriteriaSpec, records []*model.CompanyRecord, opts Options) ([]model.ScoredRecord, int) {
	norm := spec.Normalized()
	attrs := norm.Attributes()

	eligible := make([]*model.CompanyRecord, 0, len(records))
	for _, r := range records {
		if r != nil && r.Has(attrs...) {
			eligible = append(eligible, r)
		}
	}
	excluded := len(records) - len(eligible)
	if len(eligible) == 0 {
		return []model.ScoredRecord{}, excluded
	}

	// values[a][i] is the (possibly neutralized) value of attribute a for eligible[i].
	values := make(map[model.Attribute][]float64, len(attrs))
	for _, a := range attrs {
		col := make([]float64, len(eligible))
		for i, r := range eligible {
			col[i] = r.Metrics[a]
		}
		if opts.SectorNeutral {
			col = sectorZScores(eligible, col)
		}
		values[a] = minMax(col)
	}

	out := make([]model.ScoredRecord, len(eligible))
	for i, r := range eligible {
		sr := model.ScoredRecord{
			Record:     r,
			Components: make(map[model.Attribute]float64, len(attrs)),
		}
		for _, c := range norm {
			n := values[c.Attribute][i]
			sr.Components[c.Attribute] = n
			sr.Score += c.Weight * n
		}
		out[i] = sr
	}
	return out, excluded
}

func minMax(col []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range col {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(col))
	for i, v := range col {
		if hi == lo {
			out[i] = neutral
			continue
		}
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// sectorZScores standardizes col within each sector using the population
// standard deviation. A sector with zero spread maps to 0.
func sectorZScores(records []*model.CompanyRecord, col []float64) []float64 {
	type acc struct {
		n          int
		sum, sumSq float64
	}
	groups := map[string]*acc{}
	for i, r := range records {
		g, ok := groups[r.Sector]
		if !ok {
			g = &acc{}
			groups[r.Sector] = g
		}
		g.n++
		g.sum += col[i]
	}
	means := make(map[string]float64, len(groups))
	for s, g := range groups {
		means[s] = g.sum / float64(g.n)
	}
	for i, r := range records {
		d := col[i] - means[r.Sector]
		groups[r.Sector].sumSq += d * d
	}

	out := make([]float64, len(col))
	for i, r := range records {
		g := groups[r.Sector]
		std := math.Sqrt(g.sumSq / float64(g.n))
		if std == 0 {
			out[i] = 0
			continue
		}
		out[i] = (col[i] - means[r.Sector]) / std
	}
	return out
}
