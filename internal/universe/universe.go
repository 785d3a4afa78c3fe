package universe

import (
	"slices"
	"strings"

	"github.com/esg-screener/server/internal/agent/model"
)

// Universe is the read-only set of company records loaded at startup.
// Records must not be mutated by callers.
type Universe struct {
	records []*model.CompanyRecord
	index   map[string]*model.CompanyRecord
	skipped int
}

func newUniverse(records []*model.CompanyRecord) *Universe {
	u := &Universe{
		records: records,
		index:   make(map[string]*model.CompanyRecord, len(records)),
	}
	for _, r := range records {
		u.index[r.Ticker] = r
	}
	return u
}

// New builds a universe from in-memory records, keeping the first record per ticker.
func New(records ...*model.CompanyRecord) *Universe {
	kept := make([]*model.CompanyRecord, 0, len(records))
	seen := map[string]bool{}
	skipped := 0
	for _, r := range records {
		if r == nil || r.Ticker == "" || seen[r.Ticker] {
			skipped++
			continue
		}
		seen[r.Ticker] = true
		kept = append(kept, r)
	}
	u := newUniverse(kept)
	u.skipped = skipped
	return u
}

// Records returns the records in file order.
func (u *Universe) Records() []*model.CompanyRecord {
	return slices.Clone(u.records)
}

func (u *Universe) Len() int {
	return len(u.records)
}

// Skipped counts input rows that were not loaded.
func (u *Universe) Skipped() int {
	return u.skipped
}

// Lookup finds a record by ticker, case-insensitively.
func (u *Universe) Lookup(ticker string) (*model.CompanyRecord, bool) {
	r, ok := u.index[strings.ToUpper(strings.TrimSpace(ticker))]
	return r, ok
}

// Search matches query against tickers, names and sectors. An exact ticker
// match comes first, then name matches, then sector matches, each in file order.
func (u *Universe) Search(query string, limit int) []*model.CompanyRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	var out []*model.CompanyRecord
	added := map[string]bool{}
	add := func(r *model.CompanyRecord) bool {
		if !added[r.Ticker] {
			added[r.Ticker] = true
			out = append(out, r)
		}
		return len(out) >= limit
	}

	if r, ok := u.Lookup(q); ok && add(r) {
		return out
	}
	for _, r := range u.records {
		if strings.Contains(strings.ToLower(r.Name), q) && add(r) {
			return out
		}
	}
	for _, r := range u.records {
		if strings.Contains(strings.ToLower(r.Sector), q) && add(r) {
			return out
		}
	}
	return out
}

// Filter returns the sub-universe of records keep accepts.
func (u *Universe) Filter(keep func(*model.CompanyRecord) bool) *Universe {
	kept := make([]*model.CompanyRecord, 0, len(u.records))
	for _, r := range u.records {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	sub := newUniverse(kept)
	sub.skipped = u.skipped
	return sub
}
