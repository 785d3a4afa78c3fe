// Package universe loads the static company table and exposes it as a
// read-only handle.
package universe

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/esg-screener/server/internal/agent/model"
	logx "github.com/esg-screener/server/pkg/logger"
)

var (
	// ErrEmptyUniverse is returned when no usable row was loaded.
	ErrEmptyUniverse = errors.New("no usable company rows")
	// ErrMissingColumn is returned when the ticker or name column is absent.
	ErrMissingColumn = errors.New("missing required column")
)

// Load reads the company table at path.
func Load(path string) (*Universe, error) {
	t, err := ReadTableFile(path)
	if err != nil {
		return nil, fmt.Errorf("load universe %s: %w", path, err)
	}
	u, err := FromTable(t)
	if err != nil {
		return nil, fmt.Errorf("load universe %s: %w", path, err)
	}
	logx.Info().
		Str("path", path).
		Int("records", u.Len()).
		Int("skipped", u.Skipped()).
		Msg("company universe loaded")
	return u, nil
}

// Parse reads a company table from r.
func Parse(r io.Reader) (*Universe, error) {
	t, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	return FromTable(t)
}

// FromTable converts raw rows into records. Rows with a missing ticker, a
// duplicate ticker or a wrong field count are skipped.
func FromTable(t *Table) (*Universe, error) {
	tickerCol, nameCol := t.Column("ticker"), t.Column("name")
	if tickerCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("%w: table needs 'ticker' and 'name'", ErrMissingColumn)
	}
	sectorCol, industryCol := t.Column("sector"), t.Column("industry")

	attrCols := map[int]model.Attribute{}
	for i, h := range t.Header {
		if a, ok := model.ParseAttribute(h); ok {
			attrCols[i] = a
		}
	}

	records := make([]*model.CompanyRecord, 0, len(t.Rows))
	seen := make(map[string]bool, len(t.Rows))
	skipped := 0
	for i, row := range t.Rows {
		line := i + 2
		if len(row) != len(t.Header) {
			logx.Warn().Int("line", line).Int("fields", len(row)).Int("want", len(t.Header)).Msg("skipping malformed row")
			skipped++
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(row[tickerCol]))
		if ticker == "" {
			logx.Warn().Int("line", line).Msg("skipping row without ticker")
			skipped++
			continue
		}
		if seen[ticker] {
			logx.Warn().Int("line", line).Str("ticker", ticker).Msg("skipping duplicate ticker")
			skipped++
			continue
		}
		seen[ticker] = true

		rec := &model.CompanyRecord{
			Ticker:  ticker,
			Name:    strings.TrimSpace(row[nameCol]),
			Metrics: make(map[model.Attribute]float64, len(attrCols)),
		}
		if sectorCol >= 0 {
			rec.Sector = strings.TrimSpace(row[sectorCol])
		}
		if industryCol >= 0 {
			rec.Industry = strings.TrimSpace(row[industryCol])
		}
		for col, attr := range attrCols {
			if v, ok := parseMetric(row[col]); ok {
				rec.Metrics[attr] = v
			}
		}
		records = append(records, rec)
	}

	u := newUniverse(records)
	u.skipped = skipped
	if u.Len() == 0 {
		return nil, ErrEmptyUniverse
	}
	return u, nil
}

// parseMetric accepts finite numbers; blanks, NaN and text count as missing.
func parseMetric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
