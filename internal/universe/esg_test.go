package universe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esg-screener/server/internal/agent/model"
)

const sustainabilityPage = `
Apple Inc. (AAPL)
ESG Risk Rating
17.2
Low Risk
Environment Risk Score    0.6
Social   Risk
Score 7.9
Governance Risk Score
8.7
`

func TestExtractPillars(t *testing.T) {
	got := ExtractPillars(sustainabilityPage)
	assert.Equal(t, 17.2, got[model.AttrESGTotal])
	assert.Equal(t, 0.6, got[model.AttrEnvironmentalRisk])
	assert.Equal(t, 7.9, got[model.AttrSocialRisk], "whitespace is collapsed before matching")
	assert.Equal(t, 8.7, got[model.AttrGovernanceRisk])
}

func TestExtractPillars_Missing(t *testing.T) {
	got := ExtractPillars("Total ESG Risk score is not available " + strings.Repeat("x", 250) + " 12")
	assert.Empty(t, got)
}

type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) PageText(_ context.Context, ticker string) (string, error) {
	f.calls = append(f.calls, ticker)
	p, ok := f.pages[ticker]
	if !ok {
		return "", errors.New("not found")
	}
	return p, nil
}

func TestRefreshESG(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader("ticker,name,esg_total\naapl,Apple,1\nZZZ,Unknown,5\nMSFT,Microsoft,\n"))
	require.NoError(t, err)

	f := &fakeFetcher{pages: map[string]string{"AAPL": sustainabilityPage}}
	res, err := RefreshESG(context.Background(), tbl, f, RefreshOptions{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "ZZZ"}, f.calls)
	assert.Equal(t, RefreshResult{Fetched: 1, Failed: 1, Pillars: 4}, res)
	assert.Equal(t, []string{"ticker", "name", "esg_total", "environmental_risk", "social_risk", "governance_risk"}, tbl.Header)

	esg := tbl.Column("esg_total")
	assert.Equal(t, "17.2", tbl.Rows[0][esg])
	assert.Equal(t, "", tbl.Rows[1][esg], "failed fetch blanks the row")
	assert.Equal(t, "", tbl.Rows[2][esg], "rows beyond the limit are untouched")
}

func TestRefreshESG_Canceled(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader("ticker,name\nAAPL,Apple\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RefreshESG(ctx, tbl, &fakeFetcher{}, RefreshOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
