package universe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esg-screener/server/internal/agent/model"
)

const sampleCSV = `ticker,name,sector,industry,beta,market_cap,esg_total,notes
AAPL,Apple Inc.,Technology,Consumer Electronics,1.2,3000000000000,17.2,x
msft,Microsoft Corp,Technology,Software,0.9,2800000000000,,y
XOM,Exxon Mobil,Energy,Oil & Gas,NaN,450000000000,41.6,z
,No Ticker,Energy,Oil & Gas,1.0,1,1,
AAPL,Apple Duplicate,Technology,Consumer Electronics,9,9,9,
BAD,Too Few Fields
JPM,JPMorgan,Financial Services,Banks,n/a,500000000000,27.9,
`

func TestParse(t *testing.T) {
	u, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, u.Len())
	assert.Equal(t, 3, u.Skipped())

	aapl, ok := u.Lookup("aapl")
	require.True(t, ok)
	assert.Equal(t, "Apple Inc.", aapl.Name)
	assert.Equal(t, "Technology", aapl.Sector)
	assert.Equal(t, 1.2, aapl.Metrics[model.AttrBeta])
	assert.Equal(t, 17.2, aapl.Metrics[model.AttrESGTotal])

	msft, ok := u.Lookup("MSFT")
	require.True(t, ok, "tickers are upper-cased")
	assert.False(t, msft.Has(model.AttrESGTotal), "blank cells are missing")

	xom, _ := u.Lookup("XOM")
	assert.False(t, xom.Has(model.AttrBeta), "NaN is missing")
	assert.True(t, xom.Has(model.AttrMarketCap, model.AttrESGTotal))

	jpm, _ := u.Lookup("JPM")
	assert.False(t, jpm.Has(model.AttrBeta), "text is missing")

	tickers := []string{}
	for _, r := range u.Records() {
		tickers = append(tickers, r.Ticker)
	}
	assert.Equal(t, []string{"AAPL", "MSFT", "XOM", "JPM"}, tickers)
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("symbol,name\nAAPL,Apple\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParse_NoUsableRows(t *testing.T) {
	_, err := Parse(strings.NewReader("ticker,name,beta\n,Nameless,1\n"))
	assert.ErrorIs(t, err, ErrEmptyUniverse)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	u, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, u.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	u, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	got := u.Search("msft", 5)
	require.Len(t, got, 1)
	assert.Equal(t, "MSFT", got[0].Ticker)

	got = u.Search("technology", 5)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Ticker)

	got = u.Search("o", 2)
	assert.Len(t, got, 2)

	assert.Empty(t, u.Search("  ", 5))
}

func TestFilterKeepsOrder(t *testing.T) {
	u, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	tech := u.Filter(func(r *model.CompanyRecord) bool { return r.Sector == "Technology" })
	assert.Equal(t, 2, tech.Len())
	_, ok := tech.Lookup("XOM")
	assert.False(t, ok)
}

func TestTableRoundTrip(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader("Ticker,Name\nAAPL,Apple\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ticker", "name"}, tbl.Header)

	col := tbl.EnsureColumn("esg_total")
	tbl.Set(0, col, "17.2")
	assert.Equal(t, col, tbl.EnsureColumn("ESG_TOTAL"))

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, tbl.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ticker,name,esg_total\nAAPL,Apple,17.2\n", string(data))
}

func TestParse_ByteOrderMarkHeader(t *testing.T) {
	u, err := Parse(strings.NewReader("\ufeffTicker,Name,Beta\nAAPL,Apple Inc.,1.2\n"))
	require.NoError(t, err)
	require.Equal(t, 1, u.Len())

	aapl, ok := u.Lookup("AAPL")
	require.True(t, ok)
	assert.Equal(t, 1.2, aapl.Metrics[model.AttrBeta])
}
