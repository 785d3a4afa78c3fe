package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esg-screener/server/internal/agent/model"
	"github.com/esg-screener/server/internal/universe"
)

func testUniverse() *universe.Universe {
	return universe.New(
		&model.CompanyRecord{Ticker: "AAPL", Name: "Apple Inc.", Sector: "Technology", Metrics: map[model.Attribute]float64{
			model.AttrBeta: 1.2, model.AttrESGTotal: 17.2,
		}},
		&model.CompanyRecord{Ticker: "NEE", Name: "NextEra Energy", Sector: "Utilities", Metrics: map[model.Attribute]float64{}},
		&model.CompanyRecord{Ticker: "DUK", Name: "Duke Energy", Sector: "Utilities", Metrics: map[model.Attribute]float64{}},
	)
}

func invoke(t *testing.T, bt tool.BaseTool, args string, out any) error {
	t.Helper()
	it, ok := bt.(tool.InvokableTool)
	require.True(t, ok)
	res, err := it.InvokableRun(context.Background(), args)
	if err != nil {
		return err
	}
	require.NoError(t, json.Unmarshal([]byte(res), out))
	return nil
}

func TestGetToolInfos(t *testing.T) {
	infos, err := GetToolInfos(context.Background(), GetQueryTools(testUniverse()))
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, ToolLookupCompany, infos[0].Name)
	assert.Equal(t, ToolSearchCompanies, infos[1].Name)
}

func TestLookupCompany(t *testing.T) {
	lookup := createLookupCompanyTool(testUniverse())

	var out LookupCompanyOutput
	require.NoError(t, invoke(t, lookup, `{"ticker":" aapl "}`, &out))
	assert.True(t, out.Found)
	assert.Equal(t, "Apple Inc.", out.Name)
	require.Len(t, out.Attributes, len(model.Attributes()))

	byName := map[model.Attribute]*float64{}
	for _, a := range out.Attributes {
		byName[a.Name] = a.Value
	}
	require.NotNil(t, byName[model.AttrBeta])
	assert.Equal(t, 1.2, *byName[model.AttrBeta])
	assert.Nil(t, byName[model.AttrPERatio], "missing values are null")

	out = LookupCompanyOutput{}
	require.NoError(t, invoke(t, lookup, `{"ticker":"ZZZZ"}`, &out))
	assert.False(t, out.Found)
	assert.NotEmpty(t, out.Note)

	assert.Error(t, invoke(t, lookup, `{"ticker":""}`, &out))
}

func TestSearchCompanies(t *testing.T) {
	search := createSearchCompaniesTool(testUniverse())

	var out SearchCompaniesOutput
	require.NoError(t, invoke(t, search, `{"query":"energy"}`, &out))
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, "NEE", out.Companies[0].Ticker)

	out = SearchCompaniesOutput{}
	require.NoError(t, invoke(t, search, `{"query":"utilities","max_results":1}`, &out))
	assert.Equal(t, 1, out.Total)

	assert.Error(t, invoke(t, search, `{}`, &out))
}
