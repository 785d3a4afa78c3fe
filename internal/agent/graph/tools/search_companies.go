package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/esg-screener/server/internal/universe"
)

// ===================================
// Search Companies Tool
// ===================================

const (
	defaultSearchResults = 10
	MaxSearchResults     = 20
)

type SearchCompaniesInput struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type CompanyMatch struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
}

type SearchCompaniesOutput struct {
	Companies []CompanyMatch `json:"companies"`
	Total     int            `json:"total"`
}

func createSearchCompaniesTool(u *universe.Universe) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchCompanies,
			Desc: "Search the company table by ticker, company name or sector. Returns matching tickers with names and sectors. Use this to resolve a company name to its ticker before calling lookup_company.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Ticker, part of a company name, or a sector. Examples: Apple, MSFT, Utilities.",
					Required: true,
				},
				"max_results": {
					Type: "number",
					Desc: "Maximum number of companies to return (default: 10, max: 20)",
				},
			}),
		},
		func(ctx context.Context, in *SearchCompaniesInput) (*SearchCompaniesOutput, error) {
			if in.Query == "" {
				return nil, fmt.Errorf("query is required")
			}
			limit := in.MaxResults
			if limit <= 0 {
				limit = defaultSearchResults
			}
			limit = min(limit, MaxSearchResults)

			matches := u.Search(in.Query, limit)
			out := &SearchCompaniesOutput{Companies: make([]CompanyMatch, 0, len(matches))}
			for _, r := range matches {
				out.Companies = append(out.Companies, CompanyMatch{Ticker: r.Ticker, Name: r.Name, Sector: r.Sector})
			}
			out.Total = len(out.Companies)
			return out, nil
		},
	)
}
