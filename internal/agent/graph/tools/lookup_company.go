package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/esg-screener/server/internal/agent/model"
	"github.com/esg-screener/server/internal/universe"
)

// ===================================
// Lookup Company Tool
// ===================================

type LookupCompanyInput struct {
	Ticker string `json:"ticker"`
}

type AttributeValue struct {
	Name        model.Attribute `json:"name"`
	Label       string          `json:"label"`
	Value       *float64        `json:"value"`
	Description string          `json:"description"`
}

type LookupCompanyOutput struct {
	Found      bool             `json:"found"`
	Ticker     string           `json:"ticker"`
	Name       string           `json:"name,omitempty"`
	Sector     string           `json:"sector,omitempty"`
	Industry   string           `json:"industry,omitempty"`
	Attributes []AttributeValue `json:"attributes,omitempty"`
	Note       string           `json:"note,omitempty"`
}

func createLookupCompanyTool(u *universe.Universe) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolLookupCompany,
			Desc: "Get the stored financial and ESG attributes of one company by ticker: beta, market cap, P/E, EPS, dividend yield and the environmental, social, governance and total ESG risk scores. Missing values are returned as null.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "Ticker symbol, e.g. AAPL, MSFT, BRK-B. Use search_companies first when only the company name is known.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *LookupCompanyInput) (*LookupCompanyOutput, error) {
			ticker := strings.ToUpper(strings.TrimSpace(in.Ticker))
			if ticker == "" {
				return nil, fmt.Errorf("ticker is required")
			}

			rec, ok := u.Lookup(ticker)
			if !ok {
				return &LookupCompanyOutput{
					Found:  false,
					Ticker: ticker,
					Note:   "ticker is not in the company table; try search_companies",
				}, nil
			}

			out := &LookupCompanyOutput{
				Found:    true,
				Ticker:   rec.Ticker,
				Name:     rec.Name,
				Sector:   rec.Sector,
				Industry: rec.Industry,
			}
			for _, info := range model.Catalog() {
				av := AttributeValue{Name: info.Name, Label: info.Label, Description: info.Description}
				if v, ok := rec.Value(info.Name); ok {
					av.Value = &v
				}
				out.Attributes = append(out.Attributes, av)
			}
			return out, nil
		},
	)
}
