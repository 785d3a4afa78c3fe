package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/esg-screener/server/internal/universe"
)

const (
	ToolLookupCompany   = "lookup_company"
	ToolSearchCompanies = "search_companies"
)

// GetQueryTools returns the tools the answer model may call, bound to u.
func GetQueryTools(u *universe.Universe) []tool.BaseTool {
	return []tool.BaseTool{
		createLookupCompanyTool(u),
		createSearchCompaniesTool(u),
	}
}

// GetToolInfos collects the schema of each tool for binding to a chat model.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
