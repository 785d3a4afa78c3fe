package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/esg-screener/server/internal/agent/graph/tools"
	"github.com/esg-screener/server/internal/agent/model"
)

//go:embed template/answer_prompt.txt
var answerSystemPrompt string

// RenderAnswerSystem renders the answer model system prompt and triggers prompt callbacks.
func RenderAnswerSystem(ctx context.Context, universeSize int) (string, error) {
	risk := []string{}
	for _, info := range model.Catalog() {
		if strings.HasSuffix(string(info.Name), "_risk") || info.Name == model.AttrESGTotal {
			risk = append(risk, string(info.Name))
		}
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(answerSystemPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"UniverseSize":   universeSize,
		"SearchTool":     tools.ToolSearchCompanies,
		"LookupTool":     tools.ToolLookupCompany,
		"RiskAttributes": strings.Join(risk, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("answer prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("answer prompt render: empty result")
	}
	return msgs[0].Content, nil
}
