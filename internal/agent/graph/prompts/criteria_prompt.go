package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/esg-screener/server/internal/agent/model"
)

//go:embed template/criteria_prompt.txt
var criteriaSystemPrompt string

// RenderCriteriaMessages renders the extractor prompt. The attribute
// vocabulary comes from the embedded catalog.
func RenderCriteriaMessages(ctx context.Context, utterance string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(criteriaSystemPrompt),
		schema.UserMessage("User request:\n{{.Utterance}}\n\nReturn ONLY the JSON object described."),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Attributes": model.Catalog(),
		"Utterance":  utterance,
	})
	if err != nil {
		return nil, fmt.Errorf("criteria prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("criteria prompt render: got %d messages", len(msgs))
	}
	return msgs, nil
}
