package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/intent_prompt.txt
var intentSystemPrompt string

type intentExample struct {
	utterance string
	output    string
}

var intentExamples = []intentExample{
	{"Show me the top low-volatility green tech stocks", `{"intent":"list","confidence":0.95}`},
	{"What is AAPL's beta and ESG risk?", `{"intent":"single","confidence":0.95}`},
	{"Explain dividend yield", `{"intent":"other","confidence":0.95}`},
}

var intentTemplate = buildIntentTemplate()

func buildIntentTemplate() prompt.ChatTemplate {
	msgs := []schema.MessagesTemplate{schema.SystemMessage(intentSystemPrompt)}
	for _, ex := range intentExamples {
		msgs = append(msgs,
			schema.UserMessage(ex.utterance),
			schema.AssistantMessage(ex.output, nil),
		)
	}
	msgs = append(msgs, schema.UserMessage("{{.utterance}}"))
	return prompt.FromMessages(schema.GoTemplate, msgs...)
}

// RenderIntentMessages renders the classifier prompt (system text, few-shot
// examples and the utterance) via the Eino prompt component.
func RenderIntentMessages(ctx context.Context, utterance string) ([]*schema.Message, error) {
	msgs, err := intentTemplate.Format(ctx, map[string]any{"utterance": utterance})
	if err != nil {
		return nil, fmt.Errorf("intent prompt render: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("intent prompt render: empty result")
	}
	return msgs, nil
}
