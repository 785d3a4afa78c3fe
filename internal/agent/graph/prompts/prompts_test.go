package prompts

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderIntentMessages(t *testing.T) {
	msgs, err := RenderIntentMessages(context.Background(), "top 5 {{weird}} utilities")
	require.NoError(t, err)
	require.Len(t, msgs, 2+2*len(intentExamples))

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, `{"intent":"list|single|other","confidence":0..1}`)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, `{"intent":"list","confidence":0.95}`, msgs[2].Content)

	last := msgs[len(msgs)-1]
	assert.Equal(t, schema.User, last.Role)
	assert.Equal(t, "top 5 {{weird}} utilities", last.Content)
}

func TestRenderCriteriaMessages(t *testing.T) {
	msgs, err := RenderCriteriaMessages(context.Background(), "low volatility, strong sustainability")
	require.NoError(t, err)

	sys := msgs[0].Content
	assert.Contains(t, sys, "Allowed attributes:\n- beta (Beta):")
	assert.Contains(t, sys, "- esg_total (ESG risk):")
	assert.Contains(t, sys, "Usually lower is better.")
	assert.Contains(t, sys, `{"preferences":`)
	assert.Contains(t, msgs[1].Content, "low volatility, strong sustainability")
}

func TestRenderAnswerSystem(t *testing.T) {
	got, err := RenderAnswerSystem(context.Background(), 503)
	require.NoError(t, err)
	assert.Contains(t, got, "You are a finance research agent.")
	assert.Contains(t, got, "covers 503 companies")
	assert.Contains(t, got, "search_companies")
	assert.Contains(t, got, "lookup_company")
	assert.Contains(t, got, "environmental_risk, social_risk, governance_risk, esg_total")
}
