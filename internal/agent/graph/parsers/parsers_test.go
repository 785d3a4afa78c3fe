package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esg-screener/server/internal/agent/model"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.IntentLabel
		conf    float64
	}{
		{"list", `{"intent":"list","confidence":0.9}`, model.IntentList, 0.9},
		{"list low bar", `{"intent":"list","confidence":0.4}`, model.IntentList, 0.4},
		{"list too unsure", `{"intent":"list","confidence":0.39}`, model.IntentUnknown, 0.39},
		{"single", `{"intent":"Single","confidence":0.95}`, model.IntentSingle, 0.95},
		{"single too unsure", `{"intent":"single","confidence":0.5}`, model.IntentUnknown, 0.5},
		{"other", `{"intent":"other","confidence":"0.7"}`, model.IntentOther, 0.7},
		{"unknown label", `{"intent":"maybe","confidence":1}`, model.IntentUnknown, 1},
		{"missing confidence", `{"intent":"list"}`, model.IntentUnknown, 0},
		{"code fence", "```json\n{\"intent\":\"list\",\"confidence\":0.8}\n```", model.IntentList, 0.8},
		{"prose around", `Sure! {"intent": "other", "confidence": 0.61} hope that helps`, model.IntentOther, 0.61},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntent(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Label)
			assert.Equal(t, tt.conf, got.Confidence)
			if tt.want == model.IntentUnknown {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestParseIntent_Unreadable(t *testing.T) {
	for _, content := range []string{"", "list", "{not json}", "} {"} {
		_, err := ParseIntent(content)
		assert.Error(t, err, content)
	}
}

func TestParseCriteria(t *testing.T) {
	content := `{"preferences": {
		"esg_total": {"weight": 0.6, "direction": "negative"},
		"beta": {"weight": 0.4, "direction": "lower"},
		"dividend_yield": {"weight": "0.2", "direction": "positive"},
		"eps": {"weight": 0.3, "direction": "sideways"},
		"pe_ratio": {"weight": -0.5, "direction": "negative"},
		"market_cap": {"weight": 0},
		"carbon_footprint": {"weight": 0.9, "direction": "negative"}
	}}`

	spec, err := ParseCriteria(content)
	require.NoError(t, err)
	assert.Equal(t, model.CriteriaSpec{
		{Attribute: model.AttrBeta, Weight: -0.4},
		{Attribute: model.AttrDividendYield, Weight: 0.2},
		{Attribute: model.AttrEPS, Weight: 0.3},
		{Attribute: model.AttrESGTotal, Weight: -0.6},
	}, spec)
}

func TestParseCriteria_BareMapAndCase(t *testing.T) {
	spec, err := ParseCriteria(`{"Beta": {"weight": 1, "direction": "negative"}}`)
	require.NoError(t, err)
	assert.Equal(t, model.CriteriaSpec{{Attribute: model.AttrBeta, Weight: -1}}, spec)
}

func TestParseCriteria_DuplicateSpellingKeepsStronger(t *testing.T) {
	spec, err := ParseCriteria(`{"preferences":{"BETA":{"weight":0.2,"direction":"negative"},"beta":{"weight":0.7,"direction":"negative"}}}`)
	require.NoError(t, err)
	assert.Equal(t, model.CriteriaSpec{{Attribute: model.AttrBeta, Weight: -0.7}}, spec)
}

func TestParseCriteria_NoUsablePreferences(t *testing.T) {
	for _, content := range []string{
		`{"preferences": {}}`,
		`{"preferences": {"carbon": {"weight": 1}}}`,
		`{"preferences": {"beta": {"weight": 0}}}`,
	} {
		_, err := ParseCriteria(content)
		assert.ErrorIs(t, err, ErrNoCriteria, content)
	}

	_, err := ParseCriteria("I cannot help with that")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCriteria)

	_, err = ParseCriteria(`{"preferences": ["beta"]}`)
	assert.Error(t, err)
}
