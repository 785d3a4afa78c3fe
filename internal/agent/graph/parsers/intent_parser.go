package parsers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/esg-screener/server/internal/agent/model"
)

// Minimum confidence for a label to be accepted. Ranking requests get a
// lower bar because a missed ranking is the costlier mistake.
const (
	MinListConfidence  = 0.4
	MinOtherConfidence = 0.6
)

// ParseIntent reads {"intent": "...", "confidence": ...} from a model reply.
// An unknown or under-confident label yields IntentUnknown with a reason;
// an unreadable reply is an error.
func ParseIntent(content string) (model.IntentResult, error) {
	obj, err := extractObject(content)
	if err != nil {
		return model.IntentResult{}, fmt.Errorf("parse intent: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(obj, &raw); err != nil {
		return model.IntentResult{}, fmt.Errorf("parse intent: %w", err)
	}

	label, _ := raw["intent"].(string)
	label = strings.ToLower(strings.TrimSpace(label))
	conf, ok := toFloat(raw["confidence"])
	if !ok {
		conf = 0
	}

	res := model.IntentResult{Label: model.IntentLabel(label), Confidence: conf}
	switch res.Label {
	case model.IntentList:
		if conf >= MinListConfidence {
			return res, nil
		}
	case model.IntentSingle, model.IntentOther:
		if conf >= MinOtherConfidence {
			return res, nil
		}
	default:
		return model.IntentResult{
			Label:      model.IntentUnknown,
			Confidence: conf,
			Reason:     fmt.Sprintf("unrecognized intent %q", safeSnippet(label)),
		}, nil
	}
	return model.IntentResult{
		Label:      model.IntentUnknown,
		Confidence: conf,
		Reason:     fmt.Sprintf("low confidence %.2f for %q", conf, label),
	}, nil
}
