package model

import "context"

// IntentLabel is the classifier verdict for one utterance.
type IntentLabel string

const (
	// IntentList asks for a ranked list of companies.
	IntentList IntentLabel = "list"
	// IntentSingle asks about one company or ticker.
	IntentSingle IntentLabel = "single"
	// IntentOther is anything else.
	IntentOther IntentLabel = "other"
	// IntentUnknown is the fail-closed verdict when classification did not succeed.
	IntentUnknown IntentLabel = "unknown"
)

// IntentResult carries the verdict and the confidence the model reported.
type IntentResult struct {
	Label      IntentLabel `json:"intent"`
	Confidence float64     `json:"confidence"`
	// Reason explains an IntentUnknown verdict.
	Reason string `json:"reason,omitempty"`
}

// IsRanking reports whether the request should go through extraction and scoring.
func (r IntentResult) IsRanking() bool {
	return r.Label == IntentList
}

// IntentClassifier maps an utterance onto an intent label.
type IntentClassifier interface {
	Classify(ctx context.Context, utterance string) (IntentResult, error)
}

// CriteriaExtractor maps a ranking request onto weighted attributes.
type CriteriaExtractor interface {
	Extract(ctx context.Context, utterance string) (CriteriaSpec, error)
}
