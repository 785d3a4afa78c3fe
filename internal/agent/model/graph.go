package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Read and written only inside Eino state handlers or compose.ProcessState,
//     which serialize access, so no extra locking is needed.
type AppState struct {
	ConversationID string
	Query          string
	Intent         *IntentResult // set by classifier post-handler
	Criteria       CriteriaSpec  // set by extractor post-handler

	History              []*schema.Message // answer branch context, mutated only in handlers
	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int // synthesizes tool_call_id when the provider omits it

	// Accumulated LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// QueryInput represents one user utterance.
type QueryInput struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

// TurnInput is the prepared utterance handed to routing.
type TurnInput struct {
	ConversationID string
	Query          string
	// PendingRanking is set when a previous ranking is waiting for an export reply.
	PendingRanking bool
}

// TurnKind tells the chat surface which path answered the utterance.
type TurnKind string

const (
	TurnRanking              TurnKind = "ranking"
	TurnAnswer               TurnKind = "answer"
	TurnExport               TurnKind = "export"
	TurnRefusal              TurnKind = "refusal"
	TurnClassificationFailed TurnKind = "classification_failed"
)

// Keys used on the final message Extra map.
const (
	ExtraTurnKind   = "turn_kind"
	ExtraRanking    = "ranking"
	ExtraExportPath = "export_path"
	ExtraUsageCost  = "usage_cost"
	ExtraTotalCost  = "usage_cost_total_usd"
)

// TurnResult is what one user turn produces.
type TurnResult struct {
	Kind       TurnKind
	Text       string
	Ranking    *Ranking
	ExportPath string
	CostUSD    float64
}
