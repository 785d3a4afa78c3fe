package nodes

import (
	"regexp"
	"strings"
)

var affirmativePattern = regexp.MustCompile(`(?i)\b(yes|yep|yeah|y|sure|ok|okay|pls|please|do it|go ahead|sounds good|create it|make it|csv)\b`)

// maxAffirmativeWords keeps "please rank utilities by beta" from reading as a yes.
const maxAffirmativeWords = 6

// IsAffirmative reports whether text is a short agreement such as "yes please".
func IsAffirmative(text string) bool {
	if len(strings.Fields(text)) > maxAffirmativeWords {
		return false
	}
	return affirmativePattern.MatchString(text)
}

var financePattern = regexp.MustCompile(`(?i)\b(stock|stocks|company|companies|ticker|equity|share|market|index|indices|beta|alpha|volatility|esg|risk|finance|financial|return|dividend|portfolio)\b`)

// IsFinanceRelated is the keyword check that keeps off-topic questions away from the answer model.
func IsFinanceRelated(text string) bool {
	return financePattern.MatchString(text)
}

const (
	RefusalMessage               = "That's outside my area of expertise. Have any questions about stocks?"
	ClassificationFailureMessage = "Sorry, I couldn't tell whether you want a ranked list of companies or an answer about a specific one. Could you rephrase?"
	NoPendingRankingMessage      = "I don't have a recent ranking to export."
)
