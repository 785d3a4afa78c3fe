package screener

import (
	"fmt"
	"strings"

	"github.com/esg-screener/server/internal/agent/model"
)

// FormatMarkdown renders the criteria and the first n results as a
// markdown table followed by an export offer.
func FormatMarkdown(r *model.Ranking, n int) string {
	if n <= 0 {
		n = r.TopN
	}
	view := Top(r.Results, n)
	var b strings.Builder

	if len(view) == 0 {
		b.WriteString("No companies have data for every requested criterion.\n\nCriteria:\n")
		writeCriteria(&b, r.Criteria)
		return b.String()
	}

	fmt.Fprintf(&b, "Here are the top %d companies for your criteria:\n\n", len(view))
	b.WriteString("Criteria:\n")
	writeCriteria(&b, r.Criteria)
	b.WriteString("\n")

	b.WriteString("| Rank | Ticker | Name | Sector | Score |\n")
	b.WriteString("|------|--------|------|--------|-------|\n")
	for _, sr := range view {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %.4f |\n",
			sr.Rank, sr.Record.Ticker, escapeCell(sr.Record.Name), escapeCell(sr.Record.Sector), sr.Score)
	}
	if r.Excluded > 0 {
		fmt.Fprintf(&b, "\n_%d companies without data for every criterion were left out._\n", r.Excluded)
	}
	fmt.Fprintf(&b, "\nWant a CSV of the Top %d?", len(view))
	return b.String()
}

func writeCriteria(b *strings.Builder, spec model.CriteriaSpec) {
	if len(spec) == 0 {
		b.WriteString("(no explicit criteria provided)\n")
		return
	}
	for _, c := range spec.Normalized() {
		pref, arrow := "prefers higher", "↑"
		if c.Weight < 0 {
			pref, arrow = "prefers lower", "↓"
		}
		label := string(c.Attribute)
		if info, ok := model.Info(c.Attribute); ok {
			label = info.Label
		}
		w := c.Weight
		if w < 0 {
			w = -w
		}
		fmt.Fprintf(b, "- %s: %s %s (weight %.2f)\n", label, pref, arrow, w)
	}
}

func escapeCell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
