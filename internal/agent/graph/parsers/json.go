package parsers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024 // 64KB
	maxKeys       = 64        // maximum number of preference entries to consider
	maxErrSnippet = 200       // limit error snippet size
)

// extractObject returns the JSON object in content. Models sometimes wrap
// the object in code fences or prose, so when the whole text is not valid
// JSON the span from the first '{' to the last '}' is tried.
func extractObject(content string) ([]byte, error) {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json object in %q", safeSnippet(content))
	}
	obj := s[start : end+1]
	if !json.Valid([]byte(obj)) {
		return nil, fmt.Errorf("invalid json object in %q", safeSnippet(content))
	}
	return []byte(obj), nil
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	var f float64
	switch vv := v.(type) {
	case float64:
		f = vv
	case json.Number:
		n, err := vv.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(vv), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
