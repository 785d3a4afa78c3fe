package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/esg-screener/server/internal/agent/model"
	errx "github.com/esg-screener/server/internal/core/error"
	logx "github.com/esg-screener/server/pkg/logger"
)

// ErrNoCriteria is returned when a reply names no usable attribute.
var ErrNoCriteria = errors.New("no usable preferences")

// ParseCriteria reads
//
//	{"preferences": {"<attribute>": {"weight": 0..1, "direction": "positive"|"negative"}}}
//
// from a model reply. Attributes outside the vocabulary are dropped, negative
// weights clamp to zero, unknown directions count as positive and zero weights
// are dropped. The result is sorted by attribute name.
func ParseCriteria(content string) (spec model.CriteriaSpec, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "criteria_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("criteria parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			spec = nil
		}
	}()

	obj, err := extractObject(content)
	if err != nil {
		return nil, fmt.Errorf("parse criteria: %w", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(obj, &doc); err != nil {
		return nil, fmt.Errorf("parse criteria: %w", err)
	}
	body := obj
	if p, ok := doc["preferences"]; ok {
		body = p
	}
	var prefs map[string]json.RawMessage
	if err := json.Unmarshal(body, &prefs); err != nil {
		return nil, fmt.Errorf("parse criteria: preferences: %w", err)
	}

	names := make([]string, 0, len(prefs))
	for k := range prefs {
		names = append(names, k)
	}
	slices.Sort(names)
	if len(names) > maxKeys {
		logx.Warn().Str("component", "criteria_parser").Int("max_keys", maxKeys).Int("keys", len(names)).Msg("preference keys capped")
		names = names[:maxKeys]
	}

	weights := map[model.Attribute]float64{}
	for _, name := range names {
		attr, ok := model.ParseAttribute(name)
		if !ok {
			logx.Debug().Str("component", "criteria_parser").Str("attribute", safeSnippet(name)).Msg("dropping unsupported attribute")
			continue
		}
		var cfg struct {
			Weight    any    `json:"weight"`
			Direction string `json:"direction"`
		}
		if err := json.Unmarshal(prefs[name], &cfg); err != nil {
			logx.Debug().Str("component", "criteria_parser").Str("attribute", name).Err(err).Msg("dropping malformed preference")
			continue
		}
		w, ok := toFloat(cfg.Weight)
		if !ok || w <= 0 {
			continue
		}
		if isNegative(cfg.Direction) {
			w = -w
		}
		// the same attribute under two spellings keeps the stronger weight
		if prev, seen := weights[attr]; seen && abs(prev) >= abs(w) {
			continue
		}
		weights[attr] = w
	}

	for _, a := range model.Attributes() {
		if w, ok := weights[a]; ok {
			spec = append(spec, model.Criterion{Attribute: a, Weight: w})
		}
	}
	slices.SortFunc(spec, func(a, b model.Criterion) int {
		return strings.Compare(string(a.Attribute), string(b.Attribute))
	})
	if len(spec) == 0 {
		return nil, ErrNoCriteria
	}
	return spec, nil
}

func isNegative(direction string) bool {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "negative", "neg", "lower", "low", "minimize", "min", "-1":
		return true
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
