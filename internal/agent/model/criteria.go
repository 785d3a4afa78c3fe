package model

import (
	"math"
	"regexp"
	"strings"
)

// Criterion weights one attribute. Positive weights prefer higher values,
// negative weights prefer lower values.
type Criterion struct {
	Attribute Attribute `json:"attribute"`
	Weight    float64   `json:"weight"`
}

// Direction derives the preferred sense from the weight sign.
func (c Criterion) Direction() Direction {
	if c.Weight < 0 {
		return Minimize
	}
	return Maximize
}

// CriteriaSpec is the weighted attribute set extracted from one request.
type CriteriaSpec []Criterion

// Attributes lists the attributes in spec order.
func (s CriteriaSpec) Attributes() []Attribute {
	out := make([]Attribute, 0, len(s))
	for _, c := range s {
		out = append(out, c.Attribute)
	}
	return out
}

// Negate flips every weight.
func (s CriteriaSpec) Negate() CriteriaSpec {
	out := make(CriteriaSpec, len(s))
	for i, c := range s {
		out[i] = Criterion{Attribute: c.Attribute, Weight: -c.Weight}
	}
	return out
}

// Normalized rescales weights so their absolute values sum to 1.
// A spec whose weights are all zero is returned unchanged.
func (s CriteriaSpec) Normalized() CriteriaSpec {
	total := 0.0
	for _, c := range s {
		total += math.Abs(c.Weight)
	}
	out := make(CriteriaSpec, len(s))
	copy(out, s)
	if total == 0 {
		return out
	}
	for i := range out {
		out[i].Weight /= total
	}
	return out
}

var unsafeSlugChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// DefaultSlugLen caps export file name slugs.
const DefaultSlugLen = 80

// Slug renders the spec as a file-name-safe token such as "beta-neg_esg_total-neg".
func (s CriteriaSpec) Slug(maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSlugLen
	}
	parts := make([]string, 0, len(s))
	for _, c := range s {
		dir := "pos"
		if c.Weight < 0 {
			dir = "neg"
		}
		parts = append(parts, string(c.Attribute)+"-"+dir)
	}
	slug := strings.Join(parts, "_")
	if slug == "" {
		slug = "criteria"
	}
	slug = unsafeSlugChars.ReplaceAllString(slug, "-")
	if len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return slug
}
