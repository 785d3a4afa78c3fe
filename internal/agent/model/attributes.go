package model

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Attribute identifies one scorable numeric column of the company table.
// The set is closed: anything ParseAttribute rejects is unsupported.
type Attribute string

const (
	AttrBeta              Attribute = "beta"
	AttrMarketCap         Attribute = "market_cap"
	AttrPERatio           Attribute = "pe_ratio"
	AttrEPS               Attribute = "eps"
	AttrDividendYield     Attribute = "dividend_yield"
	AttrEnvironmentalRisk Attribute = "environmental_risk"
	AttrSocialRisk        Attribute = "social_risk"
	AttrGovernanceRisk    Attribute = "governance_risk"
	AttrESGTotal          Attribute = "esg_total"
)

var knownAttributes = []Attribute{
	AttrBeta,
	AttrMarketCap,
	AttrPERatio,
	AttrEPS,
	AttrDividendYield,
	AttrEnvironmentalRisk,
	AttrSocialRisk,
	AttrGovernanceRisk,
	AttrESGTotal,
}

// Attributes returns the closed attribute vocabulary in catalog order.
func Attributes() []Attribute {
	return slices.Clone(knownAttributes)
}

// ParseAttribute maps a column or model-provided name onto the vocabulary.
func ParseAttribute(s string) (Attribute, bool) {
	a := Attribute(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(knownAttributes, a) {
		return a, true
	}
	return "", false
}

func (a Attribute) String() string {
	return string(a)
}

// Direction is the preferred sense of an attribute.
type Direction string

const (
	Maximize Direction = "positive"
	Minimize Direction = "negative"
	// Either means the preferred direction depends on the request.
	Either Direction = "either"
)

// AttributeInfo describes an attribute for prompts and display.
type AttributeInfo struct {
	Name        Attribute `yaml:"name"`
	Label       string    `yaml:"label"`
	Description string    `yaml:"description"`
	Hint        Direction `yaml:"hint"`
}

//go:embed attributes.yaml
var attributesYAML []byte

var (
	catalog     []AttributeInfo
	catalogErr  error
	catalogOnce sync.Once
)

func loadCatalog() ([]AttributeInfo, error) {
	var doc struct {
		Attributes []AttributeInfo `yaml:"attributes"`
	}
	if err := yaml.Unmarshal(attributesYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse attribute catalog: %w", err)
	}
	if len(doc.Attributes) != len(knownAttributes) {
		return nil, fmt.Errorf("attribute catalog has %d entries, want %d", len(doc.Attributes), len(knownAttributes))
	}
	for i, info := range doc.Attributes {
		if info.Name != knownAttributes[i] {
			return nil, fmt.Errorf("attribute catalog entry %d is %q, want %q", i, info.Name, knownAttributes[i])
		}
		switch info.Hint {
		case Maximize, Minimize, Either:
		default:
			return nil, fmt.Errorf("attribute %q has invalid hint %q", info.Name, info.Hint)
		}
	}
	return doc.Attributes, nil
}

// Catalog returns the attribute descriptions. It panics if the embedded
// catalog drifted from the Attribute constants.
func Catalog() []AttributeInfo {
	catalogOnce.Do(func() {
		catalog, catalogErr = loadCatalog()
	})
	if catalogErr != nil {
		panic(catalogErr)
	}
	return slices.Clone(catalog)
}

// Info returns the catalog entry for a.
func Info(a Attribute) (AttributeInfo, bool) {
	for _, info := range Catalog() {
		if info.Name == a {
			return info, true
		}
	}
	return AttributeInfo{}, false
}
