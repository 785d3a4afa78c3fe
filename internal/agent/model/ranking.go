package model

import "time"

// ScoredRecord pairs a company with its score under one CriteriaSpec.
type ScoredRecord struct {
	Record *CompanyRecord `json:"record"`
	Score  float64        `json:"score"`
	// Components holds the normalized value used for each criterion.
	Components map[Attribute]float64 `json:"components,omitempty"`
	// Rank is 1-based; equal scores share the lowest rank.
	Rank int `json:"rank"`
}

// Ranking is the ordered outcome of one ranking request.
type Ranking struct {
	Criteria CriteriaSpec   `json:"criteria"`
	Results  []ScoredRecord `json:"results"`
	// TopN is how many results were shown to the user.
	TopN int `json:"top_n"`
	// Excluded counts records dropped for missing a criteria attribute.
	Excluded  int       `json:"excluded"`
	CreatedAt time.Time `json:"created_at"`
}
