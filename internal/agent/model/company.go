package model

// CompanyRecord is one row of the company table. Metrics only holds the
// attributes that were present and numeric for the row.
type CompanyRecord struct {
	Ticker   string                `json:"ticker"`
	Name     string                `json:"name"`
	Sector   string                `json:"sector,omitempty"`
	Industry string                `json:"industry,omitempty"`
	Metrics  map[Attribute]float64 `json:"metrics"`
}

// Value returns the metric for a and whether the row carries it.
func (r *CompanyRecord) Value(a Attribute) (float64, bool) {
	v, ok := r.Metrics[a]
	return v, ok
}

// Has reports whether the record carries every attribute in attrs.
func (r *CompanyRecord) Has(attrs ...Attribute) bool {
	for _, a := range attrs {
		if _, ok := r.Metrics[a]; !ok {
			return false
		}
	}
	return true
}
