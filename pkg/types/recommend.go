package types

// Recommendation is an issue suggested by RecommendNext, with the score
// that ranked it. Subissue progress is filled in for issues that have
// subissues.
type Recommendation struct {
	Issue     *Issue `json:"issue"`
	Score     int    `json:"score"`
	Completed int    `json:"completed_subissues"`
	Total     int    `json:"total_subissues"`

	// Alternatives are the runners-up, best first. Only set on the
	// top-level result.
	Alternatives []Recommendation `json:"alternatives,omitempty"`
}

// HasProgress reports whether the recommended issue has subissues.
func (r *Recommendation) HasProgress() bool {
	return r.Total > 0
}
