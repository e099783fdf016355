package models

// ScoreBreakdown itemizes the weighted components of a candidate's score.
// Weights sum to 100 so each component reads as a percentage contribution.
type ScoreBreakdown struct {
	Distance     float64 `json:"distance"`
	Rating       float64 `json:"rating"`
	Availability float64 `json:"availability"`
	Completion   float64 `json:"completion"`
	Acceptance   float64 `json:"acceptance"`
}

// MatchCandidate is a scored driver considered for a specific pickup.
// Candidates exist only within a single matching invocation.
type MatchCandidate struct {
	Driver     DriverPresence `json:"driver"`
	DistanceKm float64        `json:"distance_km"`
	Score      float64        `json:"score"`
	Breakdown  ScoreBreakdown `json:"score_breakdown"`
}

// RunnerUp is a trailing candidate kept for observability and manual fallback,
// never for automatic retry.
type RunnerUp struct {
	DriverID string  `json:"driver_id"`
	Score    float64 `json:"score"`
}

// MatchResult is the outcome of a successful matching invocation.
type MatchResult struct {
	Best      MatchCandidate `json:"best"`
	RunnersUp []RunnerUp     `json:"runners_up,omitempty"`
	FromStore bool           `json:"from_store"` // false when the durable fallback served the candidates
}
