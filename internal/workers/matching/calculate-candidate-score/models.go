package calculatecandidatescore

import "jobmatch-workers/internal/matching"

type Input struct {
	ApplicationID string `json:"applicationId"`
	// Recalculate drops any cached score before scoring.
	Recalculate bool `json:"recalculate"`
}

type Output struct {
	ApplicationID string                  `json:"applicationId"`
	Score         int                     `json:"score"`
	Breakdown     matching.ScoreBreakdown `json:"breakdown"`
}
