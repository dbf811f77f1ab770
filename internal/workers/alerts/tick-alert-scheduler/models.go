package tickalertscheduler

import "jobmatch-workers/internal/scheduler"

type Input struct {
	// Now overrides the evaluation time (RFC 3339). Empty means the clock.
	Now string `json:"now,omitempty"`
}

type Output struct {
	TickedAt  string              `json:"tickedAt"`
	Processed int                 `json:"processed"`
	Notified  int                 `json:"notified"`
	Skipped   int                 `json:"skipped"`
	Failures  []scheduler.Failure `json:"failures"`
}
