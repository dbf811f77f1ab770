package models

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusReviewed    ApplicationStatus = "reviewed"
	ApplicationStatusShortlisted ApplicationStatus = "shortlisted"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

// Application links a candidate to a job. Score is a lazily filled cache;
// MatchPercentage is written once on insert and never updated.
type Application struct {
	ID              string            `json:"id"`
	CandidateID     string            `json:"candidateId"`
	JobID           string            `json:"jobId"`
	CoverLetter     string            `json:"coverLetter,omitempty"`
	Score           *int              `json:"score,omitempty"`
	MatchPercentage *int              `json:"matchPercentage,omitempty"`
	Status          ApplicationStatus `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
}
