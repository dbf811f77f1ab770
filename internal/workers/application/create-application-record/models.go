package createapplicationrecord

type Input struct {
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
	CoverLetter string `json:"coverLetter"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationStatus string `json:"applicationStatus"`
	MatchPercentage   *int   `json:"matchPercentage"`
	CreatedAt         string `json:"createdAt"` // ISO 8601
}
