package models

import "time"

type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeFreelance  JobType = "freelance"
)

func (t JobType) Valid() bool {
	switch t {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeFreelance:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusClosed   JobStatus = "closed"
	JobStatusRejected JobStatus = "rejected"
	JobStatusFlagged  JobStatus = "flagged"
)

type JobPosting struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Company      string          `json:"company"`
	Requirements JobRequirements `json:"requirements"`
	Location     string          `json:"location"`
	JobType      JobType         `json:"jobType"`
	Salary       SalaryRange     `json:"salary"`
	Status       JobStatus       `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type JobRequirements struct {
	Skills          []string `json:"skills,omitempty"`
	ExperienceYears int      `json:"experienceYears,omitempty"`
	Education       string   `json:"education,omitempty"`
	// Text is the free-form requirements section searched by alert keywords.
	Text string `json:"text,omitempty"`
}

type SalaryRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}
