package models

import "time"

type ExperienceLevel string

const (
	ExperienceEntry  ExperienceLevel = "entry"
	ExperienceMid    ExperienceLevel = "mid"
	ExperienceSenior ExperienceLevel = "senior"
	ExperienceLead   ExperienceLevel = "lead"
)

// MaxYears is the highest required experience a job may ask for to match the level.
func (l ExperienceLevel) MaxYears() (int, bool) {
	switch l {
	case ExperienceEntry:
		return 0, true
	case ExperienceMid:
		return 3, true
	case ExperienceSenior:
		return 5, true
	case ExperienceLead:
		return 8, true
	}
	return 0, false
}

type Frequency string

const (
	FrequencyInstant Frequency = "instant"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyInstant, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// AlertDefinition is a saved search. LastChecked and LastNotificationSent are
// owned by the scheduler.
type AlertDefinition struct {
	ID                   string           `json:"id"`
	UserID               string           `json:"userId"`
	Name                 string           `json:"name"`
	Keywords             []string         `json:"keywords"`
	Location             string           `json:"location,omitempty"`
	JobType              *JobType         `json:"jobType,omitempty"`
	ExperienceLevel      *ExperienceLevel `json:"experienceLevel,omitempty"`
	SalaryMin            *int             `json:"salaryMin,omitempty"`
	SalaryMax            *int             `json:"salaryMax,omitempty"`
	RemoteWork           bool             `json:"remoteWork"`
	Frequency            Frequency        `json:"frequency"`
	IsActive             bool             `json:"isActive"`
	LastChecked          *time.Time       `json:"lastChecked,omitempty"`
	LastNotificationSent *time.Time       `json:"lastNotificationSent,omitempty"`
	IncludeCompanies     []string         `json:"includeCompanies,omitempty"`
	ExcludeCompanies     []string         `json:"excludeCompanies,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// MatchBatchResult lives only long enough to build one alert notification.
type MatchBatchResult struct {
	AlertID     string    `json:"alertId"`
	JobIDs      []string  `json:"jobIds"`
	Count       int       `json:"count"`
	GeneratedAt time.Time `json:"generatedAt"`
}
