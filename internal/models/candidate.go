package models

// CandidateProfile is the read model of a job seeker used for scoring.
type CandidateProfile struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Skills      []string     `json:"skills"`
	Experience  []Experience `json:"experience"`
	Education   []Education  `json:"education"`
	HasResume   bool         `json:"hasResume"`
	Preferences Preferences  `json:"preferences"`
}

type Experience struct {
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
	Period  string `json:"period,omitempty"`
}

type Education struct {
	Degree      string `json:"degree"`
	Field       string `json:"field,omitempty"`
	Institution string `json:"institution,omitempty"`
}

type Preferences struct {
	Locations []string  `json:"locations,omitempty"`
	JobTypes  []JobType `json:"jobTypes,omitempty"`
	MinSalary *int      `json:"minSalary,omitempty"`
}
