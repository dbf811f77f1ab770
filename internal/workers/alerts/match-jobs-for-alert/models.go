package matchjobsforalert

type Input struct {
	AlertID  string `json:"alertId"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	// CountOnly skips loading documents and returns only the total.
	CountOnly bool `json:"countOnly"`
}

type JobSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Company   string `json:"company"`
	Location  string `json:"location,omitempty"`
	JobType   string `json:"jobType,omitempty"`
	SalaryMin *int   `json:"salaryMin,omitempty"`
	SalaryMax *int   `json:"salaryMax,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type Output struct {
	AlertID  string       `json:"alertId"`
	Jobs     []JobSummary `json:"jobs"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
	HasMore  bool         `json:"hasMore"`
}
