package createjobalert

import "jobmatch-workers/internal/alerts"

type Input struct {
	alerts.AlertInput
}

type Output struct {
	AlertID   string   `json:"alertId"`
	Name      string   `json:"name"`
	Keywords  []string `json:"keywords"`
	Frequency string   `json:"frequency"`
	IsActive  bool     `json:"isActive"`
	CreatedAt string   `json:"createdAt"` // ISO 8601
}
