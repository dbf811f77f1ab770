package scheduler

import (
	"testing"
	"time"

	"jobmatch-workers/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestIsDue(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name        string
		frequency   models.Frequency
		lastChecked *time.Time
		want        bool
	}{
		{name: "instant checked now", frequency: models.FrequencyInstant, lastChecked: ago(0), want: true},
		{name: "instant never checked", frequency: models.FrequencyInstant, want: true},
		{name: "daily checked now", frequency: models.FrequencyDaily, lastChecked: ago(0), want: false},
		{name: "daily checked 25h ago", frequency: models.FrequencyDaily, lastChecked: ago(25 * time.Hour), want: true},
		{name: "daily exactly 24h", frequency: models.FrequencyDaily, lastChecked: ago(24 * time.Hour), want: true},
		{name: "daily never checked", frequency: models.FrequencyDaily, want: true},
		{name: "weekly after 6 days", frequency: models.FrequencyWeekly, lastChecked: ago(6 * 24 * time.Hour), want: false},
		{name: "weekly after 7 days", frequency: models.FrequencyWeekly, lastChecked: ago(7 * 24 * time.Hour), want: true},
		{name: "monthly after 29 days", frequency: models.FrequencyMonthly, lastChecked: ago(29 * 24 * time.Hour), want: false},
		{name: "monthly after 30 days", frequency: models.FrequencyMonthly, lastChecked: ago(30 * 24 * time.Hour), want: true},
		{name: "unknown behaves as daily", frequency: "hourly", lastChecked: ago(2 * time.Hour), want: false},
		{name: "missing behaves as daily", frequency: "", lastChecked: ago(25 * time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := models.AlertDefinition{Frequency: tt.frequency, LastChecked: tt.lastChecked}
			assert.Equal(t, tt.want, IsDue(alert, now))
		})
	}
}
