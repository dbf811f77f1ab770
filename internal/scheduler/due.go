package scheduler

import (
	"time"

	"jobmatch-workers/internal/models"
)

var frequencyIntervals = map[models.Frequency]time.Duration{
	models.FrequencyInstant: 0,
	models.FrequencyDaily:   24 * time.Hour,
	models.FrequencyWeekly:  7 * 24 * time.Hour,
	models.FrequencyMonthly: 30 * 24 * time.Hour,
}

// Interval is the minimum time between two checks of an alert. Unknown
// frequencies fall back to daily.
func Interval(f models.Frequency) time.Duration {
	if d, ok := frequencyIntervals[f]; ok {
		return d
	}
	return frequencyIntervals[models.FrequencyDaily]
}

// IsDue reports whether alert should be evaluated at now. Instant alerts and
// alerts that were never checked are always due.
func IsDue(alert models.AlertDefinition, now time.Time) bool {
	if alert.Frequency == models.FrequencyInstant || alert.LastChecked == nil {
		return true
	}
	return now.Sub(*alert.LastChecked) >= Interval(alert.Frequency)
}
