// Package registry describes the Zeebe activities this service implements.
package registry

import (
	"sort"

	"jobmatch-workers/internal/common/errors"
	cja "jobmatch-workers/internal/workers/alerts/create-job-alert"
	mja "jobmatch-workers/internal/workers/alerts/match-jobs-for-alert"
	tas "jobmatch-workers/internal/workers/alerts/tick-alert-scheduler"
	car "jobmatch-workers/internal/workers/application/create-application-record"
	ccs "jobmatch-workers/internal/workers/matching/calculate-candidate-score"
)

type ActivityRegistry struct {
	Version    string     `json:"version"`
	Activities []Activity `json:"activities"`
}

type Activity struct {
	TaskType    string             `json:"taskType"`
	DisplayName string             `json:"displayName"`
	Category    string             `json:"category"`
	ErrorCodes  []errors.ErrorCode `json:"errorCodes"`
}

// Default lists every activity registered by worker-manager.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version: "1.0.0",
		Activities: []Activity{
			{
				TaskType:    ccs.TaskType,
				DisplayName: "Calculate Candidate Score",
				Category:    "matching",
				ErrorCodes: []errors.ErrorCode{
					errors.ErrCodeInvalidInput, errors.ErrCodeApplicationNotFound,
					errors.ErrCodeCandidateNotFound, errors.ErrCodeJobNotFound, errors.ErrCodeDatabaseQueryFailed,
				},
			},
			{
				TaskType:    car.TaskType,
				DisplayName: "Create Application Record",
				Category:    "application",
				ErrorCodes: []errors.ErrorCode{
					errors.ErrCodeInvalidInput, errors.ErrCodeDuplicateApplication,
					errors.ErrCodeDatabaseQueryFailed, errors.ErrCodeDatabaseInsertFailed,
				},
			},
			{
				TaskType:    cja.TaskType,
				DisplayName: "Create Job Alert",
				Category:    "alerts",
				ErrorCodes:  []errors.ErrorCode{errors.ErrCodeAlertValidationFailed, errors.ErrCodeDatabaseInsertFailed},
			},
			{
				TaskType:    mja.TaskType,
				DisplayName: "Match Jobs For Alert",
				Category:    "alerts",
				ErrorCodes: []errors.ErrorCode{
					errors.ErrCodeInvalidInput, errors.ErrCodeAlertNotFound,
					errors.ErrCodeCatalogQueryFailed, errors.ErrCodeCatalogTimeout,
				},
			},
			{
				TaskType:    tas.TaskType,
				DisplayName: "Tick Alert Scheduler",
				Category:    "alerts",
				ErrorCodes:  []errors.ErrorCode{errors.ErrCodeInvalidInput, errors.ErrCodeSchedulerTickFailed},
			},
		},
	}
}

func (r *ActivityRegistry) Lookup(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Unknown returns the task types in names that no activity implements, sorted.
func (r *ActivityRegistry) Unknown(names []string) []string {
	var out []string
	for _, n := range names {
		if _, ok := r.Lookup(n); !ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
