package errors

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeAlertValidationFailed ErrorCode = "ALERT_VALIDATION_FAILED"
	ErrCodeAlertNotFound         ErrorCode = "ALERT_NOT_FOUND"

	ErrCodeCandidateNotFound   ErrorCode = "CANDIDATE_NOT_FOUND"
	ErrCodeJobNotFound         ErrorCode = "JOB_NOT_FOUND"
	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDuplicateApplication     ErrorCode = "DUPLICATE_APPLICATION"

	ErrCodeCatalogQueryFailed ErrorCode = "CATALOG_QUERY_FAILED"
	ErrCodeCatalogTimeout     ErrorCode = "CATALOG_TIMEOUT"
	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeSchedulerTickFailed ErrorCode = "SCHEDULER_TICK_FAILED"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair that is forwarded as a process variable.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

func NewAlertValidationFailedError(details string) *StandardError {
	return newError(ErrCodeAlertValidationFailed, "Alert definition validation failed", details, false)
}

func NewAlertNotFoundError(alertID string) *StandardError {
	return newError(ErrCodeAlertNotFound, "Alert not found", fmt.Sprintf("alertId: %s", alertID), false)
}

func NewCandidateNotFoundError(candidateID string) *StandardError {
	return newError(ErrCodeCandidateNotFound, "Candidate profile not found", fmt.Sprintf("candidateId: %s", candidateID), false)
}

func NewJobNotFoundError(jobID string) *StandardError {
	return newError(ErrCodeJobNotFound, "Job posting not found", fmt.Sprintf("jobId: %s", jobID), false)
}

func NewApplicationNotFoundError(applicationID string) *StandardError {
	return newError(ErrCodeApplicationNotFound, "Application not found", fmt.Sprintf("applicationId: %s", applicationID), false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewDatabaseQueryFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query execution error",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true)
}

func NewQueryTimeoutError(operation string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("operation: %s", operation), true)
}

func NewDuplicateApplicationError(candidateID, jobID string) *StandardError {
	return newError(ErrCodeDuplicateApplication, "Application already exists",
		fmt.Sprintf("candidateId: %s, jobId: %s", candidateID, jobID), false).
		WithMetadata("candidateId", candidateID).
		WithMetadata("jobId", jobID)
}

func NewCatalogQueryFailedError(backend string, err error) *StandardError {
	return newError(ErrCodeCatalogQueryFailed, "Job catalog query error",
		fmt.Sprintf("backend: %s, error: %s", backend, err.Error()), true)
}

func NewCatalogTimeoutError(backend string) *StandardError {
	return newError(ErrCodeCatalogTimeout, "Job catalog query timeout", fmt.Sprintf("backend: %s", backend), true)
}

func NewCatalogUnavailableError(err error) *StandardError {
	return newError(ErrCodeCatalogUnavailable, "Job catalog unavailable", err.Error(), true)
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
}

func NewSchedulerTickFailedError(err error) *StandardError {
	return newError(ErrCodeSchedulerTickFailed, "Alert scheduler tick failed", err.Error(), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError("RESOURCE_NOT_FOUND", fmt.Sprintf("Resource not found in %s", service), details, false)
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:             "INVALID_INPUT",
	ErrCodeAlertValidationFailed:    "ALERT_VALIDATION_FAILED",
	ErrCodeAlertNotFound:            "ALERT_NOT_FOUND",
	ErrCodeCandidateNotFound:        "CANDIDATE_NOT_FOUND",
	ErrCodeJobNotFound:              "JOB_NOT_FOUND",
	ErrCodeApplicationNotFound:      "APPLICATION_NOT_FOUND",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeDatabaseQueryFailed:      "DATABASE_QUERY_FAILED",
	ErrCodeDatabaseInsertFailed:     "DATABASE_INSERT_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeDuplicateApplication:     "DUPLICATE_APPLICATION",
	ErrCodeCatalogQueryFailed:       "CATALOG_QUERY_FAILED",
	ErrCodeCatalogTimeout:           "CATALOG_TIMEOUT",
	ErrCodeCatalogUnavailable:       "CATALOG_UNAVAILABLE",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeSchedulerTickFailed:      "SCHEDULER_TICK_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeCatalogQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeSchedulerTickFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeCatalogTimeout:
		return 2

	case ErrCodeCatalogUnavailable:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "ALERT"):
		return "ALERT"
	case strings.HasPrefix(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "SCHEDULER"):
		return "SCHEDULER"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "DUPLICATE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
