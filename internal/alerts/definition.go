package alerts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jobmatch-workers/internal/common/validation"
	"jobmatch-workers/internal/models"

	"github.com/google/uuid"
)

var ErrInvalidAlert = errors.New("ALERT_VALIDATION_FAILED")

// AlertInput is the payload accepted when a user saves a job alert.
type AlertInput struct {
	UserID           string   `json:"userId"`
	Name             string   `json:"name"`
	Keywords         []string `json:"keywords"`
	Location         string   `json:"location,omitempty"`
	JobType          string   `json:"jobType,omitempty"`
	ExperienceLevel  string   `json:"experienceLevel,omitempty"`
	SalaryMin        *int     `json:"salaryMin,omitempty"`
	SalaryMax        *int     `json:"salaryMax,omitempty"`
	RemoteWork       bool     `json:"remoteWork"`
	Frequency        string   `json:"frequency,omitempty"`
	IncludeCompanies []string `json:"includeCompanies,omitempty"`
	ExcludeCompanies []string `json:"excludeCompanies,omitempty"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["userId", "keywords"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"name": {"type": "string", "maxLength": 120},
		"keywords": {"type": "array", "minItems": 1, "maxItems": 25, "items": {"type": "string", "maxLength": 100}},
		"location": {"type": "string", "maxLength": 200},
		"jobType": {"type": "string", "enum": ["", "full-time", "part-time", "contract", "internship", "freelance"]},
		"experienceLevel": {"type": "string", "enum": ["", "entry", "mid", "senior", "lead"]},
		"salaryMin": {"type": ["integer", "null"], "minimum": 0},
		"salaryMax": {"type": ["integer", "null"], "minimum": 0},
		"remoteWork": {"type": "boolean"},
		"frequency": {"type": "string", "enum": ["", "instant", "daily", "weekly", "monthly"]},
		"includeCompanies": {"type": ["array", "null"], "items": {"type": "string"}},
		"excludeCompanies": {"type": ["array", "null"], "items": {"type": "string"}}
	}
}`)

// NewAlertDefinition validates input and returns an active alert ready to be
// stored. Every error wraps ErrInvalidAlert.
func NewAlertDefinition(input AlertInput, now time.Time) (*models.AlertDefinition, error) {
	result, err := inputSchema.Validate(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAlert, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlert, result.Error())
	}

	keywords := SanitizeKeywords(input.Keywords)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: at least one non-blank keyword is required", ErrInvalidAlert)
	}

	if input.SalaryMin != nil && input.SalaryMax != nil && *input.SalaryMin > *input.SalaryMax {
		return nil, fmt.Errorf("%w: salaryMin %d exceeds salaryMax %d", ErrInvalidAlert, *input.SalaryMin, *input.SalaryMax)
	}

	alert := &models.AlertDefinition{
		ID:               uuid.New().String(),
		UserID:           input.UserID,
		Name:             strings.TrimSpace(input.Name),
		Keywords:         keywords,
		Location:         strings.TrimSpace(input.Location),
		SalaryMin:        input.SalaryMin,
		SalaryMax:        input.SalaryMax,
		RemoteWork:       input.RemoteWork,
		Frequency:        models.FrequencyDaily,
		IsActive:         true,
		IncludeCompanies: cleanList(input.IncludeCompanies),
		ExcludeCompanies: cleanList(input.ExcludeCompanies),
		CreatedAt:        now.UTC(),
	}
	if alert.Name == "" {
		alert.Name = strings.Join(keywords, ", ")
	}
	if input.Frequency != "" {
		alert.Frequency = models.Frequency(input.Frequency)
	}
	if input.JobType != "" {
		jt := models.JobType(input.JobType)
		alert.JobType = &jt
	}
	if input.ExperienceLevel != "" {
		lvl := models.ExperienceLevel(input.ExperienceLevel)
		alert.ExperienceLevel = &lvl
	}

	return alert, nil
}

// SanitizeKeywords trims blanks and drops case-insensitive duplicates,
// keeping the first spelling.
func SanitizeKeywords(raw []string) []string {
	return cleanList(raw)
}

func cleanList(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		k = strings.Join(strings.Fields(k), " ")
		if k == "" {
			continue
		}
		key := strings.ToLower(k)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
