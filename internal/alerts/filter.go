// Package alerts turns saved job alerts into storage-agnostic filters.
package alerts

import (
	"regexp"
	"strings"

	"jobmatch-workers/internal/models"
)

type Field string

const (
	FieldTitle        Field = "title"
	FieldDescription  Field = "description"
	FieldRequirements Field = "requirements"
	FieldLocation     Field = "location"
)

// KeywordFields are the job fields searched by alert keywords.
var KeywordFields = []Field{FieldTitle, FieldDescription, FieldRequirements}

// RemoteTerms identify remote jobs by their location text.
var RemoteTerms = []string{"remote", "work from home"}

type ClauseKind string

const (
	// ClauseKeywords matches when any term occurs in any of Fields.
	ClauseKeywords ClauseKind = "keywords"
	// ClauseLocationContains matches when the job location contains any term.
	ClauseLocationContains ClauseKind = "location_contains"
)

// Clause is one branch of the disjunction a job must satisfy.
type Clause struct {
	Kind   ClauseKind
	Fields []Field
	Terms  []string
	// Pattern is the escaped, case-insensitive alternation of Terms for
	// stores that evaluate regular expressions.
	Pattern string
}

// FilterSpec describes which catalog jobs an alert selects. Every non-empty
// field is ANDed; AnyOf requires at least one of its clauses to hold.
type FilterSpec struct {
	Status           models.JobStatus
	Keywords         []string
	KeywordPattern   string
	KeywordFields    []Field
	Location         string
	JobType          *models.JobType
	MaxExperience    *int
	SalaryMin        *int
	SalaryMax        *int
	RemoteFallback   bool
	AnyOf            []Clause
	IncludeCompanies []string
	ExcludeCompanies []string
}

// BuildFilter translates an alert into a FilterSpec. Keywords are sanitised
// and escaped here so no caller can hand raw input to a pattern engine.
func BuildFilter(alert models.AlertDefinition) FilterSpec {
	keywords := SanitizeKeywords(alert.Keywords)

	spec := FilterSpec{
		Status:           models.JobStatusActive,
		Keywords:         keywords,
		KeywordPattern:   escapedAlternation(keywords),
		KeywordFields:    KeywordFields,
		Location:         strings.TrimSpace(alert.Location),
		JobType:          alert.JobType,
		SalaryMin:        alert.SalaryMin,
		SalaryMax:        alert.SalaryMax,
		RemoteFallback:   alert.RemoteWork,
		IncludeCompanies: cleanList(alert.IncludeCompanies),
		ExcludeCompanies: cleanList(alert.ExcludeCompanies),
	}

	if alert.ExperienceLevel != nil {
		if years, ok := alert.ExperienceLevel.MaxYears(); ok {
			spec.MaxExperience = &years
		}
	}

	if len(keywords) > 0 {
		spec.AnyOf = append(spec.AnyOf, Clause{
			Kind:    ClauseKeywords,
			Fields:  KeywordFields,
			Terms:   keywords,
			Pattern: spec.KeywordPattern,
		})
	}
	if alert.RemoteWork {
		spec.AnyOf = append(spec.AnyOf, Clause{
			Kind:    ClauseLocationContains,
			Fields:  []Field{FieldLocation},
			Terms:   RemoteTerms,
			Pattern: escapedAlternation(RemoteTerms),
		})
	}

	return spec
}

func escapedAlternation(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(quoted, "|")
}

// Matches evaluates the spec against a single job in memory. Catalog
// backends must select exactly the jobs for which Matches is true.
func (s FilterSpec) Matches(job models.JobPosting) bool {
	if s.Status != "" && job.Status != s.Status {
		return false
	}
	if s.Location != "" && !containsFold(job.Location, s.Location) {
		return false
	}
	if s.JobType != nil && job.JobType != *s.JobType {
		return false
	}
	if s.MaxExperience != nil && job.Requirements.ExperienceYears > *s.MaxExperience {
		return false
	}
	if s.SalaryMin != nil && (job.Salary.Max == nil || *job.Salary.Max < *s.SalaryMin) {
		return false
	}
	if s.SalaryMax != nil && (job.Salary.Min == nil || *job.Salary.Min > *s.SalaryMax) {
		return false
	}
	if len(s.IncludeCompanies) > 0 && !inFold(s.IncludeCompanies, job.Company) {
		return false
	}
	if len(s.ExcludeCompanies) > 0 && inFold(s.ExcludeCompanies, job.Company) {
		return false
	}
	if len(s.AnyOf) == 0 {
		return true
	}
	for _, c := range s.AnyOf {
		if c.matches(job) {
			return true
		}
	}
	return false
}

func (c Clause) matches(job models.JobPosting) bool {
	for _, f := range c.Fields {
		for _, text := range FieldValues(job, f) {
			for _, term := range c.Terms {
				if containsFold(text, term) {
					return true
				}
			}
		}
	}
	return false
}

// FieldValues are the searchable values of a job field. Requirements yield
// the free text and each skill separately; a term must occur within one value.
func FieldValues(job models.JobPosting, f Field) []string {
	switch f {
	case FieldTitle:
		return []string{job.Title}
	case FieldDescription:
		return []string{job.Description}
	case FieldRequirements:
		return append([]string{job.Requirements.Text}, job.Requirements.Skills...)
	case FieldLocation:
		return []string{job.Location}
	}
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
