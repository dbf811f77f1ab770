// Package matching scores candidate profiles against job postings.
//
// Both scores are pure functions of their inputs and safe for concurrent use.
// Criteria with missing data on either side are skipped rather than treated
// as failures.
package matching

import (
	"strings"

	"jobmatch-workers/internal/models"
)

// fuzzyMatch reports whether either string contains the other, ignoring case.
func fuzzyMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func anyFuzzyMatch(candidates []string, target string) bool {
	for _, c := range candidates {
		if fuzzyMatch(c, target) {
			return true
		}
	}
	return false
}

// skillFraction is the share of required skills covered by the candidate.
// ok is false when either side has no skills listed.
func skillFraction(candidateSkills, required []string) (fraction float64, ok bool) {
	if len(candidateSkills) == 0 || len(required) == 0 {
		return 0, false
	}
	matched := 0
	for _, req := range required {
		if anyFuzzyMatch(candidateSkills, req) {
			matched++
		}
	}
	return float64(matched) / float64(len(required)), true
}

// experienceRatio is min(M/N, 1) for M experience entries against N required
// years. ok is false when the job has no experience requirement.
func experienceRatio(entries []models.Experience, requiredYears int) (ratio float64, ok bool) {
	if requiredYears <= 0 {
		return 0, false
	}
	if len(entries) >= requiredYears {
		return 1, true
	}
	return float64(len(entries)) / float64(requiredYears), true
}

func educationMatches(education []models.Education, required string) (matched bool, ok bool) {
	required = strings.ToLower(strings.TrimSpace(required))
	if required == "" {
		return false, false
	}
	for _, e := range education {
		if strings.Contains(strings.ToLower(e.Degree), required) {
			return true, true
		}
	}
	return false, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
