package matching

import (
	"math"

	"jobmatch-workers/internal/models"
)

const (
	weightSkills     = 30.0
	weightExperience = 25.0
	weightLocation   = 20.0
	weightJobType    = 15.0
	weightSalary     = 10.0
)

// ApplicationMatch is the percentage recorded on an application when it is
// created. Only criteria with data on both sides count toward the total
// weight; with no comparable criteria the result is 0.
func ApplicationMatch(candidate models.CandidateProfile, job models.JobPosting) int {
	var achieved, total float64

	if fraction, ok := skillFraction(candidate.Skills, job.Requirements.Skills); ok {
		total += weightSkills
		achieved += fraction * weightSkills
	}

	if ratio, ok := experienceRatio(candidate.Experience, job.Requirements.ExperienceYears); ok {
		total += weightExperience
		achieved += ratio * weightExperience
	}

	if len(candidate.Preferences.Locations) > 0 && job.Location != "" {
		total += weightLocation
		if anyFuzzyMatch(candidate.Preferences.Locations, job.Location) {
			achieved += weightLocation
		}
	}

	if len(candidate.Preferences.JobTypes) > 0 && job.JobType != "" {
		total += weightJobType
		for _, t := range candidate.Preferences.JobTypes {
			if t == job.JobType {
				achieved += weightJobType
				break
			}
		}
	}

	if candidate.Preferences.MinSalary != nil && job.Salary.Min != nil {
		total += weightSalary
		if *job.Salary.Min >= *candidate.Preferences.MinSalary {
			achieved += weightSalary
		}
	}

	if total == 0 {
		return 0
	}
	return clamp(int(math.Round(achieved/total*100)), 0, 100)
}
