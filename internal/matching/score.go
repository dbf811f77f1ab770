package matching

import (
	"math"

	"jobmatch-workers/internal/models"
)

const (
	baseScore         = 10.0
	skillsCap         = 40.0
	experienceWeight  = 30.0
	educationWeight   = 20.0
	resumeWeight      = 10.0
	coverLetterBonus  = 5.0
	coverLetterMinLen = 100
)

// ScoreBreakdown lists each contribution to a candidate score before clamping.
type ScoreBreakdown struct {
	Base        float64 `json:"base"`
	Skills      float64 `json:"skills"`
	Experience  float64 `json:"experience"`
	Education   float64 `json:"education"`
	Resume      float64 `json:"resume"`
	CoverLetter float64 `json:"coverLetter"`
	Total       int     `json:"total"`
}

// CandidateScore rates how well a candidate fits a job on a 0-100 scale for
// recruiter-facing ranking.
func CandidateScore(candidate models.CandidateProfile, job models.JobPosting, coverLetterLength int) int {
	return CandidateScoreBreakdown(candidate, job, coverLetterLength).Total
}

func CandidateScoreBreakdown(candidate models.CandidateProfile, job models.JobPosting, coverLetterLength int) ScoreBreakdown {
	b := ScoreBreakdown{Base: baseScore}

	if fraction, ok := skillFraction(candidate.Skills, job.Requirements.Skills); ok {
		b.Skills = math.Min(fraction*100*0.4, skillsCap)
	}
	if ratio, ok := experienceRatio(candidate.Experience, job.Requirements.ExperienceYears); ok {
		b.Experience = experienceWeight * ratio
	}
	if matched, _ := educationMatches(candidate.Education, job.Requirements.Education); matched {
		b.Education = educationWeight
	}
	if candidate.HasResume {
		b.Resume = resumeWeight
	}
	// The bonus is added after the capped terms, so a perfect profile can
	// reach 105 before the final clamp.
	if coverLetterLength > coverLetterMinLen {
		b.CoverLetter = coverLetterBonus
	}

	total := b.Base + b.Skills + b.Experience + b.Education + b.Resume + b.CoverLetter
	b.Total = clamp(int(math.Round(total)), 0, 100)
	return b
}
