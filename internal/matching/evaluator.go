package matching

import (
	"context"
	"fmt"
	"unicode/utf8"

	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/models"
)

type CandidateLoader interface {
	GetCandidate(ctx context.Context, candidateID string) (*models.CandidateProfile, error)
}

type JobLoader interface {
	GetJob(ctx context.Context, jobID string) (*models.JobPosting, error)
}

// ScoreCache persists candidate scores on application records.
type ScoreCache interface {
	GetApplication(ctx context.Context, applicationID string) (*models.Application, error)
	// SaveScoreIfAbsent stores score unless one is already set and returns
	// the value that is stored afterwards.
	SaveScoreIfAbsent(ctx context.Context, applicationID string, score int) (int, error)
}

// Evaluator loads records and runs the scoring functions against them.
type Evaluator struct {
	candidates CandidateLoader
	jobs       JobLoader
	scores     ScoreCache
	logger     logger.Logger
}

func NewEvaluator(candidates CandidateLoader, jobs JobLoader, scores ScoreCache, log logger.Logger) *Evaluator {
	return &Evaluator{
		candidates: candidates,
		jobs:       jobs,
		scores:     scores,
		logger:     log.WithFields(map[string]interface{}{"component": "matching"}),
	}
}

// ComputeApplicationMatch returns nil when either record cannot be loaded.
// It never fails, so application creation is never blocked by it.
func (e *Evaluator) ComputeApplicationMatch(ctx context.Context, candidateID, jobID string) *int {
	candidate, job, err := e.load(ctx, candidateID, jobID)
	if err != nil {
		e.logger.Warn("match percentage skipped", map[string]interface{}{
			"candidateId": candidateID,
			"jobId":       jobID,
			"error":       err.Error(),
		})
		return nil
	}

	pct := ApplicationMatch(*candidate, *job)
	return &pct
}

// ApplicationScore returns the cached score of an application, computing and
// persisting it on first use.
func (e *Evaluator) ApplicationScore(ctx context.Context, applicationID string) (int, ScoreBreakdown, error) {
	app, err := e.scores.GetApplication(ctx, applicationID)
	if err != nil {
		return 0, ScoreBreakdown{}, err
	}
	if app.Score != nil {
		return *app.Score, ScoreBreakdown{Total: *app.Score}, nil
	}

	candidate, job, err := e.load(ctx, app.CandidateID, app.JobID)
	if err != nil {
		return 0, ScoreBreakdown{}, err
	}

	breakdown := CandidateScoreBreakdown(*candidate, *job, utf8.RuneCountInString(app.CoverLetter))
	stored, err := e.scores.SaveScoreIfAbsent(ctx, applicationID, breakdown.Total)
	if err != nil {
		return 0, ScoreBreakdown{}, fmt.Errorf("cache score: %w", err)
	}
	if stored != breakdown.Total {
		// another writer cached first; our contributions do not explain its score
		breakdown = ScoreBreakdown{Total: stored}
	}

	e.logger.Debug("application score computed", map[string]interface{}{
		"applicationId": applicationID,
		"score":         stored,
		"breakdown":     breakdown,
	})
	return stored, breakdown, nil
}

func (e *Evaluator) load(ctx context.Context, candidateID, jobID string) (*models.CandidateProfile, *models.JobPosting, error) {
	candidate, err := e.candidates.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, nil, fmt.Errorf("load candidate %s: %w", candidateID, err)
	}
	job, err := e.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	return candidate, job, nil
}
