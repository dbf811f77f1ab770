package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/models"
)

type ApplicationStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewApplicationStore(db *sql.DB, log logger.Logger) *ApplicationStore {
	return &ApplicationStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "application_store"}),
	}
}

// Exists reports whether the candidate already applied to the job.
func (s *ApplicationStore) Exists(ctx context.Context, candidateID, jobID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications
			WHERE candidate_id = $1 AND job_id = $2
		)`, candidateID, jobID).Scan(&exists)
	if err != nil {
		return false, queryError(ctx, "application_exists", err)
	}
	return exists, nil
}

// Create inserts app and writes an audit entry. A failed audit insert is
// logged and does not fail the call.
func (s *ApplicationStore) Create(ctx context.Context, app *models.Application) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, candidate_id, job_id, cover_letter, match_percentage, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		app.ID,
		app.CandidateID,
		app.JobID,
		app.CoverLetter,
		app.MatchPercentage,
		string(app.Status),
		app.CreatedAt,
	)
	if isUniqueViolation(err) {
		return errors.NewDuplicateApplicationError(app.CandidateID, app.JobID)
	}
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}

	s.audit(ctx, "application_created", app.ID, map[string]interface{}{
		"candidateId":     app.CandidateID,
		"jobId":           app.JobID,
		"matchPercentage": app.MatchPercentage,
	})
	return nil
}

func (s *ApplicationStore) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	var (
		app         models.Application
		coverLetter sql.NullString
		score, pct  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, candidate_id, job_id, cover_letter, score, match_percentage, status, created_at
		FROM applications WHERE id = $1`, applicationID).
		Scan(&app.ID, &app.CandidateID, &app.JobID, &coverLetter, &score, &pct, &app.Status, &app.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewApplicationNotFoundError(applicationID)
	}
	if err != nil {
		return nil, queryError(ctx, "get_application", err)
	}

	app.CoverLetter = coverLetter.String
	app.Score = nullInt(score)
	app.MatchPercentage = nullInt(pct)
	return &app, nil
}

// SaveScoreIfAbsent writes score only when the row has none and returns the
// score stored afterwards, which is the earlier value if another writer won.
func (s *ApplicationStore) SaveScoreIfAbsent(ctx context.Context, applicationID string, score int) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET score = $1, updated_at = NOW() WHERE id = $2 AND score IS NULL`,
		score, applicationID)
	if err != nil {
		return 0, queryError(ctx, "save_score", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return score, nil
	}

	var stored sql.NullInt64
	err = s.db.QueryRowContext(ctx, `SELECT score FROM applications WHERE id = $1`, applicationID).Scan(&stored)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, errors.NewApplicationNotFoundError(applicationID)
	}
	if err != nil {
		return 0, queryError(ctx, "read_score", err)
	}
	if !stored.Valid {
		return 0, fmt.Errorf("score for application %s was cleared concurrently", applicationID)
	}
	return int(stored.Int64), nil
}

// InvalidateScore clears the cached score so the next read recomputes it.
func (s *ApplicationStore) InvalidateScore(ctx context.Context, applicationID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET score = NULL, updated_at = NOW() WHERE id = $1`, applicationID)
	if err != nil {
		return queryError(ctx, "invalidate_score", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewApplicationNotFoundError(applicationID)
	}
	s.audit(ctx, "application_score_invalidated", applicationID, nil)
	return nil
}

func (s *ApplicationStore) audit(ctx context.Context, event, applicationID string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil || details == nil {
		detailsJSON = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		event, "application", applicationID, detailsJSON)
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err.Error(),
			"event":         event,
			"applicationId": applicationID,
		})
	}
}
