package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"jobmatch-workers/internal/catalog"
	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/models"
)

type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) GetJob(ctx context.Context, jobID string) (*models.JobPosting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+catalog.JobColumns+` FROM jobs WHERE id = $1`, jobID)
	job, err := catalog.ScanJob(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	if err != nil {
		return nil, queryError(ctx, "get_job", err)
	}
	return &job, nil
}
