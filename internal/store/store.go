// Package store reads and writes the candidate, job, application and alert
// tables in Postgres.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"jobmatch-workers/internal/common/errors"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

func queryError(ctx context.Context, op string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(op)
	}
	return errors.NewDatabaseQueryFailedError(op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
