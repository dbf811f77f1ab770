// Package catalog selects active job postings that satisfy an alert filter.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"jobmatch-workers/internal/alerts"
	apperrors "jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	ErrQueryFailed = errors.New("CATALOG_QUERY_FAILED")
	ErrTimeout     = errors.New("CATALOG_TIMEOUT")
)

// Matcher applies a FilterSpec to the job catalog. Match returns one page
// ordered newest first plus the total number of qualifying jobs; Count
// returns the same total without loading documents.
type Matcher interface {
	Match(ctx context.Context, spec alerts.FilterSpec, page, pageSize int) ([]models.JobPosting, int, error)
	Count(ctx context.Context, spec alerts.FilterSpec) (int, error)
	Backend() string
}

// NormalizePage clamps paging input and returns the row offset and limit.
func NormalizePage(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return (page - 1) * pageSize, pageSize
}

func wrapQueryError(ctx context.Context, backend, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: %v", ErrTimeout, backend, op, err)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrQueryFailed, backend, op, err)
}

// StandardError maps a Matcher error to its catalog error code.
func StandardError(backend string, err error) error {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewCatalogTimeoutError(backend)
	}
	return apperrors.NewCatalogQueryFailedError(backend, err)
}
