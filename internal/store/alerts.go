package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/models"

	"github.com/lib/pq"
)

const alertColumns = `id, user_id, name, keywords, location, job_type, experience_level,
	salary_min, salary_max, remote_work, frequency, is_active, last_checked,
	last_notification_sent, include_companies, exclude_companies, created_at`

type AlertStore struct {
	db *sql.DB
}

func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

func (s *AlertStore) Create(ctx context.Context, alert *models.AlertDefinition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_alerts (
			id, user_id, name, keywords, location, job_type, experience_level,
			salary_min, salary_max, remote_work, frequency, is_active,
			include_companies, exclude_companies, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		alert.ID,
		alert.UserID,
		alert.Name,
		pq.Array(alert.Keywords),
		nullString(alert.Location),
		nullEnum(alert.JobType),
		nullEnum(alert.ExperienceLevel),
		alert.SalaryMin,
		alert.SalaryMax,
		alert.RemoteWork,
		string(alert.Frequency),
		alert.IsActive,
		pq.Array(alert.IncludeCompanies),
		pq.Array(alert.ExcludeCompanies),
		alert.CreatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *AlertStore) Get(ctx context.Context, alertID string) (*models.AlertDefinition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM job_alerts WHERE id = $1`, alertID)
	alert, err := scanAlert(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewAlertNotFoundError(alertID)
	}
	if err != nil {
		return nil, queryError(ctx, "get_alert", err)
	}
	return &alert, nil
}

// ListActive returns every active alert, oldest check first.
func (s *AlertStore) ListActive(ctx context.Context) ([]models.AlertDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM job_alerts
		WHERE is_active = TRUE
		ORDER BY last_checked ASC NULLS FIRST, id ASC`)
	if err != nil {
		return nil, queryError(ctx, "list_active_alerts", err)
	}
	defer rows.Close()

	var out []models.AlertDefinition
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, queryError(ctx, "scan_alert", err)
		}
		out = append(out, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, "list_active_alerts", err)
	}
	return out, nil
}

// Advance moves last_checked to now, and last_notification_sent too when
// notified is set. It only succeeds if last_checked still equals previous,
// so two evaluators of the same alert cannot both advance it. The returned
// bool is false when another writer got there first.
func (s *AlertStore) Advance(ctx context.Context, alertID string, previous *time.Time, now time.Time, notified bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_alerts
		SET last_checked = $1,
			last_notification_sent = CASE WHEN $2 THEN $1 ELSE last_notification_sent END,
			updated_at = NOW()
		WHERE id = $3
			AND last_checked IS NOT DISTINCT FROM $4
			AND (last_checked IS NULL OR last_checked <= $1)`,
		now, notified, alertID, nullableTime(previous))
	if err != nil {
		return false, queryError(ctx, "advance_alert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, queryError(ctx, "advance_alert", err)
	}
	return n == 1, nil
}

func scanAlert(row interface{ Scan(...interface{}) error }) (models.AlertDefinition, error) {
	var (
		alert                       models.AlertDefinition
		keywords, include, exclude  pq.StringArray
		location, jobType, expLevel sql.NullString
		salaryMin, salaryMax        sql.NullInt64
		lastChecked, lastNotified   sql.NullTime
	)
	err := row.Scan(&alert.ID, &alert.UserID, &alert.Name, &keywords, &location, &jobType, &expLevel,
		&salaryMin, &salaryMax, &alert.RemoteWork, &alert.Frequency, &alert.IsActive, &lastChecked,
		&lastNotified, &include, &exclude, &alert.CreatedAt)
	if err != nil {
		return alert, err
	}

	alert.Keywords = []string(keywords)
	alert.Location = location.String
	if jobType.Valid && jobType.String != "" {
		jt := models.JobType(jobType.String)
		alert.JobType = &jt
	}
	if expLevel.Valid && expLevel.String != "" {
		lvl := models.ExperienceLevel(expLevel.String)
		alert.ExperienceLevel = &lvl
	}
	alert.SalaryMin = nullInt(salaryMin)
	alert.SalaryMax = nullInt(salaryMax)
	alert.LastChecked = nullTime(lastChecked)
	alert.LastNotificationSent = nullTime(lastNotified)
	alert.IncludeCompanies = []string(include)
	alert.ExcludeCompanies = []string(exclude)
	return alert, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullEnum[T ~string](v *T) interface{} {
	if v == nil {
		return nil
	}
	return string(*v)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
