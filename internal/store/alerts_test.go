package store

import (
	"context"
	"testing"
	"time"

	apperrors "jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alertRowColumns = []string{"id", "user_id", "name", "keywords", "location", "job_type", "experience_level",
	"salary_min", "salary_max", "remote_work", "frequency", "is_active", "last_checked",
	"last_notification_sent", "include_companies", "exclude_companies", "created_at"}

func setupAlertStore(t *testing.T) (*AlertStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAlertStore(db), mock
}

// ==========================
// Read Tests
// ==========================

func TestAlertStore_ListActive(t *testing.T) {
	s, mock := setupAlertStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	checked := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(alertRowColumns).
		AddRow("alert-1", "user-1", "Go contracts", "{go,rust}", nil, "contract", nil,
			50000, nil, true, "daily", true, nil, nil, "{}", nil, created).
		AddRow("alert-2", "user-2", "Seniors", "{kotlin}", "Berlin", nil, "senior",
			nil, 90000, false, "weekly", true, checked, checked, "{Acme}", "{Initech}", created)

	mock.ExpectQuery(`FROM job_alerts\s+WHERE is_active = TRUE\s+ORDER BY last_checked ASC NULLS FIRST, id ASC`).
		WillReturnRows(rows)

	alerts, err := s.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	first := alerts[0]
	assert.Equal(t, []string{"go", "rust"}, first.Keywords)
	assert.Empty(t, first.Location)
	require.NotNil(t, first.JobType)
	assert.Equal(t, models.JobTypeContract, *first.JobType)
	assert.Nil(t, first.ExperienceLevel)
	assert.Equal(t, 50000, *first.SalaryMin)
	assert.Nil(t, first.SalaryMax)
	assert.True(t, first.RemoteWork)
	assert.Nil(t, first.LastChecked, "never checked")
	assert.Empty(t, first.IncludeCompanies)

	second := alerts[1]
	assert.Equal(t, models.FrequencyWeekly, second.Frequency)
	assert.Equal(t, models.ExperienceSenior, *second.ExperienceLevel)
	assert.Equal(t, checked, *second.LastChecked)
	assert.Equal(t, []string{"Initech"}, second.ExcludeCompanies)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertStore_GetNotFound(t *testing.T) {
	s, mock := setupAlertStore(t)
	mock.ExpectQuery(`FROM job_alerts WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(alertRowColumns))

	_, err := s.Get(context.Background(), "missing")
	assert.Equal(t, apperrors.ErrCodeAlertNotFound, apperrors.Normalize(err).Code)
}

// ==========================
// Write Tests
// ==========================

func TestAlertStore_Create(t *testing.T) {
	s, mock := setupAlertStore(t)
	jt := models.JobTypeFullTime
	alert := &models.AlertDefinition{
		ID:        "alert-1",
		UserID:    "user-1",
		Name:      "Go jobs",
		Keywords:  []string{"go"},
		JobType:   &jt,
		Frequency: models.FrequencyDaily,
		IsActive:  true,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO job_alerts`).
		WithArgs("alert-1", "user-1", "Go jobs", `{"go"}`, nil, "full-time", nil,
			nil, nil, false, "daily", true, sqlmock.AnyArg(), sqlmock.AnyArg(), alert.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Create(context.Background(), alert))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertStore_Advance(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	prev := now.Add(-25 * time.Hour)

	tests := []struct {
		name     string
		previous *time.Time
		notified bool
		affected int64
		want     bool
	}{
		{name: "first check with notification", previous: nil, notified: true, affected: 1, want: true},
		{name: "recheck without matches", previous: &prev, notified: false, affected: 1, want: true},
		{name: "lost the race", previous: &prev, notified: true, affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := setupAlertStore(t)

			var prevArg interface{}
			if tt.previous != nil {
				prevArg = *tt.previous
			}
			mock.ExpectExec(`UPDATE job_alerts\s+SET last_checked = \$1`).
				WithArgs(now, tt.notified, "alert-1", prevArg).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			won, err := s.Advance(context.Background(), "alert-1", tt.previous, now, tt.notified)
			require.NoError(t, err)
			assert.Equal(t, tt.want, won)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
