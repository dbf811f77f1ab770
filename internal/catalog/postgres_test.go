package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"jobmatch-workers/internal/alerts"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func intPtr(v int) *int { return &v }

func setupMockDB(t *testing.T) (*PostgresMatcher, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresMatcher(db, logger.NewTestLogger(t)), mock
}

var jobRowColumns = []string{"id", "title", "description", "company", "requirements_text", "required_skills",
	"experience_years", "education", "location", "job_type", "salary_min", "salary_max", "status", "created_at"}

func jobRows(created time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(jobRowColumns).
		AddRow("job-2", "Go Engineer", "Build services", "Initech", "Go, SQL", "{go,sql}",
			3, "BSc", "Berlin", "full-time", 60000, 80000, "active", created).
		AddRow("job-1", "Remote SRE", nil, nil, nil, nil,
			nil, nil, "Remote", "contract", nil, nil, "active", created.Add(-time.Hour))
}

func sampleSpec() alerts.FilterSpec {
	jt := models.JobTypeFullTime
	return alerts.BuildFilter(models.AlertDefinition{
		Keywords:         []string{"go", "c++"},
		Location:         "50%_off",
		JobType:          &jt,
		ExperienceLevel:  func() *models.ExperienceLevel { l := models.ExperienceMid; return &l }(),
		SalaryMin:        intPtr(50000),
		SalaryMax:        intPtr(90000),
		RemoteWork:       true,
		IncludeCompanies: []string{"Initech"},
		ExcludeCompanies: []string{"Hooli"},
	})
}

// ==========================
// BuildWhere
// ==========================

func TestBuildWhere_FullSpec(t *testing.T) {
	where, args := BuildWhere(sampleSpec())

	assert.Contains(t, where, "status = $1")
	assert.Contains(t, where, "location ILIKE $2")
	assert.Contains(t, where, "job_type = $3")
	assert.Contains(t, where, "COALESCE(experience_years, 0) <= $4")
	assert.Contains(t, where, "salary_max >= $5")
	assert.Contains(t, where, "salary_min <= $6")
	assert.Contains(t, where, "lower(company) = ANY($7)")
	assert.Contains(t, where, "NOT (lower(company) = ANY($8))")
	assert.Contains(t, where, "COALESCE(title, '') ~* $9")
	assert.Contains(t, where, "EXISTS (SELECT 1 FROM unnest(required_skills) AS skill WHERE skill ~* $9)",
		"skills are matched one value at a time")
	assert.Contains(t, where, "COALESCE(location, '') ~* $10")
	assert.Contains(t, where, ") OR (", "keyword and remote branches must be unioned")

	require.Len(t, args, 10)
	assert.Equal(t, "active", args[0])
	assert.Equal(t, `%50\%\_off%`, args[1])
	assert.Equal(t, 3, args[3])
	assert.Equal(t, pq.Array([]string{"initech"}), args[6])
	assert.Equal(t, `go|c\+\+`, args[8])
	assert.Equal(t, "remote|work from home", args[9])
}

func TestBuildWhere_Empty(t *testing.T) {
	where, args := BuildWhere(alerts.FilterSpec{})
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)
}

// ==========================
// Match / Count
// ==========================

func TestPostgresMatch_PageAndCountAgree(t *testing.T) {
	m, mock := setupMockDB(t)
	spec := alerts.BuildFilter(models.AlertDefinition{Keywords: []string{"go"}, RemoteWork: true})
	created := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM jobs WHERE status = $1`)).
			WithArgs("active", "go", "remote|work from home").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id ASC LIMIT $4 OFFSET $5`)).
			WithArgs("active", "go", "remote|work from home", 20, 0).
			WillReturnRows(jobRows(created))
	}

	first, total, err := m.Match(context.Background(), spec, 0, 0)
	require.NoError(t, err)
	second, total2, err := m.Match(context.Background(), spec, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	assert.Equal(t, total, total2)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "job-2", first[0].ID)
	assert.Equal(t, []string{"go", "sql"}, first[0].Requirements.Skills)
	assert.Equal(t, 80000, *first[0].Salary.Max)
	assert.Nil(t, first[1].Salary.Min)
	assert.Equal(t, models.JobTypeContract, first[1].JobType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMatch_ClampsPaging(t *testing.T) {
	m, mock := setupMockDB(t)
	spec := alerts.BuildFilter(models.AlertDefinition{Keywords: []string{"go"}})

	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(500))
	mock.ExpectQuery(`LIMIT \$3 OFFSET \$4`).
		WithArgs("active", "go", 100, 200).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	jobs, total, err := m.Match(context.Background(), spec, 3, 1000)
	require.NoError(t, err)
	assert.Equal(t, 500, total)
	assert.Empty(t, jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMatch_ZeroSkipsPageQuery(t *testing.T) {
	m, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	jobs, total, err := m.Match(context.Background(), alerts.BuildFilter(models.AlertDefinition{Keywords: []string{"cobol"}}), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCount_Errors(t *testing.T) {
	m, mock := setupMockDB(t)
	spec := alerts.BuildFilter(models.AlertDefinition{Keywords: []string{"go"}})

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("connection reset"))
	_, err := m.Count(context.Background(), spec)
	assert.ErrorIs(t, err, ErrQueryFailed)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(context.DeadlineExceeded)
	_, err = m.Count(context.Background(), spec)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size, wantOffset, wantLimit int
	}{
		{1, 20, 0, 20},
		{0, 0, 0, 20},
		{-2, -5, 0, 20},
		{2, 10, 10, 10},
		{3, 500, 200, 100},
	}
	for _, tt := range tests {
		offset, limit := NormalizePage(tt.page, tt.size)
		assert.Equal(t, tt.wantOffset, offset)
		assert.Equal(t, tt.wantLimit, limit)
	}
}
