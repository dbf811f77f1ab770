package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jobmatch-workers/internal/alerts"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/common/metrics"
	"jobmatch-workers/internal/models"

	"github.com/lib/pq"
)

// JobColumns is the jobs column list read by ScanJob.
const JobColumns = `id, title, description, company, requirements_text, required_skills,
	experience_years, education, location, job_type, salary_min, salary_max, status, created_at`

// pgPatternMatch is the SQL for "pattern placeholder ph matches field f".
// Requirements match on the free text or on any single skill.
func pgPatternMatch(f alerts.Field, ph string) string {
	switch f {
	case alerts.FieldTitle:
		return fmt.Sprintf("COALESCE(title, '') ~* %s", ph)
	case alerts.FieldDescription:
		return fmt.Sprintf("COALESCE(description, '') ~* %s", ph)
	case alerts.FieldRequirements:
		return fmt.Sprintf("COALESCE(requirements_text, '') ~* %s OR EXISTS (SELECT 1 FROM unnest(required_skills) AS skill WHERE skill ~* %s)", ph, ph)
	case alerts.FieldLocation:
		return fmt.Sprintf("COALESCE(location, '') ~* %s", ph)
	}
	return "FALSE"
}

type PostgresMatcher struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresMatcher(db *sql.DB, log logger.Logger) *PostgresMatcher {
	return &PostgresMatcher{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "catalog", "backend": "postgres"}),
	}
}

func (m *PostgresMatcher) Backend() string { return "postgres" }

func (m *PostgresMatcher) Match(ctx context.Context, spec alerts.FilterSpec, page, pageSize int) ([]models.JobPosting, int, error) {
	start := time.Now()
	defer func() {
		metrics.CatalogQueryDuration.WithLabelValues(m.Backend(), "match").Observe(time.Since(start).Seconds())
	}()

	total, err := m.Count(ctx, spec)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.JobPosting{}, 0, nil
	}

	offset, limit := NormalizePage(page, pageSize)
	where, args := BuildWhere(spec)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE %s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`,
		JobColumns, where, len(args)-1, len(args))

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapQueryError(ctx, m.Backend(), "match", err)
	}
	defer rows.Close()

	jobs := make([]models.JobPosting, 0, limit)
	for rows.Next() {
		job, err := ScanJob(rows)
		if err != nil {
			return nil, 0, wrapQueryError(ctx, m.Backend(), "scan", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapQueryError(ctx, m.Backend(), "match", err)
	}
	return jobs, total, nil
}

func (m *PostgresMatcher) Count(ctx context.Context, spec alerts.FilterSpec) (int, error) {
	where, args := BuildWhere(spec)

	var total int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE `+where, args...).Scan(&total)
	if err != nil {
		return 0, wrapQueryError(ctx, m.Backend(), "count", err)
	}
	return total, nil
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

func ScanJob(row RowScanner) (models.JobPosting, error) {
	var (
		job                                 models.JobPosting
		description, company, reqText, educ sql.NullString
		location, jobType                   sql.NullString
		skills                              pq.StringArray
		experience, salaryMin, salaryMax    sql.NullInt64
	)
	err := row.Scan(&job.ID, &job.Title, &description, &company, &reqText, &skills,
		&experience, &educ, &location, &jobType, &salaryMin, &salaryMax, &job.Status, &job.CreatedAt)
	if err != nil {
		return job, err
	}

	job.Description = description.String
	job.Company = company.String
	job.Requirements = models.JobRequirements{
		Skills:          []string(skills),
		ExperienceYears: int(experience.Int64),
		Education:       educ.String,
		Text:            reqText.String,
	}
	job.Location = location.String
	job.JobType = models.JobType(jobType.String)
	job.Salary = models.SalaryRange{Min: nullIntPtr(salaryMin), Max: nullIntPtr(salaryMax)}
	return job, nil
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// BuildWhere translates a FilterSpec into a parameterised WHERE clause. Count
// and Match both use it so they always agree on the qualifying rows.
func BuildWhere(spec alerts.FilterSpec) (string, []interface{}) {
	w := &whereBuilder{}

	if spec.Status != "" {
		w.add("status = %s", string(spec.Status))
	}
	if spec.Location != "" {
		w.add(`location ILIKE %s`, "%"+escapeLike(spec.Location)+"%")
	}
	if spec.JobType != nil {
		w.add("job_type = %s", string(*spec.JobType))
	}
	if spec.MaxExperience != nil {
		w.add("COALESCE(experience_years, 0) <= %s", *spec.MaxExperience)
	}
	if spec.SalaryMin != nil {
		w.add("salary_max >= %s", *spec.SalaryMin)
	}
	if spec.SalaryMax != nil {
		w.add("salary_min <= %s", *spec.SalaryMax)
	}
	if len(spec.IncludeCompanies) > 0 {
		w.add("lower(company) = ANY(%s)", pq.Array(lowerAll(spec.IncludeCompanies)))
	}
	if len(spec.ExcludeCompanies) > 0 {
		w.add("(company IS NULL OR NOT (lower(company) = ANY(%s)))", pq.Array(lowerAll(spec.ExcludeCompanies)))
	}

	if len(spec.AnyOf) > 0 {
		branches := make([]string, 0, len(spec.AnyOf))
		for _, c := range spec.AnyOf {
			ph := w.param(c.Pattern)
			cols := make([]string, 0, len(c.Fields))
			for _, f := range c.Fields {
				cols = append(cols, pgPatternMatch(f, ph))
			}
			branches = append(branches, strings.Join(cols, " OR "))
		}
		w.conds = append(w.conds, "(("+strings.Join(branches, ") OR (")+"))")
	}

	if len(w.conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(w.conds, " AND "), w.args
}

type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (w *whereBuilder) param(v interface{}) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(format string, v interface{}) {
	w.conds = append(w.conds, fmt.Sprintf(format, w.param(v)))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
