package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobmatch-workers/internal/alerts"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/common/metrics"
	"jobmatch-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// esSearchFields maps filter fields to the wildcard subfields substring
// clauses run against.
var esSearchFields = map[alerts.Field][]string{
	alerts.FieldTitle:        {"title.wildcard"},
	alerts.FieldDescription:  {"description.wildcard"},
	alerts.FieldRequirements: {"requirements.wildcard", "required_skills.wildcard"},
	alerts.FieldLocation:     {"location.wildcard"},
}

// searchableText is a text field with a wildcard subfield holding the whole
// value, so substring clauses see what FilterSpec.Matches sees.
var searchableText = map[string]interface{}{
	"type": "text",
	"fields": map[string]interface{}{
		"wildcard": map[string]interface{}{"type": "wildcard"},
	},
}

// JobIndexMapping is the jobs index mapping the queries below are written for.
var JobIndexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "keyword"},
			"title":       searchableText,
			"description": searchableText,
			"company": map[string]interface{}{
				"type":   "text",
				"fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}},
			},
			"requirements":     searchableText,
			"required_skills":  searchableText,
			"experience_years": map[string]interface{}{"type": "integer"},
			"education":        map[string]interface{}{"type": "text"},
			"location":         searchableText,
			"job_type":         map[string]interface{}{"type": "keyword"},
			"salary_min":       map[string]interface{}{"type": "integer"},
			"salary_max":       map[string]interface{}{"type": "integer"},
			"status":           map[string]interface{}{"type": "keyword"},
			"created_at":       map[string]interface{}{"type": "date"},
		},
	},
}

type ElasticsearchMatcher struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchMatcher(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchMatcher {
	return &ElasticsearchMatcher{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "catalog", "backend": "elasticsearch"}),
	}
}

func (m *ElasticsearchMatcher) Backend() string { return "elasticsearch" }

type jobDocument struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Company         string    `json:"company"`
	Requirements    string    `json:"requirements"`
	RequiredSkills  []string  `json:"required_skills"`
	ExperienceYears int       `json:"experience_years"`
	Education       string    `json:"education"`
	Location        string    `json:"location"`
	JobType         string    `json:"job_type"`
	SalaryMin       *int      `json:"salary_min"`
	SalaryMax       *int      `json:"salary_max"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func (d jobDocument) toModel() models.JobPosting {
	return models.JobPosting{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Company:     d.Company,
		Requirements: models.JobRequirements{
			Skills:          d.RequiredSkills,
			ExperienceYears: d.ExperienceYears,
			Education:       d.Education,
			Text:            d.Requirements,
		},
		Location:  d.Location,
		JobType:   models.JobType(d.JobType),
		Salary:    models.SalaryRange{Min: d.SalaryMin, Max: d.SalaryMax},
		Status:    models.JobStatus(d.Status),
		CreatedAt: d.CreatedAt,
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source jobDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type countResponse struct {
	Count int `json:"count"`
}

func (m *ElasticsearchMatcher) Match(ctx context.Context, spec alerts.FilterSpec, page, pageSize int) ([]models.JobPosting, int, error) {
	start := time.Now()
	defer func() {
		metrics.CatalogQueryDuration.WithLabelValues(m.Backend(), "match").Observe(time.Since(start).Seconds())
	}()

	from, size := NormalizePage(page, pageSize)
	body, err := json.Marshal(map[string]interface{}{
		"query": BuildElasticsearchQuery(spec),
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		},
		"track_total_hits": true,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: encode query: %v", ErrQueryFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{m.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}

	var out searchResponse
	if err := m.do(ctx, "search", req, &out); err != nil {
		return nil, 0, err
	}

	jobs := make([]models.JobPosting, 0, len(out.Hits.Hits))
	for _, hit := range out.Hits.Hits {
		jobs = append(jobs, hit.Source.toModel())
	}
	return jobs, out.Hits.Total.Value, nil
}

func (m *ElasticsearchMatcher) Count(ctx context.Context, spec alerts.FilterSpec) (int, error) {
	start := time.Now()
	defer func() {
		metrics.CatalogQueryDuration.WithLabelValues(m.Backend(), "count").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(map[string]interface{}{"query": BuildElasticsearchQuery(spec)})
	if err != nil {
		return 0, fmt.Errorf("%w: encode query: %v", ErrQueryFailed, err)
	}

	req := esapi.CountRequest{
		Index: []string{m.index},
		Body:  bytes.NewReader(body),
	}

	var out countResponse
	if err := m.do(ctx, "count", req, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// EnsureIndex creates the jobs index with JobIndexMapping when it does not
// exist yet. An existing index is left untouched.
func (m *ElasticsearchMatcher) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{m.index}}.Do(ctx, m.client)
	if err != nil {
		return wrapQueryError(ctx, m.Backend(), "index_exists", err)
	}
	res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("%w: elasticsearch index_exists: %s", ErrQueryFailed, res.Status())
	}

	body, err := json.Marshal(JobIndexMapping)
	if err != nil {
		return fmt.Errorf("%w: encode mapping: %v", ErrQueryFailed, err)
	}
	var ack struct {
		Acknowledged bool `json:"acknowledged"`
	}
	if err := m.do(ctx, "create_index", esapi.IndicesCreateRequest{Index: m.index, Body: bytes.NewReader(body)}, &ack); err != nil {
		return err
	}
	m.logger.Info("jobs index created", map[string]interface{}{"index": m.index, "acknowledged": ack.Acknowledged})
	return nil
}

func (m *ElasticsearchMatcher) do(ctx context.Context, op string, req esapi.Request, out interface{}) error {
	res, err := req.Do(ctx, m.client)
	if err != nil {
		return wrapQueryError(ctx, m.Backend(), op, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		m.logger.Warn("catalog query rejected", map[string]interface{}{
			"operation": op,
			"status":    res.StatusCode,
			"body":      string(raw),
		})
		return fmt.Errorf("%w: elasticsearch %s: %s", ErrQueryFailed, op, res.Status())
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrQueryFailed, op, err)
	}
	return nil
}

// BuildElasticsearchQuery translates a FilterSpec into a bool query. Shared by
// search and count so both select the same documents.
func BuildElasticsearchQuery(spec alerts.FilterSpec) map[string]interface{} {
	filter := []interface{}{}
	mustNot := []interface{}{}

	if spec.Status != "" {
		filter = append(filter, term("status", string(spec.Status)))
	}
	if spec.Location != "" {
		filter = append(filter, containsWildcard("location.wildcard", spec.Location))
	}
	if spec.JobType != nil {
		filter = append(filter, term("job_type", string(*spec.JobType)))
	}
	if spec.MaxExperience != nil {
		// a job without a requirement counts as zero years
		filter = append(filter, anyOf([]interface{}{
			rangeQuery("experience_years", "lte", *spec.MaxExperience),
			map[string]interface{}{
				"bool": map[string]interface{}{
					"must_not": []interface{}{
						map[string]interface{}{"exists": map[string]interface{}{"field": "experience_years"}},
					},
				},
			},
		}))
	}
	if spec.SalaryMin != nil {
		filter = append(filter, rangeQuery("salary_max", "gte", *spec.SalaryMin))
	}
	if spec.SalaryMax != nil {
		filter = append(filter, rangeQuery("salary_min", "lte", *spec.SalaryMax))
	}
	if len(spec.IncludeCompanies) > 0 {
		filter = append(filter, anyOf(companyTerms(spec.IncludeCompanies)))
	}
	if len(spec.ExcludeCompanies) > 0 {
		mustNot = append(mustNot, companyTerms(spec.ExcludeCompanies)...)
	}

	if len(spec.AnyOf) > 0 {
		branches := make([]interface{}, 0, len(spec.AnyOf))
		for _, c := range spec.AnyOf {
			branches = append(branches, clauseQuery(c))
		}
		filter = append(filter, anyOf(branches))
	}

	boolQuery := map[string]interface{}{"filter": filter}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}
	return map[string]interface{}{"bool": boolQuery}
}

// clauseQuery matches when any term is a case-insensitive substring of any
// of the clause's fields.
func clauseQuery(c alerts.Clause) interface{} {
	var fields []string
	for _, f := range c.Fields {
		fields = append(fields, esSearchFields[f]...)
	}
	parts := make([]interface{}, 0, len(fields)*len(c.Terms))
	for _, field := range fields {
		for _, t := range c.Terms {
			parts = append(parts, containsWildcard(field, t))
		}
	}
	return anyOf(parts)
}

func anyOf(clauses []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               clauses,
			"minimum_should_match": 1,
		},
	}
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

func rangeQuery(field, op string, value int) map[string]interface{} {
	return map[string]interface{}{
		"range": map[string]interface{}{field: map[string]interface{}{op: value}},
	}
}

func companyTerms(companies []string) []interface{} {
	out := make([]interface{}, 0, len(companies))
	for _, c := range companies {
		out = append(out, map[string]interface{}{
			"term": map[string]interface{}{
				"company.keyword": map[string]interface{}{"value": c, "case_insensitive": true},
			},
		})
	}
	return out
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func containsWildcard(field, substr string) map[string]interface{} {
	return map[string]interface{}{
		"wildcard": map[string]interface{}{
			field: map[string]interface{}{
				"value":            "*" + wildcardEscaper.Replace(substr) + "*",
				"case_insensitive": true,
			},
		},
	}
}
