package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"jobmatch-workers/internal/alerts"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES records request bodies and serves canned search/count responses.
type fakeES struct {
	mu       sync.Mutex
	bodies   map[string][]map[string]interface{}
	queries  map[string][]string
	status   int
	search   string
	countRes string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	raw, _ := io.ReadAll(r.Body)
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.bodies[r.URL.Path] = append(f.bodies[r.URL.Path], body)
	f.queries[r.URL.Path] = append(f.queries[r.URL.Path], r.URL.RawQuery)
	f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
		return
	}

	switch r.URL.Path {
	case "/jobs/_search":
		_, _ = w.Write([]byte(f.search))
	case "/jobs/_count":
		_, _ = w.Write([]byte(f.countRes))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setupES(t *testing.T, fake *fakeES) *ElasticsearchMatcher {
	fake.bodies = map[string][]map[string]interface{}{}
	fake.queries = map[string][]string{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewElasticsearchMatcher(client, "jobs", logger.NewTestLogger(t))
}

const searchBody = `{
	"hits": {
		"total": {"value": 2, "relation": "eq"},
		"hits": [
			{"_source": {"id": "job-2", "title": "Go Engineer", "company": "Initech", "required_skills": ["go"],
				"experience_years": 2, "location": "Berlin", "job_type": "full-time", "salary_min": 60000,
				"salary_max": 80000, "status": "active", "created_at": "2026-02-01T12:00:00Z"}},
			{"_source": {"id": "job-1", "title": "SRE", "location": "Remote", "job_type": "contract",
				"status": "active", "created_at": "2026-01-31T12:00:00Z"}}
		]
	}
}`

func TestElasticsearchMatch(t *testing.T) {
	fake := &fakeES{search: searchBody, countRes: `{"count": 2}`}
	m := setupES(t, fake)
	spec := alerts.BuildFilter(models.AlertDefinition{Keywords: []string{"golang"}, RemoteWork: true})

	jobs, total, err := m.Match(context.Background(), spec, 2, 500)
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-2", jobs[0].ID)
	assert.Equal(t, []string{"go"}, jobs[0].Requirements.Skills)
	assert.Equal(t, 60000, *jobs[0].Salary.Min)
	assert.Equal(t, models.JobStatusActive, jobs[1].Status)
	assert.Nil(t, jobs[1].Salary.Max)

	require.Len(t, fake.queries["/jobs/_search"], 1)
	assert.Contains(t, fake.queries["/jobs/_search"][0], "from=100")
	assert.Contains(t, fake.queries["/jobs/_search"][0], "size=100")

	body := fake.bodies["/jobs/_search"][0]
	assert.Equal(t, true, body["track_total_hits"])
	sort := body["sort"].([]interface{})
	assert.Equal(t, "desc", sort[0].(map[string]interface{})["created_at"].(map[string]interface{})["order"])

	count, err := m.Count(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, total, count)

	countQuery := fake.bodies["/jobs/_count"][0]["query"]
	assert.Equal(t, body["query"], countQuery, "count and search must send the same query")
}

func TestElasticsearchMatch_ErrorStatus(t *testing.T) {
	fake := &fakeES{status: http.StatusNotFound}
	m := setupES(t, fake)

	_, _, err := m.Match(context.Background(), alerts.BuildFilter(models.AlertDefinition{Keywords: []string{"go"}}), 1, 10)
	assert.ErrorIs(t, err, ErrQueryFailed)

	_, err = m.Count(context.Background(), alerts.BuildFilter(models.AlertDefinition{Keywords: []string{"go"}}))
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestBuildElasticsearchQuery(t *testing.T) {
	jt := models.JobTypeContract
	spec := alerts.BuildFilter(models.AlertDefinition{
		Keywords:         []string{"go", "k8s"},
		Location:         "new*york",
		JobType:          &jt,
		SalaryMin:        intPtr(1000),
		RemoteWork:       true,
		ExcludeCompanies: []string{"Hooli"},
	})

	raw, err := json.Marshal(BuildElasticsearchQuery(spec))
	require.NoError(t, err)
	var q map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &q))

	boolQ := q["bool"].(map[string]interface{})
	filter := boolQ["filter"].([]interface{})
	mustNot := boolQ["must_not"].([]interface{})

	// status, location, job type, salary, any-of
	require.Len(t, filter, 5)
	require.Len(t, mustNot, 1)

	loc := filter[1].(map[string]interface{})["wildcard"].(map[string]interface{})["location.wildcard"].(map[string]interface{})
	assert.Equal(t, `*new\*york*`, loc["value"])
	assert.Equal(t, true, loc["case_insensitive"])

	anyOf := filter[4].(map[string]interface{})["bool"].(map[string]interface{})
	assert.EqualValues(t, 1, anyOf["minimum_should_match"])
	branches := anyOf["should"].([]interface{})
	require.Len(t, branches, 2, "keyword and remote branches")

	keywordBranch := branches[0].(map[string]interface{})["bool"].(map[string]interface{})["should"].([]interface{})
	require.Len(t, keywordBranch, 8, "every term against every keyword field")
	byField := map[string][]interface{}{}
	for _, part := range keywordBranch {
		for field, q := range part.(map[string]interface{})["wildcard"].(map[string]interface{}) {
			byField[field] = append(byField[field], q.(map[string]interface{})["value"])
			assert.Equal(t, true, q.(map[string]interface{})["case_insensitive"])
		}
	}
	assert.ElementsMatch(t, []string{"title.wildcard", "description.wildcard", "requirements.wildcard", "required_skills.wildcard"},
		keys(byField))
	assert.Equal(t, []interface{}{"*go*", "*k8s*"}, byField["required_skills.wildcard"])
}

func keys(m map[string][]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// wildcardClauses collects field -> patterns for every wildcard clause in q.
func wildcardClauses(q interface{}, out map[string][]string) {
	switch v := q.(type) {
	case map[string]interface{}:
		if w, ok := v["wildcard"].(map[string]interface{}); ok {
			for field, spec := range w {
				out[field] = append(out[field], spec.(map[string]interface{})["value"].(string))
			}
			return
		}
		for _, child := range v {
			wildcardClauses(child, out)
		}
	case []interface{}:
		for _, child := range v {
			wildcardClauses(child, out)
		}
	}
}

func TestBuildElasticsearchQuery_AgreesWithMatches(t *testing.T) {
	entry := models.ExperienceEntry
	spec := alerts.BuildFilter(models.AlertDefinition{
		Keywords:        []string{"node"},
		ExperienceLevel: &entry,
	})

	// no experience requirement, keyword only inside the skill "Node.js"
	job := models.JobPosting{
		Title:        "Backend Engineer",
		Requirements: models.JobRequirements{Skills: []string{"Node.js"}},
		Status:       models.JobStatusActive,
	}
	require.True(t, spec.Matches(job))

	raw, err := json.Marshal(BuildElasticsearchQuery(spec))
	require.NoError(t, err)
	var q map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &q))
	filter := q["bool"].(map[string]interface{})["filter"].([]interface{})

	// status, experience, any-of
	require.Len(t, filter, 3)
	experience := filter[1].(map[string]interface{})["bool"].(map[string]interface{})
	assert.EqualValues(t, 1, experience["minimum_should_match"])
	options := experience["should"].([]interface{})
	require.Len(t, options, 2)
	assert.EqualValues(t, 0, options[0].(map[string]interface{})["range"].(map[string]interface{})["experience_years"].(map[string]interface{})["lte"])
	missing := options[1].(map[string]interface{})["bool"].(map[string]interface{})["must_not"].([]interface{})
	assert.Equal(t, "experience_years", missing[0].(map[string]interface{})["exists"].(map[string]interface{})["field"],
		"documents without experience_years must still qualify")

	patterns := map[string][]string{}
	wildcardClauses(filter[2], patterns)
	assert.Equal(t, []string{"*node*"}, patterns["required_skills.wildcard"],
		"substring match on the whole skill value, not analysed tokens")
	for field := range patterns {
		assert.True(t, strings.HasSuffix(field, ".wildcard"), field)
	}
}

// ==========================
// EnsureIndex
// ==========================

func TestEnsureIndex(t *testing.T) {
	tests := []struct {
		name        string
		exists      bool
		wantCreated bool
	}{
		{"creates missing index", false, true},
		{"keeps existing index", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created map[string]interface{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Elastic-Product", "Elasticsearch")
				w.Header().Set("Content-Type", "application/json")
				switch {
				case r.Method == http.MethodHead && r.URL.Path == "/jobs":
					if !tt.exists {
						w.WriteHeader(http.StatusNotFound)
					}
				case r.Method == http.MethodPut && r.URL.Path == "/jobs":
					_ = json.NewDecoder(r.Body).Decode(&created)
					_, _ = w.Write([]byte(`{"acknowledged":true,"index":"jobs"}`))
				default:
					w.WriteHeader(http.StatusBadRequest)
				}
			}))
			t.Cleanup(srv.Close)

			client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
			require.NoError(t, err)
			m := NewElasticsearchMatcher(client, "jobs", logger.NewTestLogger(t))

			require.NoError(t, m.EnsureIndex(context.Background()))
			if !tt.wantCreated {
				assert.Nil(t, created)
				return
			}
			require.NotNil(t, created)
			props := created["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
			skills := props["required_skills"].(map[string]interface{})["fields"].(map[string]interface{})
			assert.Equal(t, "wildcard", skills["wildcard"].(map[string]interface{})["type"])
			assert.Equal(t, "integer", props["experience_years"].(map[string]interface{})["type"])
		})
	}
}
