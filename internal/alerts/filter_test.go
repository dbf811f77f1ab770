package alerts

import (
	"regexp"
	"testing"

	"jobmatch-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobType(t models.JobType) *models.JobType { return &t }

func level(l models.ExperienceLevel) *models.ExperienceLevel { return &l }

func activeJob(title string) models.JobPosting {
	return models.JobPosting{
		ID:       title,
		Title:    title,
		Company:  "Initech",
		Location: "Berlin",
		JobType:  models.JobTypeFullTime,
		Status:   models.JobStatusActive,
	}
}

// ==========================
// BuildFilter
// ==========================

func TestBuildFilter_Fields(t *testing.T) {
	alert := models.AlertDefinition{
		Keywords:         []string{"C++", " c++ ", "Node.js"},
		Location:         "Berlin",
		JobType:          jobType(models.JobTypeContract),
		ExperienceLevel:  level(models.ExperienceMid),
		SalaryMin:        intPtr(40000),
		RemoteWork:       true,
		IncludeCompanies: []string{"Initech"},
	}

	spec := BuildFilter(alert)

	assert.Equal(t, models.JobStatusActive, spec.Status)
	assert.Equal(t, []string{"C++", "Node.js"}, spec.Keywords)
	assert.Equal(t, `C\+\+|Node\.js`, spec.KeywordPattern)
	assert.Equal(t, KeywordFields, spec.KeywordFields)
	assert.Equal(t, "Berlin", spec.Location)
	require.NotNil(t, spec.MaxExperience)
	assert.Equal(t, 3, *spec.MaxExperience)
	assert.True(t, spec.RemoteFallback)
	require.Len(t, spec.AnyOf, 2)
	assert.Equal(t, ClauseKeywords, spec.AnyOf[0].Kind)
	assert.Equal(t, ClauseLocationContains, spec.AnyOf[1].Kind)
	assert.Equal(t, RemoteTerms, spec.AnyOf[1].Terms)
}

func TestBuildFilter_ExperienceMapping(t *testing.T) {
	for lvl, want := range map[models.ExperienceLevel]int{
		models.ExperienceEntry:  0,
		models.ExperienceMid:    3,
		models.ExperienceSenior: 5,
		models.ExperienceLead:   8,
	} {
		spec := BuildFilter(models.AlertDefinition{Keywords: []string{"x"}, ExperienceLevel: level(lvl)})
		require.NotNil(t, spec.MaxExperience, lvl)
		assert.Equal(t, want, *spec.MaxExperience, lvl)
	}

	spec := BuildFilter(models.AlertDefinition{Keywords: []string{"x"}, ExperienceLevel: level("guru")})
	assert.Nil(t, spec.MaxExperience)
}

func TestBuildFilter_PatternIsEscaped(t *testing.T) {
	hostile := []string{"a.*", "(x|y)", "[z]", `\d+`, "$^"}
	spec := BuildFilter(models.AlertDefinition{Keywords: hostile})

	re, err := regexp.Compile("(?i)" + spec.KeywordPattern)
	require.NoError(t, err)

	assert.False(t, re.MatchString("abc"), "wildcards must be literal")
	assert.False(t, re.MatchString("x"), "groups must be literal")
	assert.True(t, re.MatchString("prefix a.* suffix"))
	assert.True(t, re.MatchString(`uses \D+ literally`))
}

// ==========================
// FilterSpec.Matches
// ==========================

func TestMatches_KeywordOrRemoteIsUnion(t *testing.T) {
	spec := BuildFilter(models.AlertDefinition{Keywords: []string{"golang"}, RemoteWork: true})

	keywordOnly := activeJob("Golang Engineer")
	remoteOnly := activeJob("Java Engineer")
	remoteOnly.Location = "Remote (EU)"
	wfh := activeJob("Designer")
	wfh.Location = "Work From Home"
	neither := activeJob("Java Engineer")

	assert.True(t, spec.Matches(keywordOnly))
	assert.True(t, spec.Matches(remoteOnly))
	assert.True(t, spec.Matches(wfh))
	assert.False(t, spec.Matches(neither))
}

func TestMatches_KeywordFields(t *testing.T) {
	spec := BuildFilter(models.AlertDefinition{Keywords: []string{"kubernetes"}})

	inDescription := activeJob("Platform Engineer")
	inDescription.Description = "Operate Kubernetes clusters"
	inSkills := activeJob("SRE")
	inSkills.Requirements.Skills = []string{"Kubernetes"}
	inLocation := activeJob("SRE")
	inLocation.Location = "Kubernetes City"

	assert.True(t, spec.Matches(inDescription))
	assert.True(t, spec.Matches(inSkills))
	assert.False(t, spec.Matches(inLocation), "location is not a keyword field")
}

func TestMatches_RequirementsPerValue(t *testing.T) {
	job := activeJob("Backend Engineer")
	job.Requirements.Text = "Rust"
	job.Requirements.Skills = []string{"Node.js", "Go"}

	assert.True(t, BuildFilter(models.AlertDefinition{Keywords: []string{"node"}}).Matches(job), "substring of a skill")
	assert.True(t, BuildFilter(models.AlertDefinition{Keywords: []string{"rus"}}).Matches(job), "substring of the text")
	assert.False(t, BuildFilter(models.AlertDefinition{Keywords: []string{"rust node"}}).Matches(job),
		"a term never spans two values")
}

func TestMatches_Constraints(t *testing.T) {
	tests := []struct {
		name  string
		alert models.AlertDefinition
		job   func() models.JobPosting
		want  bool
	}{
		{
			name:  "inactive job excluded",
			alert: models.AlertDefinition{Keywords: []string{"go"}},
			job: func() models.JobPosting {
				j := activeJob("Go Dev")
				j.Status = models.JobStatusClosed
				return j
			},
		},
		{
			name:  "location substring case-insensitive",
			alert: models.AlertDefinition{Keywords: []string{"go"}, Location: "berlin"},
			job: func() models.JobPosting {
				j := activeJob("Go Dev")
				j.Location = "Berlin Mitte"
				return j
			},
			want: true,
		},
		{
			name:  "job type must be exact",
			alert: models.AlertDefinition{Keywords: []string{"go"}, JobType: jobType(models.JobTypePartTime)},
			job:   func() models.JobPosting { return activeJob("Go Dev") },
		},
		{
			name:  "experience above level excluded",
			alert: models.AlertDefinition{Keywords: []string{"go"}, ExperienceLevel: level(models.ExperienceEntry)},
			job: func() models.JobPosting {
				j := activeJob("Go Dev")
				j.Requirements.ExperienceYears = 1
				return j
			},
		},
		{
			name:  "salary overlap accepted",
			alert: models.AlertDefinition{Keywords: []string{"go"}, SalaryMin: intPtr(50000), SalaryMax: intPtr(70000)},
			job: func() models.JobPosting {
				j := activeJob("Go Dev")
				j.Salary = models.SalaryRange{Min: intPtr(65000), Max: intPtr(90000)}
				return j
			},
			want: true,
		},
		{
			name:  "salary entirely below minimum",
			alert: models.AlertDefinition{Keywords: []string{"go"}, SalaryMin: intPtr(50000)},
			job: func() models.JobPosting {
				j := activeJob("Go Dev")
				j.Salary = models.SalaryRange{Min: intPtr(30000), Max: intPtr(45000)}
				return j
			},
		},
		{
			name:  "unknown salary excluded when bounded",
			alert: models.AlertDefinition{Keywords: []string{"go"}, SalaryMax: intPtr(50000)},
			job:   func() models.JobPosting { return activeJob("Go Dev") },
		},
		{
			name:  "excluded company",
			alert: models.AlertDefinition{Keywords: []string{"go"}, ExcludeCompanies: []string{"initech"}},
			job:   func() models.JobPosting { return activeJob("Go Dev") },
		},
		{
			name:  "included company",
			alert: models.AlertDefinition{Keywords: []string{"go"}, IncludeCompanies: []string{"INITECH", "Hooli"}},
			job:   func() models.JobPosting { return activeJob("Go Dev") },
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilter(tt.alert).Matches(tt.job()))
		})
	}
}
