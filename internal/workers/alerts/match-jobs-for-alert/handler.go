package matchjobsforalert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jobmatch-workers/internal/alerts"
	"jobmatch-workers/internal/catalog"
	"jobmatch-workers/internal/common/camunda"
	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "match-jobs-for-alert"
)

type AlertLoader interface {
	Get(ctx context.Context, alertID string) (*models.AlertDefinition, error)
}

type Handler struct {
	config  *Config
	alerts  AlertLoader
	matcher catalog.Matcher
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, alertLoader AlertLoader, matcher catalog.Matcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType, "backend": matcher.Backend()})
	return &Handler{
		config:  config,
		alerts:  alertLoader,
		matcher: matcher,
		errors:  errors.NewErrorHandler(log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.AlertID) == "" {
		return nil, errors.NewInvalidInputError("alertId is required")
	}

	alert, err := h.alerts.Get(ctx, input.AlertID)
	if err != nil {
		return nil, err
	}
	spec := alerts.BuildFilter(*alert)

	pageSize := input.PageSize
	if pageSize == 0 {
		pageSize = h.config.DefaultPageSize
	}
	offset, limit := catalog.NormalizePage(input.Page, pageSize)
	output := &Output{
		AlertID:  alert.ID,
		Jobs:     []JobSummary{},
		Page:     offset/limit + 1,
		PageSize: limit,
	}

	if input.CountOnly {
		total, err := h.matcher.Count(ctx, spec)
		if err != nil {
			return nil, catalog.StandardError(h.matcher.Backend(), err)
		}
		output.Total = total
		return output, nil
	}

	jobs, total, err := h.matcher.Match(ctx, spec, output.Page, limit)
	if err != nil {
		return nil, catalog.StandardError(h.matcher.Backend(), err)
	}
	for _, j := range jobs {
		output.Jobs = append(output.Jobs, summarize(j))
	}
	output.Total = total
	output.HasMore = offset+len(jobs) < total

	h.logger.Info("alert matched", map[string]interface{}{
		"alertId":  alert.ID,
		"total":    total,
		"page":     output.Page,
		"returned": len(jobs),
	})
	return output, nil
}

func summarize(j models.JobPosting) JobSummary {
	return JobSummary{
		ID:        j.ID,
		Title:     j.Title,
		Company:   j.Company,
		Location:  j.Location,
		JobType:   string(j.JobType),
		SalaryMin: j.Salary.Min,
		SalaryMax: j.Salary.Max,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
