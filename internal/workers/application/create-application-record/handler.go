package createapplicationrecord

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jobmatch-workers/internal/common/camunda"
	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "create-application-record"
)

type ApplicationRepository interface {
	Exists(ctx context.Context, candidateID, jobID string) (bool, error)
	Create(ctx context.Context, app *models.Application) error
}

type MatchCalculator interface {
	ComputeApplicationMatch(ctx context.Context, candidateID, jobID string) *int
}

type Handler struct {
	config       *Config
	applications ApplicationRepository
	matcher      MatchCalculator
	errors       *errors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(config *Config, applications ApplicationRepository, matcher MatchCalculator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		applications: applications,
		matcher:      matcher,
		errors:       errors.NewErrorHandler(log),
		logger:       log,
		now:          time.Now,
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
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.CandidateID) == "" || strings.TrimSpace(input.JobID) == "" {
		return nil, errors.NewInvalidInputError("candidateId and jobId are required")
	}

	exists, err := h.applications.Exists(ctx, input.CandidateID, input.JobID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewDuplicateApplicationError(input.CandidateID, input.JobID)
	}

	// A nil percentage means one of the records could not be loaded; the
	// application is created regardless.
	pct := h.matcher.ComputeApplicationMatch(ctx, input.CandidateID, input.JobID)

	app := &models.Application{
		ID:              uuid.New().String(),
		CandidateID:     input.CandidateID,
		JobID:           input.JobID,
		CoverLetter:     input.CoverLetter,
		MatchPercentage: pct,
		Status:          models.ApplicationStatusPending,
		CreatedAt:       h.now().UTC(),
	}
	if err := h.applications.Create(ctx, app); err != nil {
		return nil, err
	}

	h.logger.Info("application record created", map[string]interface{}{
		"applicationId":   app.ID,
		"candidateId":     app.CandidateID,
		"jobId":           app.JobID,
		"matchPercentage": pct,
	})

	return &Output{
		ApplicationID:     app.ID,
		ApplicationStatus: string(app.Status),
		MatchPercentage:   pct,
		CreatedAt:         app.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
