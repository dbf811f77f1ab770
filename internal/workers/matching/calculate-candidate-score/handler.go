package calculatecandidatescore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"jobmatch-workers/internal/common/camunda"
	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "calculate-candidate-score"
)

type ScoreEvaluator interface {
	ApplicationScore(ctx context.Context, applicationID string) (int, matching.ScoreBreakdown, error)
}

type ScoreInvalidator interface {
	InvalidateScore(ctx context.Context, applicationID string) error
}

type Handler struct {
	config      *Config
	evaluator   ScoreEvaluator
	invalidator ScoreInvalidator
	errors      *errors.ErrorHandler
	logger      logger.Logger
}

func NewHandler(config *Config, evaluator ScoreEvaluator, invalidator ScoreInvalidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		evaluator:   evaluator,
		invalidator: invalidator,
		errors:      errors.NewErrorHandler(log),
		logger:      log,
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
	if strings.TrimSpace(input.ApplicationID) == "" {
		return nil, errors.NewInvalidInputError("applicationId is required")
	}

	if input.Recalculate {
		if err := h.invalidator.InvalidateScore(ctx, input.ApplicationID); err != nil {
			return nil, err
		}
	}

	score, breakdown, err := h.evaluator.ApplicationScore(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("candidate score ready", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"score":         score,
		"recalculated":  input.Recalculate,
	})

	return &Output{
		ApplicationID: input.ApplicationID,
		Score:         score,
		Breakdown:     breakdown,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
