package createjobalert

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"jobmatch-workers/internal/alerts"
	"jobmatch-workers/internal/common/camunda"
	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-job-alert"
)

type AlertCreator interface {
	Create(ctx context.Context, alert *models.AlertDefinition) error
}

type Handler struct {
	config *Config
	alerts AlertCreator
	errors *errors.ErrorHandler
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, alertStore AlertCreator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		alerts: alertStore,
		errors: errors.NewErrorHandler(log),
		logger: log,
		now:    time.Now,
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
	alert, err := alerts.NewAlertDefinition(input.AlertInput, h.now())
	if stderrors.Is(err, alerts.ErrInvalidAlert) {
		return nil, errors.NewAlertValidationFailedError(err.Error())
	}
	if err != nil {
		return nil, err
	}

	if err := h.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}

	h.logger.Info("job alert created", map[string]interface{}{
		"alertId":   alert.ID,
		"userId":    alert.UserID,
		"keywords":  alert.Keywords,
		"frequency": alert.Frequency,
	})

	return &Output{
		AlertID:   alert.ID,
		Name:      alert.Name,
		Keywords:  alert.Keywords,
		Frequency: string(alert.Frequency),
		IsActive:  alert.IsActive,
		CreatedAt: alert.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
