package tickalertscheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jobmatch-workers/internal/common/camunda"
	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/common/metrics"
	"jobmatch-workers/internal/scheduler"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "tick-alert-scheduler"
)

type Handler struct {
	config *Config
	ticker scheduler.Ticker
	clock  scheduler.Clock
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, ticker scheduler.Ticker, clock scheduler.Clock, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		ticker: ticker,
		clock:  clock,
		errors: errors.NewErrorHandler(log),
		logger: log,
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
	if job.Variables != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			h.errors.HandleJobError(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
			return
		}
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
	now := h.clock.Now()
	if input.Now != "" {
		parsed, err := time.Parse(time.RFC3339, input.Now)
		if err != nil {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("now: %v", err))
		}
		now = parsed.UTC()
	}

	metrics.SchedulerTicks.WithLabelValues("zeebe").Inc()
	result, err := h.ticker.Tick(ctx, now)
	if err != nil {
		return nil, err
	}

	failures := result.Failures
	if failures == nil {
		failures = []scheduler.Failure{}
	}
	return &Output{
		TickedAt:  now.Format(time.RFC3339),
		Processed: result.Processed,
		Notified:  result.Notified,
		Skipped:   result.Skipped,
		Failures:  failures,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
