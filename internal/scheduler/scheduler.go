// Package scheduler evaluates saved job alerts on a schedule and notifies
// users about new matching jobs.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"jobmatch-workers/internal/alerts"
	"jobmatch-workers/internal/catalog"
	"jobmatch-workers/internal/common/config"
	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/common/metrics"
	"jobmatch-workers/internal/common/observability"
	"jobmatch-workers/internal/models"
	"jobmatch-workers/internal/notification"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
)

// AlertRepository is the alert storage the scheduler reads and advances.
type AlertRepository interface {
	ListActive(ctx context.Context) ([]models.AlertDefinition, error)
	Get(ctx context.Context, alertID string) (*models.AlertDefinition, error)
	// Advance sets last_checked (and last_notification_sent when notified)
	// to now if last_checked still equals previous.
	Advance(ctx context.Context, alertID string, previous *time.Time, now time.Time, notified bool) (bool, error)
}

type Config struct {
	Concurrency            int
	AlertTimeout           time.Duration
	LockTTL                time.Duration
	MaxJobsPerNotification int
	BreakerMaxFailures     uint32
	BreakerOpenTimeout     time.Duration
	BreakerHalfOpenReqs    uint32
}

func ConfigFrom(cfg config.SchedulerConfig) Config {
	return Config{
		Concurrency:            cfg.Concurrency,
		AlertTimeout:           config.GetDuration(cfg.AlertTimeout),
		LockTTL:                config.GetDuration(cfg.LockTTL),
		MaxJobsPerNotification: cfg.MaxJobsPerNotification,
		BreakerMaxFailures:     cfg.Breaker.MaxFailures,
		BreakerOpenTimeout:     config.GetDuration(cfg.Breaker.OpenTimeout),
		BreakerHalfOpenReqs:    cfg.Breaker.HalfOpenReqs,
	}
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.AlertTimeout <= 0 {
		c.AlertTimeout = 10 * time.Second
	}
	// the lock must outlive the evaluation it guards
	if c.LockTTL < c.AlertTimeout {
		c.LockTTL = 2 * c.AlertTimeout
	}
	if c.MaxJobsPerNotification < 1 {
		c.MaxJobsPerNotification = catalog.DefaultPageSize
	}
	if c.BreakerMaxFailures == 0 {
		c.BreakerMaxFailures = 5
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = 30 * time.Second
	}
	if c.BreakerHalfOpenReqs == 0 {
		c.BreakerHalfOpenReqs = 1
	}
	return c
}

type Failure struct {
	AlertID string `json:"alertId"`
	Error   string `json:"error"`
}

// TickResult summarises one pass over the active alerts. Processed counts
// alerts evaluated and advanced; Skipped counts alerts that were not due,
// locked by another evaluator, or advanced concurrently.
type TickResult struct {
	Processed int       `json:"processed"`
	Notified  int       `json:"notified"`
	Skipped   int       `json:"skipped"`
	Failures  []Failure `json:"failures"`
}

type outcome string

const (
	outcomeNotified outcome = "notified"
	outcomeChecked  outcome = "checked"
	outcomeSkipped  outcome = "skipped"
	outcomeFailed   outcome = "failed"
)

type matchPage struct {
	jobs  []models.JobPosting
	total int
}

type Scheduler struct {
	config     Config
	alerts     AlertRepository
	matcher    catalog.Matcher
	dispatcher notification.Dispatcher
	locker     Locker
	breaker    *gobreaker.CircuitBreaker[matchPage]
	obs        *observability.Observability
	logger     logger.Logger
}

// New builds a Scheduler. A nil locker falls back to a LocalLocker and a
// nil obs to a no-op provider.
func New(
	cfg Config,
	alertRepo AlertRepository,
	matcher catalog.Matcher,
	dispatcher notification.Dispatcher,
	locker Locker,
	obs *observability.Observability,
	log logger.Logger,
) *Scheduler {
	cfg = cfg.withDefaults()
	if locker == nil {
		locker = NewLocalLocker()
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	log = log.WithFields(map[string]interface{}{"component": "alert_scheduler"})

	breaker := gobreaker.NewCircuitBreaker[matchPage](gobreaker.Settings{
		Name:        "catalog-" + matcher.Backend(),
		MaxRequests: cfg.BreakerHalfOpenReqs,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("catalog circuit breaker state changed", map[string]interface{}{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})

	return &Scheduler{
		config:     cfg,
		alerts:     alertRepo,
		matcher:    matcher,
		dispatcher: dispatcher,
		locker:     locker,
		breaker:    breaker,
		obs:        obs,
		logger:     log,
	}
}

// Tick evaluates every due active alert once. Per-alert errors are collected
// in the result; only a failure to list alerts fails the whole tick.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (TickResult, error) {
	start := time.Now()
	defer func() { metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds()) }()

	ctx, span := s.obs.StartSpan(ctx, "alert-scheduler.tick")
	defer span.End()

	active, err := s.alerts.ListActive(ctx)
	if err != nil {
		return TickResult{}, errors.NewSchedulerTickFailedError(err)
	}

	type evaluation struct {
		outcome outcome
		err     error
	}
	results := make([]evaluation, len(active))
	sem := make(chan struct{}, s.config.Concurrency)
	var wg sync.WaitGroup

	for i, alert := range active {
		if !IsDue(alert, now) {
			results[i] = evaluation{outcome: outcomeSkipped}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, alert models.AlertDefinition) {
			defer wg.Done()
			defer func() { <-sem }()
			o, err := s.evaluate(ctx, alert, now)
			results[i] = evaluation{outcome: o, err: err}
		}(i, alert)
	}
	wg.Wait()

	result := TickResult{Failures: []Failure{}}
	for i, r := range results {
		metrics.SchedulerAlerts.WithLabelValues(string(r.outcome)).Inc()
		s.obs.RecordAlertEvaluated(ctx, string(r.outcome))

		switch r.outcome {
		case outcomeNotified:
			result.Processed++
			result.Notified++
		case outcomeChecked:
			result.Processed++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failures = append(result.Failures, Failure{AlertID: active[i].ID, Error: r.err.Error()})
			s.logger.Error("alert evaluation failed", map[string]interface{}{
				"alertId": active[i].ID,
				"error":   r.err.Error(),
			})
		}
	}

	span.SetAttributes(
		attribute.Int("alerts.active", len(active)),
		attribute.Int("alerts.processed", result.Processed),
		attribute.Int("alerts.failed", len(result.Failures)),
	)
	s.logger.Info("scheduler tick completed", map[string]interface{}{
		"active":      len(active),
		"processed":   result.Processed,
		"notified":    result.Notified,
		"skipped":     result.Skipped,
		"failures":    len(result.Failures),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (s *Scheduler) evaluate(ctx context.Context, alert models.AlertDefinition, now time.Time) (outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.AlertTimeout)
	defer cancel()

	release, acquired, err := s.locker.Acquire(ctx, alertLockKey(alert.ID), s.config.LockTTL)
	if err != nil {
		return outcomeFailed, fmt.Errorf("acquire alert lock: %w", err)
	}
	if !acquired {
		s.logger.Debug("alert locked by another evaluator", map[string]interface{}{"alertId": alert.ID})
		return outcomeSkipped, nil
	}
	defer release()

	// The listed snapshot may be stale once another evaluator has advanced
	// the alert, so due-ness is decided on the row read under the lock.
	current, err := s.alerts.Get(ctx, alert.ID)
	if err != nil {
		if isAlertNotFound(err) {
			return outcomeSkipped, nil
		}
		return outcomeFailed, fmt.Errorf("reload alert: %w", err)
	}
	if !current.IsActive || !IsDue(*current, now) ||
		(current.LastChecked != nil && !now.After(*current.LastChecked)) {
		s.logger.Debug("alert no longer due", map[string]interface{}{"alertId": alert.ID})
		return outcomeSkipped, nil
	}
	alert = *current

	spec := alerts.BuildFilter(alert)
	page, err := s.breaker.Execute(func() (matchPage, error) {
		jobs, total, err := s.matcher.Match(ctx, spec, 1, s.config.MaxJobsPerNotification)
		return matchPage{jobs: jobs, total: total}, err
	})
	if err != nil {
		return outcomeFailed, matchError(s.matcher.Backend(), err)
	}

	notified := false
	if page.total > 0 {
		if err := s.notify(ctx, alert, page, now); err != nil {
			return outcomeFailed, err
		}
		notified = true
	}

	won, err := s.alerts.Advance(ctx, alert.ID, alert.LastChecked, now, notified)
	if err != nil {
		return outcomeFailed, fmt.Errorf("advance alert: %w", err)
	}
	if !won {
		s.logger.Warn("alert advanced concurrently", map[string]interface{}{
			"alertId":  alert.ID,
			"notified": notified,
		})
		return outcomeSkipped, nil
	}

	if notified {
		return outcomeNotified, nil
	}
	return outcomeChecked, nil
}

// notify sends one summary notification for the whole match batch.
func (s *Scheduler) notify(ctx context.Context, alert models.AlertDefinition, page matchPage, now time.Time) error {
	batch := models.MatchBatchResult{
		AlertID:     alert.ID,
		JobIDs:      make([]string, 0, len(page.jobs)),
		Count:       page.total,
		GeneratedAt: now,
	}
	for _, j := range page.jobs {
		batch.JobIDs = append(batch.JobIDs, j.ID)
	}

	title, message, _ := notification.RenderTemplate(models.NotificationTypeJobAlert, map[string]interface{}{
		"count":     batch.Count,
		"alertName": alert.Name,
	})
	data := map[string]interface{}{
		"alertId":     batch.AlertID,
		"alertName":   alert.Name,
		"count":       batch.Count,
		"jobIds":      batch.JobIDs,
		"generatedAt": batch.GeneratedAt.Format(time.RFC3339),
	}

	if err := s.dispatcher.Notify(ctx, alert.UserID, models.NotificationTypeJobAlert, title, message, data); err != nil {
		return fmt.Errorf("notify user %s: %w", alert.UserID, err)
	}
	return nil
}

func isAlertNotFound(err error) bool {
	var stdErr *errors.StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == errors.ErrCodeAlertNotFound
}

func matchError(backend string, err error) error {
	switch {
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return errors.NewCatalogUnavailableError(err)
	default:
		return catalog.StandardError(backend, err)
	}
}
