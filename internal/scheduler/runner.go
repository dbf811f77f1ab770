package scheduler

import (
	"context"
	"fmt"
	"time"

	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/common/metrics"

	"github.com/robfig/cron/v3"
)

// Ticker is the part of Scheduler the Runner drives.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) (TickResult, error)
}

// Runner fires ticks on a cron spec. A tick still running when the next one
// is due causes that one to be skipped.
type Runner struct {
	cron   *cron.Cron
	ticker Ticker
	clock  Clock
	spec   string
	logger logger.Logger
}

func NewRunner(spec string, ticker Ticker, clock Clock, log logger.Logger) *Runner {
	log = log.WithFields(map[string]interface{}{"component": "scheduler_runner"})
	cl := cronLogger{log: log}
	return &Runner{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		ticker: ticker,
		clock:  clock,
		spec:   spec,
		logger: log,
	}
}

func (r *Runner) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.spec, func() { r.run(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	r.cron.Start()
	r.logger.Info("scheduler started", map[string]interface{}{"spec": r.spec})
	return nil
}

// Stop stops scheduling and waits for a running tick until ctx is done.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		r.logger.Warn("scheduler stop timed out with a tick in flight", nil)
	}
}

func (r *Runner) run(ctx context.Context) {
	metrics.SchedulerTicks.WithLabelValues("cron").Inc()

	result, err := r.ticker.Tick(ctx, r.clock.Now())
	if err != nil {
		r.logger.Error("scheduler tick failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(result.Failures) > 0 {
		r.logger.Warn("scheduler tick had alert failures", map[string]interface{}{
			"failures": result.Failures,
		})
	}
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, kvFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvFields(keysAndValues)
	fields["error"] = err.Error()
	c.log.Error("cron: "+msg, fields)
}

func kvFields(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
