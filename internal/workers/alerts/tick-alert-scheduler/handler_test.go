package tickalertscheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingTicker struct {
	ticks  []time.Time
	result scheduler.TickResult
	err    error
}

func (r *recordingTicker) Tick(ctx context.Context, now time.Time) (scheduler.TickResult, error) {
	r.ticks = append(r.ticks, now)
	return r.result, r.err
}

var clockNow = time.Date(2026, 7, 14, 6, 0, 0, 0, time.UTC)

func setupHandler(t *testing.T, ticker *recordingTicker) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, ticker, fixedClock{now: clockNow}, logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_UsesClock(t *testing.T) {
	ticker := &recordingTicker{result: scheduler.TickResult{
		Processed: 3,
		Notified:  1,
		Skipped:   4,
		Failures:  []scheduler.Failure{{AlertID: "alert-2", Error: "StandardError[CATALOG_TIMEOUT]: Job catalog query timeout"}},
	}}
	h := setupHandler(t, ticker)

	output, err := h.Execute(context.Background(), &Input{})

	require.NoError(t, err)
	assert.Equal(t, []time.Time{clockNow}, ticker.ticks)
	assert.Equal(t, "2026-07-14T06:00:00Z", output.TickedAt)
	assert.Equal(t, 3, output.Processed)
	assert.Equal(t, 1, output.Notified)
	assert.Equal(t, 4, output.Skipped)
	require.Len(t, output.Failures, 1)
	assert.Equal(t, "alert-2", output.Failures[0].AlertID)
}

func TestHandler_Execute_NowOverride(t *testing.T) {
	ticker := &recordingTicker{}
	h := setupHandler(t, ticker)

	output, err := h.Execute(context.Background(), &Input{Now: "2026-07-14T08:30:00+02:00"})

	require.NoError(t, err)
	want := time.Date(2026, 7, 14, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, []time.Time{want}, ticker.ticks)
	assert.Equal(t, "2026-07-14T06:30:00Z", output.TickedAt)
	assert.NotNil(t, output.Failures, "failures serialise as an empty list")
	assert.Empty(t, output.Failures)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_InvalidNow(t *testing.T) {
	ticker := &recordingTicker{}
	h := setupHandler(t, ticker)

	_, err := h.Execute(context.Background(), &Input{Now: "yesterday"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.Normalize(err).Code)
	assert.Empty(t, ticker.ticks)
}

func TestHandler_Execute_TickFailure(t *testing.T) {
	ticker := &recordingTicker{err: apperrors.NewSchedulerTickFailedError(errors.New("list alerts: connection refused"))}
	h := setupHandler(t, ticker)

	output, err := h.Execute(context.Background(), &Input{})

	require.Error(t, err)
	assert.Nil(t, output)
	stdErr := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeSchedulerTickFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}
