package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"jobmatch-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig:       &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}}
}

// ==========================
// ExecuteWithRetry
// ==========================

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	calls := 0
	err := testClient().ExecuteWithRetry(context.Background(), "topology", func(context.Context) error {
		calls++
		if calls < 2 {
			return stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetry_MapsFinalError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  errors.ErrorCode
		wantCalls int
	}{
		{"timeout exhausts retries", stderrors.New("context deadline exceeded"), "TIMEOUT_ERROR", 3},
		{"not found is not retried", stderrors.New("process not found"), "RESOURCE_NOT_FOUND", 1},
		{"other errors are not retried", stderrors.New("invalid argument"), "EXTERNAL_SERVICE_ERROR", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := testClient().ExecuteWithRetry(context.Background(), "topology", func(context.Context) error {
				calls++
				return tt.err
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.Normalize(err).Code)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestExecuteWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient()
	c.config.RetryConfig.BaseDelay = time.Second
	err := c.ExecuteWithRetry(ctx, "topology", func(context.Context) error {
		return stderrors.New("unavailable")
	})
	require.ErrorIs(t, err, context.Canceled)
}
