package registry

import (
	"testing"

	"jobmatch-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()
	require.Len(t, reg.Activities, 5)

	seen := map[string]bool{}
	for _, a := range reg.Activities {
		assert.False(t, seen[a.TaskType], "duplicate task type %s", a.TaskType)
		seen[a.TaskType] = true
		assert.NotEmpty(t, a.ErrorCodes, a.TaskType)
		for _, code := range a.ErrorCodes {
			_, mapped := errors.BPMNErrorMapping[code]
			assert.True(t, mapped, "%s has no BPMN mapping", code)
		}
	}

	a, ok := reg.Lookup("create-job-alert")
	require.True(t, ok)
	assert.Contains(t, a.ErrorCodes, errors.ErrCodeAlertValidationFailed)
}

func TestUnknown(t *testing.T) {
	reg := Default()
	got := reg.Unknown([]string{"tick-alert-scheduler", "send-notification", "auth-logout"})
	assert.Equal(t, []string{"auth-logout", "send-notification"}, got)
	assert.Empty(t, reg.Unknown(nil))
}
