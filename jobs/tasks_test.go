package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/heytrack/heytrack/internal/automation"
)

func TestNewWorkflowEventTask(t *testing.T) {
	evt := automation.NewEvent(automation.EventOrderCompleted, 1, "order", 7, "Pesanan selesai", map[string]any{"amount": 150000.0})

	task, err := NewWorkflowEventTask(evt)
	require.NoError(t, err)
	require.Equal(t, TaskWorkflowEvent, task.Type())

	var payload WorkflowEventPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, evt.ID, payload.Event.ID)
	require.Equal(t, automation.EventOrderCompleted, payload.Event.Name)
	require.Equal(t, int64(7), payload.Event.EntityID)
}

func TestWorkflowEventJobRejectsBadPayload(t *testing.T) {
	job := NewWorkflowEventJob(NewNotificationStore(nil), nil, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskWorkflowEvent, []byte("not-json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	// Events without an owner are dropped, not retried.
	task, buildErr := NewWorkflowEventTask(automation.Event{Name: "order.completed"})
	require.NoError(t, buildErr)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWorkflowEventJobNotConfigured(t *testing.T) {
	var job *WorkflowEventJob
	err := job.Handle(context.Background(), asynq.NewTask(TaskWorkflowEvent, nil))
	require.Error(t, err)
}
