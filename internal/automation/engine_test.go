package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubQueue struct {
	events []Event
	err    error
}

func (q *stubQueue) EnqueueWorkflowEvent(ctx context.Context, evt Event) error {
	if q.err != nil {
		return q.err
	}
	q.events = append(q.events, evt)
	return nil
}

func TestTriggerEnqueuesEvent(t *testing.T) {
	queue := &stubQueue{}
	engine := NewEngine(queue, nil, nil)

	engine.Trigger(context.Background(), NewEvent(EventOrderCompleted, 1, "order", 7, "Pesanan selesai", nil))

	require.Len(t, queue.events, 1)
	evt := queue.events[0]
	require.Equal(t, EventOrderCompleted, evt.Name)
	require.Equal(t, int64(1), evt.UserID)
	require.Equal(t, int64(7), evt.EntityID)
	require.NotEmpty(t, evt.ID)
	require.False(t, evt.OccurredAt.IsZero())
}

func TestTriggerSwallowsQueueFailure(t *testing.T) {
	queue := &stubQueue{err: errors.New("redis down")}
	engine := NewEngine(queue, nil, nil)

	// Dispatch is best-effort; the caller never sees the failure.
	engine.Trigger(context.Background(), NewEvent(EventOrderCancelled, 1, "order", 7, "", nil))
	require.Empty(t, queue.events)
}

func TestTriggerAll(t *testing.T) {
	queue := &stubQueue{}
	engine := NewEngine(queue, nil, nil)

	names := WorkflowsForStatus("DELIVERED")
	engine.TriggerAll(context.Background(), names, 1, "order", 7, "Terkirim", map[string]any{"amount": 1000.0})

	require.Len(t, queue.events, 2)
	require.Equal(t, EventOrderCompleted, queue.events[0].Name)
	require.Equal(t, EventOrderStatusChanged, queue.events[1].Name)
}

func TestWorkflowsForStatus(t *testing.T) {
	require.Equal(t, []string{EventOrderCompleted, EventOrderStatusChanged}, WorkflowsForStatus("DELIVERED"))
	require.Equal(t, []string{EventOrderCancelled, EventOrderStatusChanged}, WorkflowsForStatus("CANCELLED"))
	require.Equal(t, []string{EventOrderStatusChanged}, WorkflowsForStatus("CONFIRMED"))
}
