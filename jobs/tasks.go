package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/heytrack/heytrack/internal/automation"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWorkflowEvent delivers a committed domain event to the workflow engine.
	TaskWorkflowEvent = "workflow:event"
)

// WorkflowEventPayload wraps the automation event on the wire.
type WorkflowEventPayload struct {
	Event automation.Event `json:"event"`
}

// NewWorkflowEventTask constructs an Asynq task carrying a workflow event.
func NewWorkflowEventTask(evt automation.Event) (*asynq.Task, error) {
	data, err := json.Marshal(WorkflowEventPayload{Event: evt})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWorkflowEvent, data), nil
}

// Client submits jobs to the queue. It satisfies automation.Queue so the
// domain services can hand events off without knowing about Asynq.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueWorkflowEvent enqueues a workflow event for asynchronous delivery.
func (c *Client) EnqueueWorkflowEvent(ctx context.Context, evt automation.Event) error {
	task, err := NewWorkflowEventTask(evt)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
