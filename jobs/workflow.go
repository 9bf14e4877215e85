package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/heytrack/heytrack/internal/jobs"
	"github.com/heytrack/heytrack/internal/shared"
)

// WorkflowEventJob turns committed domain events into in-app notifications.
type WorkflowEventJob struct {
	Store       *NotificationStore
	Idempotency *shared.IdempotencyStore
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewWorkflowEventJob wires dependencies for the workflow handler.
func NewWorkflowEventJob(store *NotificationStore, idem *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *WorkflowEventJob {
	return &WorkflowEventJob{Store: store, Idempotency: idem, Logger: logger, Metrics: metrics}
}

// Handle processes TaskWorkflowEvent tasks.
func (j *WorkflowEventJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("workflow event: handler not configured")
	}
	var payload WorkflowEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	evt := payload.Event
	if evt.Name == "" || evt.UserID == 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskWorkflowEvent)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	// Dedupe redeliveries by event id so a retried task never writes twice.
	if j.Idempotency != nil && evt.ID != uuid.Nil {
		err := j.Idempotency.CheckAndInsert(ctx, evt.ID.String(), "workflow")
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			j.logger().Debug("workflow event already delivered", slog.String("event_id", evt.ID.String()))
			return nil
		}
		if err != nil {
			resultErr = err
			return resultErr
		}
	}

	id, err := j.Store.Insert(ctx, Notification{
		UserID:     evt.UserID,
		Event:      evt.Name,
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Message:    evt.Message,
		Meta:       evt.Meta,
	})
	if err != nil {
		resultErr = err
		if j.Idempotency != nil && evt.ID != uuid.Nil {
			// Release the key so the retry is not swallowed as a duplicate.
			_ = j.Idempotency.Delete(ctx, evt.ID.String())
		}
		j.logger().Error("persist notification", slog.String("event", evt.Name), slog.Any("error", err))
		return resultErr
	}

	j.metrics().AddNotifications(evt.Name, 1)
	j.logger().Info("workflow event delivered",
		slog.String("event", evt.Name),
		slog.Int64("user_id", evt.UserID),
		slog.Int64("notification_id", id))
	return resultErr
}

func (j *WorkflowEventJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *WorkflowEventJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
