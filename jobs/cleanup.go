package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/heytrack/heytrack/internal/jobs"
	"github.com/heytrack/heytrack/internal/shared"
)

const (
	// TaskRetentionCleanup prunes aged notifications and idempotency keys.
	TaskRetentionCleanup = "maintenance:retention_cleanup"

	notificationRetention = 90 * 24 * time.Hour
	idempotencyRetention  = 30 * 24 * time.Hour
)

// RetentionCleanupPayload carries scheduling metadata.
type RetentionCleanupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewRetentionCleanupTask constructs an Asynq task for the retention sweep.
func NewRetentionCleanupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(RetentionCleanupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetentionCleanup, body, asynq.Queue(QueueDefault)), nil
}

// RetentionCleanupJob drops rows that fell out of their retention window.
type RetentionCleanupJob struct {
	Notifications *NotificationStore
	Idempotency   *shared.IdempotencyStore
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
}

// NewRetentionCleanupJob wires dependencies for the retention handler.
func NewRetentionCleanupJob(notifications *NotificationStore, idem *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *RetentionCleanupJob {
	return &RetentionCleanupJob{Notifications: notifications, Idempotency: idem, Logger: logger, Metrics: metrics}
}

// Handle processes TaskRetentionCleanup tasks.
func (j *RetentionCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Notifications == nil {
		return errors.New("retention cleanup: handler not configured")
	}
	var payload RetentionCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskRetentionCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()

	removed, err := j.Notifications.Cleanup(ctx, notificationRetention)
	if err != nil {
		resultErr = err
		logger.Error("notification cleanup", slog.Any("error", err))
		return resultErr
	}

	if j.Idempotency != nil {
		if err := j.Idempotency.Cleanup(ctx, idempotencyRetention); err != nil {
			resultErr = err
			logger.Error("idempotency cleanup", slog.Any("error", err))
			return resultErr
		}
	}

	logger.Info("retention cleanup done", slog.Int64("notifications_removed", removed))
	return resultErr
}

func (j *RetentionCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *RetentionCleanupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
