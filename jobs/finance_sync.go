package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/heytrack/heytrack/internal/finance"
	jobmetrics "github.com/heytrack/heytrack/internal/jobs"
)

const (
	// TaskFinanceReconcile backfills financial records for delivered orders
	// and purchases that missed their synchronous write.
	TaskFinanceReconcile = "finance:reconcile"
)

// FinanceReconcilePayload carries scheduling metadata.
type FinanceReconcilePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewFinanceReconcileTask constructs an Asynq task for the reconcile sweep.
func NewFinanceReconcileTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(FinanceReconcilePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFinanceReconcile, body, asynq.Queue(QueueDefault)), nil
}

// FinanceReconcileJob runs the compensating sweep over unsynced entities.
type FinanceReconcileJob struct {
	Finance *finance.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewFinanceReconcileJob wires dependencies for the reconcile handler.
func NewFinanceReconcileJob(fin *finance.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *FinanceReconcileJob {
	return &FinanceReconcileJob{Finance: fin, Logger: logger, Metrics: metrics}
}

// Handle processes TaskFinanceReconcile tasks.
func (j *FinanceReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Finance == nil {
		return errors.New("finance reconcile: handler not configured")
	}
	var payload FinanceReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskFinanceReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting finance reconcile sweep")

	report, err := j.Finance.AutoSyncAll(ctx)
	if err != nil {
		resultErr = err
		logger.Error("finance reconcile sweep", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed finance reconcile sweep",
		slog.Int("orders_synced", report.OrdersSynced),
		slog.Int("purchases_synced", report.PurchasesSynced),
		slog.Int("failed", report.Failed))
	for _, msg := range report.Errors {
		logger.Warn("finance reconcile skipped entity", slog.String("detail", msg))
	}
	return resultErr
}

func (j *FinanceReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *FinanceReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
