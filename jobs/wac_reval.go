package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/heytrack/heytrack/internal/inventory"
	jobmetrics "github.com/heytrack/heytrack/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	// TaskWacRevaluation triggers the nightly weighted-average-cost sweep.
	TaskWacRevaluation = "inventory:wac_revaluation"
)

// WacRevaluationPayload carries scheduling metadata.
type WacRevaluationPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewWacRevaluationTask constructs an Asynq task for the revaluation sweep.
func NewWacRevaluationTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(WacRevaluationPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWacRevaluation, body, asynq.Queue(QueueDefault)), nil
}

// WacRevaluationJob re-derives weighted average costs for every account.
type WacRevaluationJob struct {
	Inventory *inventory.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewWacRevaluationJob wires dependencies for the revaluation handler.
func NewWacRevaluationJob(inv *inventory.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *WacRevaluationJob {
	return &WacRevaluationJob{Inventory: inv, Logger: logger, Metrics: metrics}
}

// Handle processes TaskWacRevaluation tasks.
func (j *WacRevaluationJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("wac revaluation: handler not configured")
	}
	var payload WacRevaluationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskWacRevaluation)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting wac revaluation sweep")

	summary, err := j.Inventory.RecalculateAllTenants(ctx)
	if err != nil {
		resultErr = err
		logger.Error("wac revaluation sweep", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed wac revaluation sweep",
		slog.Int("processed", summary.Processed),
		slog.Int("updated", summary.Updated),
		slog.Int("failed", summary.Failed))
	for _, msg := range summary.Errors {
		logger.Warn("wac revaluation skipped ingredient", slog.String("detail", msg))
	}
	return resultErr
}

func (j *WacRevaluationJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *WacRevaluationJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
