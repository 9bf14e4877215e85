package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heytrack/heytrack/internal/automation"
	jobmetrics "github.com/heytrack/heytrack/internal/jobs"
)

const (
	// TaskLowStockScan walks active ingredients and raises low-stock events.
	TaskLowStockScan = "inventory:low_stock_scan"
)

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// LowStockScanJob raises a workflow event for every ingredient at or below
// its restock threshold.
type LowStockScanJob struct {
	Pool      *pgxpool.Pool
	Workflows *automation.Engine
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(pool *pgxpool.Pool, workflows *automation.Engine, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Pool: pool, Workflows: workflows, Logger: logger, Metrics: metrics}
}

type lowStockRow struct {
	ID           int64
	UserID       int64
	Name         string
	Unit         string
	CurrentStock float64
	MinimumStock float64
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil || j.Workflows == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	rows, err := j.Pool.Query(ctx, `SELECT id, user_id, name, unit, current_stock, minimum_stock
FROM ingredients
WHERE is_active = TRUE AND minimum_stock > 0 AND current_stock <= minimum_stock
ORDER BY user_id, id`)
	if err != nil {
		resultErr = err
		j.logger().Error("scan low stock", slog.Any("error", err))
		return resultErr
	}
	defer rows.Close()

	var hits []lowStockRow
	for rows.Next() {
		var r lowStockRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Unit, &r.CurrentStock, &r.MinimumStock); err != nil {
			resultErr = err
			return resultErr
		}
		hits = append(hits, r)
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}

	for _, hit := range hits {
		msg := "Stok " + hit.Name + " menipis: tersisa " + formatQty(hit.CurrentStock) + " " + hit.Unit
		j.Workflows.Trigger(ctx, automation.NewEvent(
			automation.EventLowStock,
			hit.UserID,
			"ingredient",
			hit.ID,
			msg,
			map[string]any{
				"current_stock": hit.CurrentStock,
				"minimum_stock": hit.MinimumStock,
				"unit":          hit.Unit,
			},
		))
	}

	j.logger().Info("completed low stock scan", slog.Int("alerts", len(hits)))
	return resultErr
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
