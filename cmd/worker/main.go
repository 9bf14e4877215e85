package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/heytrack/heytrack/internal/app"
	"github.com/heytrack/heytrack/internal/automation"
	"github.com/heytrack/heytrack/internal/finance"
	"github.com/heytrack/heytrack/internal/inventory"
	jobmetrics "github.com/heytrack/heytrack/internal/jobs"
	"github.com/heytrack/heytrack/internal/platform/db"
	"github.com/heytrack/heytrack/internal/shared"
	"github.com/heytrack/heytrack/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	queueClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := jobmetrics.NewMetrics(nil)
	workflows := automation.NewEngine(queueClient, auditLogger, logger)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, nil, logger, inventory.ServiceConfig{
		PriceThreshold:     cfg.WacPriceThreshold,
		AllowNegativeStock: cfg.AllowNegativeStock,
	})

	financeRepo := finance.NewRepository(pool)
	financeService := finance.NewService(financeRepo, auditLogger, nil, logger)

	notificationStore := jobs.NewNotificationStore(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	workflowJob := jobs.NewWorkflowEventJob(notificationStore, idempotencyStore, logger, metrics)
	wacJob := jobs.NewWacRevaluationJob(inventoryService, logger, metrics)
	reconcileJob := jobs.NewFinanceReconcileJob(financeService, logger, metrics)
	lowStockJob := jobs.NewLowStockScanJob(pool, workflows, logger, metrics)
	cleanupJob := jobs.NewRetentionCleanupJob(notificationStore, idempotencyStore, logger, metrics)

	wacTask, err := jobs.NewWacRevaluationTask(time.Now())
	if err != nil {
		logger.Error("build wac revaluation task", slog.Any("error", err))
		os.Exit(1)
	}
	reconcileTask, err := jobs.NewFinanceReconcileTask(time.Now())
	if err != nil {
		logger.Error("build finance reconcile task", slog.Any("error", err))
		os.Exit(1)
	}
	lowStockTask, err := jobs.NewLowStockScanTask(time.Now())
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewRetentionCleanupTask(time.Now())
	if err != nil {
		logger.Error("build retention cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskWorkflowEvent, Handler: workflowJob.Handle},
			{Type: jobs.TaskWacRevaluation, Handler: wacJob.Handle},
			{Type: jobs.TaskFinanceReconcile, Handler: reconcileJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskRetentionCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: wacTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 */4 * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 2 * * 0", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
