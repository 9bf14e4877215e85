package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/heytrack/heytrack/internal/app"
	"github.com/heytrack/heytrack/internal/auth"
	"github.com/heytrack/heytrack/internal/automation"
	"github.com/heytrack/heytrack/internal/customers"
	"github.com/heytrack/heytrack/internal/finance"
	"github.com/heytrack/heytrack/internal/ingredients"
	"github.com/heytrack/heytrack/internal/inventory"
	"github.com/heytrack/heytrack/internal/observability"
	"github.com/heytrack/heytrack/internal/orders"
	"github.com/heytrack/heytrack/internal/platform/cache"
	"github.com/heytrack/heytrack/internal/platform/db"
	"github.com/heytrack/heytrack/internal/purchases"
	"github.com/heytrack/heytrack/internal/recipes"
	"github.com/heytrack/heytrack/internal/shared"
	"github.com/heytrack/heytrack/internal/suppliers"
	"github.com/heytrack/heytrack/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "heytrack_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()
	workflows := automation.NewEngine(queueClient, auditLogger, logger)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	ingredientRepo := ingredients.NewRepository(dbpool)
	ingredientService := ingredients.NewService(ingredientRepo)
	ingredientHandler := ingredients.NewHandler(logger, ingredientService)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, metrics, logger, inventory.ServiceConfig{
		PriceThreshold:     cfg.WacPriceThreshold,
		AllowNegativeStock: cfg.AllowNegativeStock,
	})
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	financeRepo := finance.NewRepository(dbpool)
	financeService := finance.NewService(financeRepo, auditLogger, metrics, logger)
	financeHandler := finance.NewHandler(logger, financeService)

	orderRepo := orders.NewRepository(dbpool)
	orderService := orders.NewService(orderRepo, auditLogger, workflows, logger)
	orderHandler := orders.NewHandler(logger, orderService)

	purchaseRepo := purchases.NewRepository(dbpool)
	purchaseService := purchases.NewService(purchaseRepo, auditLogger, inventoryService, workflows, logger)
	purchaseHandler := purchases.NewHandler(logger, purchaseService)

	recipeRepo := recipes.NewRepository(dbpool)
	recipeService := recipes.NewService(recipeRepo)
	recipeHandler := recipes.NewHandler(logger, recipeService)

	customerRepo := customers.NewRepository(dbpool)
	customerService := customers.NewService(customerRepo)
	customerHandler := customers.NewHandler(logger, customerService)

	supplierRepo := suppliers.NewRepository(dbpool)
	supplierService := suppliers.NewService(supplierRepo)
	supplierHandler := suppliers.NewHandler(logger, supplierService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		IngredientsHandler: ingredientHandler,
		InventoryHandler:   inventoryHandler,
		PurchasesHandler:   purchaseHandler,
		OrdersHandler:      orderHandler,
		RecipesHandler:     recipeHandler,
		FinanceHandler:     financeHandler,
		CustomersHandler:   customerHandler,
		SuppliersHandler:   supplierHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
		Pool:               dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
