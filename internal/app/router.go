package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heytrack/heytrack/internal/auth"
	"github.com/heytrack/heytrack/internal/customers"
	"github.com/heytrack/heytrack/internal/finance"
	"github.com/heytrack/heytrack/internal/ingredients"
	"github.com/heytrack/heytrack/internal/inventory"
	"github.com/heytrack/heytrack/internal/observability"
	"github.com/heytrack/heytrack/internal/orders"
	"github.com/heytrack/heytrack/internal/purchases"
	"github.com/heytrack/heytrack/internal/recipes"
	"github.com/heytrack/heytrack/internal/shared"
	"github.com/heytrack/heytrack/internal/suppliers"
	"github.com/heytrack/heytrack/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	IngredientsHandler *ingredients.Handler
	InventoryHandler   *inventory.Handler
	PurchasesHandler   *purchases.Handler
	OrdersHandler      *orders.Handler
	RecipesHandler     *recipes.Handler
	FinanceHandler     *finance.Handler
	CustomersHandler   *customers.Handler
	SuppliersHandler   *suppliers.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	Pool               *pgxpool.Pool
}

// NewRouter constructs the chi.Router with HeyTrack defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if params.Pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Pool.Ping(ctx); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireUser)

		r.Route("/ingredients", params.IngredientsHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/ingredient-purchases", params.PurchasesHandler.MountRoutes)
		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/finance", params.FinanceHandler.MountRoutes)
		if params.RecipesHandler != nil {
			r.Route("/recipes", params.RecipesHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
