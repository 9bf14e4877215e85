package app

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/heytrack/heytrack/internal/auth"
	"github.com/heytrack/heytrack/internal/customers"
	"github.com/heytrack/heytrack/internal/finance"
	"github.com/heytrack/heytrack/internal/ingredients"
	"github.com/heytrack/heytrack/internal/inventory"
	"github.com/heytrack/heytrack/internal/orders"
	"github.com/heytrack/heytrack/internal/purchases"
	"github.com/heytrack/heytrack/internal/recipes"
	"github.com/heytrack/heytrack/internal/suppliers"
)

func TestRouterMountsPinnedAPIPaths(t *testing.T) {
	logger := slog.Default()

	router := NewRouter(RouterParams{
		Logger:             logger,
		AuthHandler:        auth.NewHandler(logger, nil, nil, nil),
		IngredientsHandler: ingredients.NewHandler(logger, nil),
		InventoryHandler:   inventory.NewHandler(logger, nil),
		PurchasesHandler:   purchases.NewHandler(logger, nil),
		OrdersHandler:      orders.NewHandler(logger, nil),
		RecipesHandler:     recipes.NewHandler(logger, nil),
		FinanceHandler:     finance.NewHandler(logger, nil),
		CustomersHandler:   customers.NewHandler(logger, nil),
		SuppliersHandler:   suppliers.NewHandler(logger, nil),
	})

	mux, ok := router.(chi.Router)
	require.True(t, ok)

	routes := make(map[string]bool)
	err := chi.Walk(mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	require.True(t, routes["POST /api/ingredient-purchases/"], "purchase intake route")
	require.True(t, routes["DELETE /api/ingredient-purchases/{id}"], "purchase reversal route")
	require.True(t, routes["PATCH /api/orders/{id}/status"], "status transition route")
	require.True(t, routes["GET /api/recipes/{id}/hpp"], "recipe costing route")
	require.True(t, routes["GET /healthz"], "health route")
	for key := range routes {
		require.NotContains(t, key, "/api/purchases", "purchases must be mounted as ingredient-purchases")
	}
}
