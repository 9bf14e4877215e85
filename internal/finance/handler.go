package finance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heytrack/heytrack/internal/platform/httpx"
	"github.com/heytrack/heytrack/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/records", h.ListRecords)
	r.Get("/summary", h.Summary)
	r.Post("/sync", h.Sync)
	r.Post("/orders/{orderID}/income", h.SyncOrderIncome)
	r.Delete("/orders/{orderID}/income", h.ReverseOrderIncome)
	r.Post("/purchases/{purchaseID}/expense", h.SyncPurchaseExpense)
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	records, total, err := h.service.ListRecords(r.Context(), userID, RecordFilter{
		Type:     RecordType(r.URL.Query().Get("type")),
		Category: r.URL.Query().Get("category"),
		From:     parseDate(r.URL.Query().Get("from")),
		To:       parseDate(r.URL.Query().Get("to")),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		h.logger.Error("list records failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"records":    records,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	summary, err := h.service.Summarize(r.Context(), userID, parseDate(r.URL.Query().Get("from")), parseDate(r.URL.Query().Get("to")))
	if err != nil {
		h.logger.Error("summarize records failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.AutoSyncAll(r.Context())
	if err != nil {
		h.logger.Error("auto sync failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": report})
}

func (h *Handler) SyncOrderIncome(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	rec, err := h.service.CreateIncomeFromOrder(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err, "create income failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"record": rec})
}

func (h *Handler) ReverseOrderIncome(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	reversed, err := h.service.ReverseOrderIncome(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err, "reverse income failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reversed": reversed})
}

func (h *Handler) SyncPurchaseExpense(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := strconv.ParseInt(chi.URLParam(r, "purchaseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	rec, err := h.service.CreateExpenseFromPurchase(r.Context(), purchaseID)
	if err != nil {
		h.respondError(w, err, "create expense failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"record": rec})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrPurchaseNotFound), errors.Is(err, ErrRecordNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error(msg, "error", err)
		httpx.RespondError(w, err)
	}
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
