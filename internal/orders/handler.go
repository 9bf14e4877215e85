package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/heytrack/heytrack/internal/automation"
	"github.com/heytrack/heytrack/internal/platform/httpx"
	"github.com/heytrack/heytrack/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/status", h.ShowStatus)
	r.Patch("/{id}/status", h.UpdateStatus)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	items, total, err := h.service.List(r.Context(), userID, ListFilter{
		Status:  Status(r.URL.Query().Get("status")),
		Search:  r.URL.Query().Get("search"),
		From:    parseDate(r.URL.Query().Get("from")),
		To:      parseDate(r.URL.Query().Get("to")),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.respondError(w, err, "list orders failed")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders":     items,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.Create(r.Context(), shared.UserIDFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err, "create order failed")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), shared.UserIDFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err, "get order failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req UpdateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.Update(r.Context(), shared.UserIDFromContext(r.Context()), id, req)
	if err != nil {
		h.respondError(w, err, "update order failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), shared.UserIDFromContext(r.Context()), id); err != nil {
		h.respondError(w, err, "delete order failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// ShowStatus reports the current status and the reachable next statuses.
func (h *Handler) ShowStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), shared.UserIDFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err, "get order failed")
		return
	}

	next := NextStatuses(order.Status)
	options := make([]map[string]string, 0, len(next))
	for _, st := range next {
		options = append(options, map[string]string{
			"status":  string(st),
			"display": st.Display(),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":         order.Status,
		"status_display": order.Status.Display(),
		"transitions":    options,
	})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	userID := shared.UserIDFromContext(r.Context())
	change, err := h.service.UpdateStatus(r.Context(), userID, id, Status(req.Status), req.Notes)
	if err != nil {
		h.respondError(w, err, "update status failed")
		return
	}

	body := map[string]any{
		"success": true,
		"status_change": map[string]any{
			"from":      change.From,
			"to":        change.To,
			"timestamp": change.ChangedAt,
		},
		"automation": map[string]any{
			"triggered": true,
			"workflows": automation.WorkflowsForStatus(string(change.To)),
		},
		"financial": map[string]any{
			"income_recorded":  change.IncomeRecordID != nil,
			"income_record_id": change.IncomeRecordID,
			"income_reversed":  change.IncomeReversed,
			"amount":           change.Amount,
		},
		"message": "Status pesanan berhasil diperbarui menjadi " + change.To.Display(),
	}
	if order, err := h.service.Get(r.Context(), userID, id); err == nil {
		body["order"] = order
	} else {
		h.logger.Warn("reload order after status change", "error", err)
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrOrderNotDeletable):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
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
