package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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
	r.Get("/wac/{ingredientID}", h.ShowWac)
	r.Get("/wac/{ingredientID}/history", h.WacHistory)
	r.Post("/wac/{ingredientID}/recalculate", h.Recalculate)
	r.Post("/wac/batch", h.BatchRecalculate)
	r.Post("/wac/recalculate-all", h.RecalculateAll)
	r.Get("/stock-logs", h.StockLogs)
	r.Post("/adjustments", h.PostAdjustment)
}

func (h *Handler) ShowWac(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ingredientID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ingredient id")
		return
	}
	userID := shared.UserIDFromContext(r.Context())

	calc, err := h.service.CalculateWAC(r.Context(), userID, id)
	if err != nil {
		h.respondError(w, err, "calculate wac failed", id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"wac": calc})
}

func (h *Handler) WacHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ingredientID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ingredient id")
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	from := parseDate(r.URL.Query().Get("from"))
	to := parseDate(r.URL.Query().Get("to"))

	points, err := h.service.WacHistory(r.Context(), userID, id, from, to)
	if err != nil {
		h.respondError(w, err, "wac history failed", id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": points})
}

func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ingredientID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ingredient id")
		return
	}
	userID := shared.UserIDFromContext(r.Context())

	upd, err := h.service.UpdateWACOnPurchase(r.Context(), userID, id)
	if err != nil {
		h.respondError(w, err, "recalculate wac failed", id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"update": upd})
}

func (h *Handler) BatchRecalculate(w http.ResponseWriter, r *http.Request) {
	var req BatchWacRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID := shared.UserIDFromContext(r.Context())

	updates, err := h.service.BatchUpdateWAC(r.Context(), userID, req.IngredientIDs)
	if err != nil {
		h.respondError(w, err, "batch wac failed", 0)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updates": updates})
}

func (h *Handler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	summary, err := h.service.RecalculateAll(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "recalculate all failed", 0)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func (h *Handler) StockLogs(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	ingredientID, _ := strconv.ParseInt(r.URL.Query().Get("ingredient_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.service.StockLogs(r.Context(), StockLogFilter{
		UserID:       userID,
		IngredientID: ingredientID,
		Type:         LogType(r.URL.Query().Get("type")),
		From:         parseDate(r.URL.Query().Get("from")),
		To:           parseDate(r.URL.Query().Get("to")),
		Limit:        limit,
	})
	if err != nil {
		h.respondError(w, err, "list stock logs failed", ingredientID)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stock_logs": logs})
}

func (h *Handler) PostAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID := shared.UserIDFromContext(r.Context())

	logEntry, err := h.service.PostAdjustment(r.Context(), userID, AdjustmentInput{
		IngredientID: req.IngredientID,
		ActorID:      userID,
		Qty:          req.Quantity,
		UnitCost:     req.UnitCost,
		Note:         req.Note,
	})
	if err != nil {
		h.respondError(w, err, "post adjustment failed", req.IngredientID)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"stock_log": logEntry})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, msg string, ingredientID int64) {
	switch {
	case errors.Is(err, ErrIngredientNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidUnitCost):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNegativeStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(msg, "error", err, "ingredient_id", ingredientID)
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
