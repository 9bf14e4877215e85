package recipes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

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
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/hpp", h.Hpp)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	filters := shared.ListFilters{
		Page:    page,
		PerPage: perPage,
		Search:  r.URL.Query().Get("search"),
	}

	items, total, err := h.service.List(r.Context(), userID, filters)
	if err != nil {
		h.logger.Error("list recipes failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"recipes":    items,
		"pagination": shared.NewPagination(filters.Page, filters.Limit(), total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(r.Context(), shared.UserIDFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err, "get recipe failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"recipe": rec})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var rec Recipe
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	rec.UserID = shared.UserIDFromContext(r.Context())

	created, err := h.service.Create(r.Context(), rec)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"recipe": created})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	var rec Recipe
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	userID := shared.UserIDFromContext(r.Context())
	if err := h.service.Update(r.Context(), userID, id, rec); err != nil {
		if errors.Is(err, ErrRecipeNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), userID, id); err != nil {
		h.respondError(w, err, "deactivate recipe failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// Hpp returns the recipe's cost-of-goods breakdown at current WAC prices.
func (h *Handler) Hpp(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}
	margin, _ := strconv.ParseFloat(r.URL.Query().Get("margin"), 64)

	breakdown, err := h.service.CalculateHpp(r.Context(), shared.UserIDFromContext(r.Context()), id, margin)
	if err != nil {
		h.respondError(w, err, "calculate hpp failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"hpp": breakdown})
}

func (h *Handler) recipeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid recipe id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, ErrRecipeNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error(msg, "error", err)
	httpx.RespondError(w, err)
}
