package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/platform/httpx"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// Handler exposes the audit listing.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/auditLogs", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entityID, _ := strconv.ParseInt(q.Get("entity_id"), 10, 64)
	userID, _ := strconv.ParseInt(q.Get("user_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	filters := Filters{
		EntityType: q.Get("entity_type"),
		EntityID:   entityID,
		UserID:     userID,
		Action:     q.Get("action"),
		Page:       page,
		Size:       size,
	}
	entries, total, err := h.repo.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list audit logs", slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, httpx.Envelope{Success: false, Message: "failed to load audit logs"})
		return
	}
	httpx.List(w, entries, shared.NewPagination(filters.Page, filters.Size, total))
}
