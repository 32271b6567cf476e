package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/platform/httpx"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// Handler exposes warehouse stock and movement endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	production bool
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, production bool) *Handler {
	return &Handler{logger: logger, service: service, production: production}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/warehouseStocks", h.listStock)
	r.Post("/warehouseStocks/search", h.searchStock)
	r.Put("/warehouseStocks/{id}/limits", h.updateLimits)
	r.Get("/materialMovements", h.listMovements)
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	warehouseID, _ := strconv.ParseInt(q.Get("warehouse_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	h.respondStock(w, r, StockFilter{WarehouseID: warehouseID, Page: page, Size: size})
}

type stockSearchPayload struct {
	WarehouseID  int64 `json:"warehouse_id"`
	MaterialID   int64 `json:"material_id"`
	MaterialType int64 `json:"material_type"`
	BelowMin     bool  `json:"below_min"`
	Page         int   `json:"page"`
	Size         int   `json:"size"`
}

func (h *Handler) searchStock(w http.ResponseWriter, r *http.Request) {
	var payload stockSearchPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid search payload"})
		return
	}
	h.respondStock(w, r, StockFilter{
		WarehouseID:  payload.WarehouseID,
		MaterialID:   payload.MaterialID,
		MaterialType: payload.MaterialType,
		BelowMin:     payload.BelowMin,
		Page:         payload.Page,
		Size:         payload.Size,
	})
}

func (h *Handler) respondStock(w http.ResponseWriter, r *http.Request, filter StockFilter) {
	stocks, total, err := h.service.ListStock(r.Context(), filter)
	if err != nil {
		h.logger.Error("list warehouse stock", slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, httpx.Envelope{Success: false, Message: "failed to load warehouse stock"})
		return
	}
	httpx.List(w, stocks, shared.NewPagination(filter.Page, filter.Size, total))
}

type limitsPayload struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (h *Handler) updateLimits(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var payload limitsPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid payload"})
		return
	}
	stock, err := h.service.UpdateStockLimits(r.Context(), id, payload.Min, payload.Max, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.logger.Error("update stock limits", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "warehouse stock updated", stock)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID, _ := strconv.ParseInt(q.Get("project_id"), 10, 64)
	warehouseID, _ := strconv.ParseInt(q.Get("warehouse_id"), 10, 64)
	materialID, _ := strconv.ParseInt(q.Get("material_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	filter := MovementFilter{ProjectID: projectID, WarehouseID: warehouseID, MaterialID: materialID, Page: page, Size: size}
	movements, total, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list material movements", slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, httpx.Envelope{Success: false, Message: "failed to load material movements"})
		return
	}
	httpx.List(w, movements, shared.NewPagination(filter.Page, filter.Size, total))
}
