package procurement

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/platform/httpx"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// Handler exposes material request, purchase order and receiving endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	validate   *validator.Validate
	production bool

	// OnReceipt, when set, is invoked once per committed receipt batch.
	OnReceipt func()
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, production bool) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		validate:   validator.New(),
		production: production,
	}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/materialRequests", h.createRequest)
	r.Get("/materialRequests", h.listRequests)
	r.Post("/materialRequests/search", h.searchRequests)
	r.Get("/materialRequests/{id}", h.getRequest)
	r.Put("/materialRequests/{id}", h.updateRequest)
	r.Delete("/materialRequests/{id}", h.deleteRequest)

	r.Post("/purchaseOrders", h.createOrder)
	r.Get("/purchaseOrders", h.listOrders)
	r.Post("/purchaseOrders/search", h.searchOrders)
	r.Get("/purchaseOrders/{id}", h.getOrder)
	r.Delete("/purchaseOrders/{id}", h.deleteOrder)
}

// MountReceivingRoutes registers the warehouse receiving endpoint; the router
// gates it to warehouse keepers.
func (h *Handler) MountReceivingRoutes(r chi.Router) {
	r.Post("/purchaseOrderItems/receive", h.receive)
}

type requestItemPayload struct {
	MaterialType  int64   `json:"material_type"`
	MaterialID    int64   `json:"material_id" validate:"required"`
	UnitOfMeasure int64   `json:"unit_of_measure" validate:"required"`
	Quantity      float64 `json:"quantity" validate:"required,gt=0"`
	Price         float64 `json:"price" validate:"gte=0"`
	Currency      int64   `json:"currency"`
	Comment       string  `json:"comment"`
}

type createRequestPayload struct {
	ProjectID int64                `json:"project_id" validate:"required"`
	StageID   int64                `json:"stage_id"`
	Comment   string               `json:"comment"`
	Items     []requestItemPayload `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var payload createRequestPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid request payload"})
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "validation failed", Error: err.Error()})
		return
	}
	input := CreateRequestInput{
		ProjectID: payload.ProjectID,
		StageID:   payload.StageID,
		Comment:   payload.Comment,
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, RequestItemInput(item))
	}
	request, err := h.service.CreateMaterialRequest(r.Context(), input)
	if err != nil {
		h.logger.Error("create material request", slog.Any("error", err))
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.Created(w, "material request created", request)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID, _ := strconv.ParseInt(q.Get("project_id"), 10, 64)
	status, _ := strconv.Atoi(q.Get("status"))
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	h.respondRequests(w, r, RequestFilter{ProjectID: projectID, Status: RequestStatus(status), Page: page, Size: size})
}

type requestSearchPayload struct {
	ProjectID int64 `json:"project_id"`
	Status    int   `json:"status"`
	Page      int   `json:"page"`
	Size      int   `json:"size"`
}

func (h *Handler) searchRequests(w http.ResponseWriter, r *http.Request) {
	var payload requestSearchPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid search payload"})
		return
	}
	h.respondRequests(w, r, RequestFilter{ProjectID: payload.ProjectID, Status: RequestStatus(payload.Status), Page: payload.Page, Size: payload.Size})
}

func (h *Handler) respondRequests(w http.ResponseWriter, r *http.Request, filter RequestFilter) {
	requests, total, err := h.service.SearchMaterialRequests(r.Context(), filter)
	if err != nil {
		h.logger.Error("search material requests", slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, httpx.Envelope{Success: false, Message: "failed to load material requests"})
		return
	}
	httpx.List(w, requests, shared.NewPagination(filter.Page, filter.Size, total))
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	request, err := h.service.GetMaterialRequest(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "", request)
}

type updateRequestPayload struct {
	StageID *int64  `json:"stage_id"`
	Comment *string `json:"comment"`
	Status  *int    `json:"status"`

	ApprovedByForeman          *bool `json:"approved_by_foreman"`
	ApprovedBySiteManager      *bool `json:"approved_by_site_manager"`
	ApprovedByPurchasingAgent  *bool `json:"approved_by_purchasing_agent"`
	ApprovedByPlanningEngineer *bool `json:"approved_by_planning_engineer"`
	ApprovedByMainEngineer     *bool `json:"approved_by_main_engineer"`

	AuditComment string `json:"audit_comment"`
}

func (h *Handler) updateRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var payload updateRequestPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid request payload"})
		return
	}
	input := UpdateRequestInput{
		StageID:                    payload.StageID,
		Comment:                    payload.Comment,
		ApprovedByForeman:          payload.ApprovedByForeman,
		ApprovedBySiteManager:      payload.ApprovedBySiteManager,
		ApprovedByPurchasingAgent:  payload.ApprovedByPurchasingAgent,
		ApprovedByPlanningEngineer: payload.ApprovedByPlanningEngineer,
		ApprovedByMainEngineer:     payload.ApprovedByMainEngineer,
		AuditComment:               payload.AuditComment,
	}
	if payload.Status != nil {
		status := RequestStatus(*payload.Status)
		input.Status = &status
	}
	request, err := h.service.UpdateMaterialRequest(r.Context(), id, input, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.logger.Error("update material request", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "material request updated", request)
}

func (h *Handler) deleteRequest(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.DeleteMaterialRequest(r.Context(), id); err != nil {
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "material request deleted", nil)
}

type orderItemPayload struct {
	MaterialRequestItemID int64   `json:"material_request_item_id" validate:"required"`
	MaterialType          int64   `json:"material_type"`
	MaterialID            int64   `json:"material_id" validate:"required"`
	UnitOfMeasure         int64   `json:"unit_of_measure" validate:"required"`
	Quantity              float64 `json:"quantity" validate:"required,gt=0"`
	Price                 float64 `json:"price" validate:"gte=0"`
}

type createOrderPayload struct {
	ProjectID  int64              `json:"project_id" validate:"required"`
	SupplierID int64              `json:"supplier_id" validate:"required"`
	Items      []orderItemPayload `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var payload createOrderPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid order payload"})
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "validation failed", Error: err.Error()})
		return
	}
	actor := shared.ActorFromContext(r.Context())
	input := CreateOrderInput{
		ProjectID:     payload.ProjectID,
		SupplierID:    payload.SupplierID,
		CreatedUserID: actor.UserID,
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, OrderItemInput(item))
	}
	order, err := h.service.CreatePurchaseOrder(r.Context(), input)
	if err != nil {
		h.logger.Error("create purchase order", slog.Any("error", err))
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.Created(w, "purchase order created", order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID, _ := strconv.ParseInt(q.Get("project_id"), 10, 64)
	supplierID, _ := strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	status, _ := strconv.Atoi(q.Get("status"))
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	h.respondOrders(w, r, OrderFilter{ProjectID: projectID, SupplierID: supplierID, Status: OrderStatus(status), Page: page, Size: size})
}

type orderSearchPayload struct {
	ProjectID  int64 `json:"project_id"`
	SupplierID int64 `json:"supplier_id"`
	Status     int   `json:"status"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
}

func (h *Handler) searchOrders(w http.ResponseWriter, r *http.Request) {
	var payload orderSearchPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid search payload"})
		return
	}
	h.respondOrders(w, r, OrderFilter{
		ProjectID:  payload.ProjectID,
		SupplierID: payload.SupplierID,
		Status:     OrderStatus(payload.Status),
		Page:       payload.Page,
		Size:       payload.Size,
	})
}

func (h *Handler) respondOrders(w http.ResponseWriter, r *http.Request, filter OrderFilter) {
	orders, total, err := h.service.SearchPurchaseOrders(r.Context(), filter)
	if err != nil {
		h.logger.Error("search purchase orders", slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, httpx.Envelope{Success: false, Message: "failed to load purchase orders"})
		return
	}
	httpx.List(w, orders, shared.NewPagination(filter.Page, filter.Size, total))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	order, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "", order)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.DeletePurchaseOrder(r.Context(), id); err != nil {
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "purchase order deleted", nil)
}

type receiveItemPayload struct {
	PurchaseOrderItemID int64   `json:"purchase_order_item_id" validate:"required"`
	ReceivedQuantity    float64 `json:"received_quantity" validate:"gte=0"`
}

type receivePayload struct {
	WarehouseID int64                `json:"warehouse_id" validate:"required"`
	Items       []receiveItemPayload `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var payload receivePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid receive payload"})
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "validation failed", Error: err.Error()})
		return
	}
	eventKey := r.Header.Get("Idempotency-Key")
	if eventKey == "" {
		// Every receipt claims a key so retries of the same submission
		// can be detected; clients that send none get a fresh one.
		eventKey = uuid.NewString()
	}
	input := ReceiveInput{
		WarehouseID: payload.WarehouseID,
		EventKey:    eventKey,
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, ReceiveItemInput(item))
	}
	if err := h.service.ReceiveOrderItems(r.Context(), input, shared.ActorFromContext(r.Context())); err != nil {
		h.logger.Error("receive purchase order items", slog.Any("error", err))
		httpx.RespondError(w, err, h.production)
		return
	}
	if h.OnReceipt != nil {
		h.OnReceipt()
	}
	httpx.OK(w, "receipt recorded", nil)
}
