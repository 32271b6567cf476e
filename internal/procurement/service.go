package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/audit"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/inventory"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/notify"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequest(ctx context.Context, id int64) (MaterialRequest, error)
	SearchRequests(ctx context.Context, filter RequestFilter) ([]MaterialRequest, int, error)
	SoftDeleteRequest(ctx context.Context, id int64) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	SearchOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, int, error)
	SoftDeleteOrder(ctx context.Context, id int64) error
}

// TxRepository exposes the mutations that share one transaction. Any error
// returned from the WithTx callback rolls everything back; partial
// application is never visible.
type TxRepository interface {
	CreateRequest(ctx context.Context, request MaterialRequest) (int64, error)
	InsertRequestItems(ctx context.Context, requestID int64, items []MaterialRequestItem) error
	GetRequestForUpdate(ctx context.Context, id int64) (MaterialRequest, error)
	UpdateRequest(ctx context.Context, request MaterialRequest) error
	ListRequestItems(ctx context.Context, requestID int64) ([]MaterialRequestItem, error)
	SetRequestItemsStatus(ctx context.Context, requestID int64, status RequestItemStatus) error
	SetRequestStatus(ctx context.Context, requestID int64, status RequestStatus) error

	CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error)
	InsertOrderItems(ctx context.Context, orderID int64, items []PurchaseOrderItem) error
	GetRequestItemsForUpdate(ctx context.Context, ids []int64) ([]MaterialRequestItem, error)
	SumOrderedQuantities(ctx context.Context, requestItemIDs []int64) (map[int64]float64, error)
	SetRequestItemStatus(ctx context.Context, itemID int64, status RequestItemStatus) error
	MarkRequestsInExecution(ctx context.Context, requestIDs []int64) error

	GetOrderItemForUpdate(ctx context.Context, id int64) (PurchaseOrderItem, error)
	UpdateOrderItemDelivery(ctx context.Context, id int64, deliveredTotal float64, status OrderItemStatus) error
	ListOrderItemStatuses(ctx context.Context, orderID int64) ([]OrderItemStatus, error)
	SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error
	ListRequestDeliveryStatuses(ctx context.Context, requestID int64) ([]OrderItemStatus, error)

	GetWarehouse(ctx context.Context, warehouseID int64) (inventory.Warehouse, error)
	IncrementStock(ctx context.Context, key inventory.StockKey, amount float64) error
	InsertMovement(ctx context.Context, movement inventory.MaterialMovement) error

	RecordAudit(ctx context.Context, entry audit.Entry) (bool, error)
}

// NotifierPort dispatches the approval email.
type NotifierPort interface {
	SendMaterialRequestApproved(ctx context.Context, msg notify.MaterialRequestApprovedMessage) error
}

// RecipientsPort resolves who receives the approval email.
type RecipientsPort interface {
	ActivePurchasingAgentEmails(ctx context.Context) ([]string, error)
}

// DirectoryPort resolves reference-data display names for notifications.
type DirectoryPort interface {
	ProjectName(ctx context.Context, projectID int64) (string, error)
	MaterialName(ctx context.Context, materialType, materialID int64) (string, error)
	UnitName(ctx context.Context, unitID int64) (string, error)
}

// IdempotencyPort guards receive calls against double submission.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Config holds behavior toggles.
type Config struct {
	// AutoFulfill closes a material request (status 4) once every purchase
	// order item referencing it is fully delivered. Off by default: full
	// delivery then leaves the request in execution for manual closing.
	AutoFulfill bool
}

// Service orchestrates the procurement pipeline.
type Service struct {
	repo        RepositoryPort
	notifier    NotifierPort
	recipients  RecipientsPort
	directory   DirectoryPort
	idempotency IdempotencyPort
	cfg         Config
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, notifier NotifierPort, recipients RecipientsPort, directory DirectoryPort, idem IdempotencyPort, cfg Config) *Service {
	return &Service{repo: repo, notifier: notifier, recipients: recipients, directory: directory, idempotency: idem, cfg: cfg}
}

// CreateRequestInput describes the creation payload.
type CreateRequestInput struct {
	ProjectID int64
	StageID   int64
	Comment   string
	Items     []RequestItemInput
}

// RequestItemInput describes one requested line.
type RequestItemInput struct {
	MaterialType  int64
	MaterialID    int64
	UnitOfMeasure int64
	Quantity      float64
	Price         float64
	Currency      int64
	Comment       string
}

// CreateMaterialRequest persists the request header and its items atomically.
func (s *Service) CreateMaterialRequest(ctx context.Context, input CreateRequestInput) (MaterialRequest, error) {
	if input.ProjectID == 0 {
		return MaterialRequest{}, fmt.Errorf("%w: project_id required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return MaterialRequest{}, fmt.Errorf("%w: items list required", ErrValidation)
	}
	request := MaterialRequest{
		ProjectID: input.ProjectID,
		StageID:   input.StageID,
		Comment:   input.Comment,
		Status:    RequestPendingApproval,
	}
	var created MaterialRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		requestID, err := tx.CreateRequest(ctx, request)
		if err != nil {
			return err
		}
		items := make([]MaterialRequestItem, 0, len(input.Items))
		for _, line := range input.Items {
			if line.MaterialID == 0 || line.UnitOfMeasure == 0 || line.Quantity <= 0 {
				return fmt.Errorf("%w: item requires material, unit and positive quantity", ErrValidation)
			}
			items = append(items, MaterialRequestItem{
				MaterialRequestID: requestID,
				MaterialType:      line.MaterialType,
				MaterialID:        line.MaterialID,
				UnitOfMeasure:     line.UnitOfMeasure,
				Quantity:          line.Quantity,
				Price:             line.Price,
				Summ:              line.Price * line.Quantity,
				Currency:          line.Currency,
				Status:            ItemRequested,
				Comment:           line.Comment,
			})
		}
		if err := tx.InsertRequestItems(ctx, requestID, items); err != nil {
			return err
		}
		created = request
		created.ID = requestID
		created.Items = items
		return nil
	})
	if err != nil {
		return MaterialRequest{}, err
	}
	return created, nil
}

// UpdateRequestInput carries a partial update. Nil pointers leave the stored
// value untouched.
type UpdateRequestInput struct {
	StageID *int64
	Comment *string
	// Status accepts only RequestCancelled; every other value is derived
	// by the pipeline and rejected here.
	Status *RequestStatus

	ApprovedByForeman          *bool
	ApprovedBySiteManager      *bool
	ApprovedByPurchasingAgent  *bool
	ApprovedByPlanningEngineer *bool
	ApprovedByMainEngineer     *bool

	AuditComment string
}

// UpdateMaterialRequest applies approval flags and mutable fields.
//
// Full approval is decided from the five booleans submitted in this call
// alone; stored flags are not merged in, so the caller must resend all
// previously granted flags for the cascade to trigger. On full approval the
// request and its items move to approved and purchasing agents are emailed
// inside the same transaction: a failed send rolls the approval back. The
// transaction wrapper retries serialization failures, so a conflict at
// commit can repeat a successful send; the notification is at-least-once.
func (s *Service) UpdateMaterialRequest(ctx context.Context, id int64, input UpdateRequestInput, actor shared.Actor) (MaterialRequest, error) {
	if input.Status != nil && *input.Status != RequestCancelled {
		return MaterialRequest{}, fmt.Errorf("%w: status is derived and cannot be set directly", ErrValidation)
	}
	full := fullyApproved([5]*bool{
		input.ApprovedByForeman,
		input.ApprovedBySiteManager,
		input.ApprovedByPurchasingAgent,
		input.ApprovedByPlanningEngineer,
		input.ApprovedByMainEngineer,
	})
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.GetRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		updated := before
		now := time.Now()
		if input.StageID != nil {
			updated.StageID = *input.StageID
		}
		if input.Comment != nil {
			updated.Comment = *input.Comment
		}
		if input.Status != nil {
			updated.Status = *input.Status
		}
		applyFlag(input.ApprovedByForeman, &updated.ApprovedByForeman, &updated.ApprovedByForemanTime, &updated.ApprovedByForemanUserID, now, actor.UserID)
		applyFlag(input.ApprovedBySiteManager, &updated.ApprovedBySiteManager, &updated.ApprovedBySiteManagerTime, &updated.ApprovedBySiteManagerUserID, now, actor.UserID)
		applyFlag(input.ApprovedByPurchasingAgent, &updated.ApprovedByPurchasingAgent, &updated.ApprovedByPurchasingAgentTime, &updated.ApprovedByPurchasingAgentUserID, now, actor.UserID)
		applyFlag(input.ApprovedByPlanningEngineer, &updated.ApprovedByPlanningEngineer, &updated.ApprovedByPlanningEngineerTime, &updated.ApprovedByPlanningEngineerUserID, now, actor.UserID)
		applyFlag(input.ApprovedByMainEngineer, &updated.ApprovedByMainEngineer, &updated.ApprovedByMainEngineerTime, &updated.ApprovedByMainEngineerUserID, now, actor.UserID)
		if full {
			updated.Status = RequestApproved
		}
		if err := tx.UpdateRequest(ctx, updated); err != nil {
			return err
		}
		if _, err := tx.RecordAudit(ctx, audit.Entry{
			EntityType: "material_request",
			EntityID:   id,
			Action:     "material_request_updated",
			OldValues:  audit.Take(before),
			NewValues:  audit.Take(updated),
			UserID:     actor.UserID,
			Comment:    input.AuditComment,
		}); err != nil {
			return err
		}
		if full {
			if err := tx.SetRequestItemsStatus(ctx, id, ItemApproved); err != nil {
				return err
			}
			if err := s.notifyApproved(ctx, tx, updated); err != nil {
				return shared.Dependencyf("approval notification: %v", err)
			}
		}
		return nil
	})
	if err != nil {
		return MaterialRequest{}, err
	}
	return s.repo.GetRequest(ctx, id)
}

func applyFlag(in *bool, flag *bool, at **time.Time, userID *int64, now time.Time, actorID int64) {
	if in == nil {
		return
	}
	*flag = *in
	if *in {
		stamp := now
		*at = &stamp
		*userID = actorID
	} else {
		*at = nil
		*userID = 0
	}
}

func (s *Service) notifyApproved(ctx context.Context, tx TxRepository, request MaterialRequest) error {
	if s.notifier == nil || s.recipients == nil {
		return errors.New("notifier not configured")
	}
	recipients, err := s.recipients.ActivePurchasingAgentEmails(ctx)
	if err != nil {
		return err
	}
	items, err := tx.ListRequestItems(ctx, request.ID)
	if err != nil {
		return err
	}
	// Display names are best effort: a failed lookup degrades the email
	// text but never blocks the approval. Only the send itself is fatal.
	msg := notify.MaterialRequestApprovedMessage{
		Recipients:  recipients,
		RequestID:   request.ID,
		Comment:     request.Comment,
		ProjectName: fmt.Sprintf("project %d", request.ProjectID),
	}
	if s.directory != nil {
		if name, err := s.directory.ProjectName(ctx, request.ProjectID); err == nil {
			msg.ProjectName = name
		}
	}
	for _, item := range items {
		line := notify.RequestItemLine{Quantity: item.Quantity, Comment: item.Comment}
		if s.directory != nil {
			line.MaterialName, _ = s.directory.MaterialName(ctx, item.MaterialType, item.MaterialID)
			line.UnitName, _ = s.directory.UnitName(ctx, item.UnitOfMeasure)
		}
		msg.Items = append(msg.Items, line)
	}
	return s.notifier.SendMaterialRequestApproved(ctx, msg)
}

// GetMaterialRequest returns one request with its items.
func (s *Service) GetMaterialRequest(ctx context.Context, id int64) (MaterialRequest, error) {
	return s.repo.GetRequest(ctx, id)
}

// SearchMaterialRequests lists requests with paging.
func (s *Service) SearchMaterialRequests(ctx context.Context, filter RequestFilter) ([]MaterialRequest, int, error) {
	return s.repo.SearchRequests(ctx, filter)
}

// DeleteMaterialRequest soft-deletes a request; approval history survives.
func (s *Service) DeleteMaterialRequest(ctx context.Context, id int64) error {
	return s.repo.SoftDeleteRequest(ctx, id)
}

// CreateOrderInput describes the purchase order payload.
type CreateOrderInput struct {
	ProjectID     int64
	SupplierID    int64
	CreatedUserID int64
	Items         []OrderItemInput
}

// OrderItemInput is one ordered line bound to a request item.
type OrderItemInput struct {
	MaterialRequestItemID int64
	MaterialType          int64
	MaterialID            int64
	UnitOfMeasure         int64
	Quantity              float64
	Price                 float64
}

// CreatePurchaseOrder inserts the order with items and propagates derived
// statuses: request items escalate to partially/fully ordered from the
// recomputed total ordered across all active orders, and touched requests
// move to in-execution. One transaction covers all six steps.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if input.ProjectID == 0 || input.SupplierID == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: project_id and supplier_id required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: items list required", ErrValidation)
	}
	order := PurchaseOrder{
		ProjectID:     input.ProjectID,
		SupplierID:    input.SupplierID,
		CreatedUserID: input.CreatedUserID,
		Status:        OrderInDelivery,
	}
	var created PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		items := make([]PurchaseOrderItem, 0, len(input.Items))
		requestItemIDs := make([]int64, 0, len(input.Items))
		seen := make(map[int64]bool, len(input.Items))
		for _, line := range input.Items {
			if line.MaterialRequestItemID == 0 || line.Quantity <= 0 {
				return fmt.Errorf("%w: item requires material_request_item_id and positive quantity", ErrValidation)
			}
			items = append(items, PurchaseOrderItem{
				PurchaseOrderID:       orderID,
				MaterialRequestItemID: line.MaterialRequestItemID,
				MaterialType:          line.MaterialType,
				MaterialID:            line.MaterialID,
				UnitOfMeasure:         line.UnitOfMeasure,
				Quantity:              line.Quantity,
				Price:                 line.Price,
				Summ:                  line.Price * line.Quantity,
			})
			if !seen[line.MaterialRequestItemID] {
				seen[line.MaterialRequestItemID] = true
				requestItemIDs = append(requestItemIDs, line.MaterialRequestItemID)
			}
		}
		if err := tx.InsertOrderItems(ctx, orderID, items); err != nil {
			return err
		}

		requestItems, err := tx.GetRequestItemsForUpdate(ctx, requestItemIDs)
		if err != nil {
			return err
		}
		if len(requestItems) != len(requestItemIDs) {
			return fmt.Errorf("%w: material request item missing", ErrNotFound)
		}
		// Recomputed from scratch, never incremented, so repeated partial
		// orders escalate without double counting.
		ordered, err := tx.SumOrderedQuantities(ctx, requestItemIDs)
		if err != nil {
			return err
		}
		requestIDs := make([]int64, 0, len(requestItems))
		seenRequest := make(map[int64]bool, len(requestItems))
		for _, item := range requestItems {
			status := classifyOrdered(item.Quantity, ordered[item.ID])
			if status != 0 && status != item.Status {
				if err := tx.SetRequestItemStatus(ctx, item.ID, status); err != nil {
					return err
				}
			}
			if !seenRequest[item.MaterialRequestID] {
				seenRequest[item.MaterialRequestID] = true
				requestIDs = append(requestIDs, item.MaterialRequestID)
			}
		}
		if err := tx.MarkRequestsInExecution(ctx, requestIDs); err != nil {
			return err
		}
		created = order
		created.ID = orderID
		created.Items = items
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return created, nil
}

// GetPurchaseOrder returns one order with its items.
func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// SearchPurchaseOrders lists orders with paging.
func (s *Service) SearchPurchaseOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, int, error) {
	return s.repo.SearchOrders(ctx, filter)
}

// DeletePurchaseOrder soft-deletes an order.
func (s *Service) DeletePurchaseOrder(ctx context.Context, id int64) error {
	return s.repo.SoftDeleteOrder(ctx, id)
}

// ReceiveInput describes one receiving call.
type ReceiveInput struct {
	WarehouseID int64
	Items       []ReceiveItemInput
	// EventKey optionally guards against duplicate submission; the engine
	// itself is cumulative and would double-count a replay.
	EventKey string
}

// ReceiveItemInput records arrived quantity for one order item.
type ReceiveItemInput struct {
	PurchaseOrderItemID int64
	ReceivedQuantity    float64
}

// ReceiveOrderItems is the receiving engine. For each entry it accumulates
// the delivered total, classifies the item's delivery status, increments
// warehouse stock and appends a movement ledger row, then re-evaluates every
// touched order's status from its items. All of it commits or none of it.
func (s *Service) ReceiveOrderItems(ctx context.Context, input ReceiveInput, actor shared.Actor) error {
	if input.WarehouseID == 0 {
		return fmt.Errorf("%w: warehouse_id required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: items must be a non-empty list", ErrValidation)
	}
	for _, entry := range input.Items {
		if entry.PurchaseOrderItemID == 0 || entry.ReceivedQuantity < 0 {
			return fmt.Errorf("%w: invalid receive entry", ErrValidation)
		}
	}

	claimed := false
	if input.EventKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, "receive:"+input.EventKey, "procurement.receive"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return fmt.Errorf("%w: receipt already processed", shared.ErrConflict)
			}
			return err
		}
		claimed = true
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var warehouse *inventory.Warehouse
		touchedOrders := make([]int64, 0, len(input.Items))
		seenOrder := make(map[int64]bool)
		touchedRequests := make([]int64, 0, len(input.Items))
		seenRequest := make(map[int64]bool)

		for _, entry := range input.Items {
			item, err := tx.GetOrderItemForUpdate(ctx, entry.PurchaseOrderItemID)
			if err != nil {
				return err
			}
			deliveredTotal := item.DeliveredQuantity + entry.ReceivedQuantity
			status := classifyDelivery(entry.ReceivedQuantity, deliveredTotal, item.Quantity)
			if err := tx.UpdateOrderItemDelivery(ctx, item.ID, deliveredTotal, status); err != nil {
				return err
			}

			if entry.ReceivedQuantity > 0 {
				if warehouse == nil {
					w, err := tx.GetWarehouse(ctx, input.WarehouseID)
					if err != nil {
						if errors.Is(err, inventory.ErrWarehouseNotFound) {
							return fmt.Errorf("%w: warehouse %d", ErrNotFound, input.WarehouseID)
						}
						return err
					}
					warehouse = &w
				}
				key := inventory.StockKey{
					WarehouseID:   input.WarehouseID,
					MaterialID:    item.MaterialID,
					MaterialType:  item.MaterialType,
					UnitOfMeasure: item.UnitOfMeasure,
				}
				if err := tx.IncrementStock(ctx, key, entry.ReceivedQuantity); err != nil {
					return err
				}
				if err := tx.InsertMovement(ctx, inventory.MaterialMovement{
					ProjectID:     warehouse.ProjectID,
					Date:          time.Now(),
					ToWarehouseID: input.WarehouseID,
					MaterialID:    item.MaterialID,
					Quantity:      entry.ReceivedQuantity,
					Operation:     inventory.OperationIn,
					UserID:        actor.UserID,
					Note:          inventory.SystemMovementNote,
					Status:        inventory.MovementStatusPosted,
				}); err != nil {
					return err
				}
			}

			if !seenOrder[item.PurchaseOrderID] {
				seenOrder[item.PurchaseOrderID] = true
				touchedOrders = append(touchedOrders, item.PurchaseOrderID)
			}
			if item.MaterialRequestID != 0 && !seenRequest[item.MaterialRequestID] {
				seenRequest[item.MaterialRequestID] = true
				touchedRequests = append(touchedRequests, item.MaterialRequestID)
			}
		}

		for _, orderID := range touchedOrders {
			statuses, err := tx.ListOrderItemStatuses(ctx, orderID)
			if err != nil {
				return err
			}
			if err := tx.SetOrderStatus(ctx, orderID, orderStatusFor(statuses)); err != nil {
				return err
			}
		}

		if s.cfg.AutoFulfill {
			for _, requestID := range touchedRequests {
				statuses, err := tx.ListRequestDeliveryStatuses(ctx, requestID)
				if err != nil {
					return err
				}
				if allFullyDelivered(statuses) {
					if err := tx.SetRequestStatus(ctx, requestID, RequestFulfilled); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		if claimed {
			_ = s.idempotency.Delete(ctx, "receive:"+input.EventKey)
		}
		return err
	}
	return nil
}
