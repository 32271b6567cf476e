// Package procurement implements the material-procurement pipeline: material
// requests with five-party approval, purchase orders against approved request
// items, and warehouse receiving with derived status propagation.
package procurement

import (
	"fmt"
	"time"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// RequestStatus is the material request lifecycle.
type RequestStatus int

const (
	RequestPendingApproval RequestStatus = 1
	RequestApproved        RequestStatus = 2
	RequestInExecution     RequestStatus = 3
	RequestFulfilled       RequestStatus = 4
	RequestCancelled       RequestStatus = 5
)

// RequestItemStatus is derived from ordered quantities, never set directly.
type RequestItemStatus int

const (
	ItemRequested        RequestItemStatus = 1
	ItemApproved         RequestItemStatus = 2
	ItemPartiallyOrdered RequestItemStatus = 3
	ItemFullyOrdered     RequestItemStatus = 4
)

// OrderStatus is set by the receiving engine only.
type OrderStatus int

const (
	OrderCreated            OrderStatus = 1
	OrderInDelivery         OrderStatus = 3
	OrderPartiallyDelivered OrderStatus = 4
	OrderFullyDelivered     OrderStatus = 5
)

// OrderItemStatus classifies delivery progress per purchase order item.
type OrderItemStatus int

const (
	OrderItemFullyDelivered     OrderItemStatus = 4
	OrderItemPartiallyDelivered OrderItemStatus = 5
	OrderItemNotDelivered       OrderItemStatus = 6
)

// MaterialRequest is a site's ask for materials, gated by five-role approval.
type MaterialRequest struct {
	ID        int64         `json:"id"`
	ProjectID int64         `json:"project_id"`
	StageID   int64         `json:"stage_id,omitempty"`
	Status    RequestStatus `json:"status"`
	Comment   string        `json:"comment,omitempty"`

	ApprovedByForeman       bool       `json:"approved_by_foreman"`
	ApprovedByForemanTime   *time.Time `json:"approved_by_foreman_time,omitempty"`
	ApprovedByForemanUserID int64      `json:"approved_by_foreman_user_id,omitempty"`

	ApprovedBySiteManager       bool       `json:"approved_by_site_manager"`
	ApprovedBySiteManagerTime   *time.Time `json:"approved_by_site_manager_time,omitempty"`
	ApprovedBySiteManagerUserID int64      `json:"approved_by_site_manager_user_id,omitempty"`

	ApprovedByPurchasingAgent       bool       `json:"approved_by_purchasing_agent"`
	ApprovedByPurchasingAgentTime   *time.Time `json:"approved_by_purchasing_agent_time,omitempty"`
	ApprovedByPurchasingAgentUserID int64      `json:"approved_by_purchasing_agent_user_id,omitempty"`

	ApprovedByPlanningEngineer       bool       `json:"approved_by_planning_engineer"`
	ApprovedByPlanningEngineerTime   *time.Time `json:"approved_by_planning_engineer_time,omitempty"`
	ApprovedByPlanningEngineerUserID int64      `json:"approved_by_planning_engineer_user_id,omitempty"`

	ApprovedByMainEngineer       bool       `json:"approved_by_main_engineer"`
	ApprovedByMainEngineerTime   *time.Time `json:"approved_by_main_engineer_time,omitempty"`
	ApprovedByMainEngineerUserID int64      `json:"approved_by_main_engineer_user_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Deleted   bool      `json:"deleted"`

	Items []MaterialRequestItem `json:"items,omitempty"`
}

// MaterialRequestItem is one requested line, owned by its request.
type MaterialRequestItem struct {
	ID                int64             `json:"id"`
	MaterialRequestID int64             `json:"material_request_id"`
	MaterialType      int64             `json:"material_type"`
	MaterialID        int64             `json:"material_id"`
	UnitOfMeasure     int64             `json:"unit_of_measure"`
	Quantity          float64           `json:"quantity"`
	Price             float64           `json:"price,omitempty"`
	Summ              float64           `json:"summ,omitempty"`
	Currency          int64             `json:"currency,omitempty"`
	Status            RequestItemStatus `json:"status"`
	Comment           string            `json:"comment,omitempty"`
	Deleted           bool              `json:"deleted"`
}

// PurchaseOrder is a supplier-facing commitment derived from approved
// request items.
type PurchaseOrder struct {
	ID            int64       `json:"id"`
	ProjectID     int64       `json:"project_id"`
	SupplierID    int64       `json:"supplier_id"`
	CreatedUserID int64       `json:"created_user_id"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Deleted       bool        `json:"deleted"`

	Items []PurchaseOrderItem `json:"items,omitempty"`
}

// PurchaseOrderItem is one ordered line. It keeps a non-owning back-reference
// to the originating request item for status propagation.
type PurchaseOrderItem struct {
	ID                    int64           `json:"id"`
	PurchaseOrderID       int64           `json:"purchase_order_id"`
	MaterialRequestItemID int64           `json:"material_request_item_id"`
	MaterialType          int64           `json:"material_type"`
	MaterialID            int64           `json:"material_id"`
	UnitOfMeasure         int64           `json:"unit_of_measure"`
	Quantity              float64         `json:"quantity"`
	Price                 float64         `json:"price,omitempty"`
	Summ                  float64         `json:"summ,omitempty"`
	DeliveredQuantity     float64         `json:"delivered_quantity"`
	Status                OrderItemStatus `json:"status,omitempty"`
	Deleted               bool            `json:"deleted"`

	// MaterialRequestID is resolved through the request-item join; it is
	// carried for propagation, never persisted on the order item row.
	MaterialRequestID int64 `json:"-"`
}

// Package sentinels wrap the shared taxonomy so handlers translate them
// uniformly.
var (
	// ErrValidation indicates invalid input; no mutation was attempted.
	ErrValidation = fmt.Errorf("procurement: %w", shared.ErrValidation)
	// ErrNotFound indicates a referenced record is missing.
	ErrNotFound = fmt.Errorf("procurement: %w", shared.ErrNotFound)
)

// fullyApproved reports whether all five ballot flags in the submitted
// payload are true. Flags absent from the payload count as false: the caller
// must resend previously granted flags for the final approval to trigger.
func fullyApproved(flags [5]*bool) bool {
	for _, flag := range flags {
		if flag == nil || !*flag {
			return false
		}
	}
	return true
}

// classifyOrdered derives a request item's status from the total quantity
// ordered against it. The zero return means "leave unchanged".
func classifyOrdered(requested, ordered float64) RequestItemStatus {
	switch {
	case ordered >= requested && requested > 0:
		return ItemFullyOrdered
	case ordered > 0:
		return ItemPartiallyOrdered
	default:
		return 0
	}
}

// classifyDelivery derives an order item's status from one receipt. A zero
// received quantity marks the item not delivered without touching stock.
func classifyDelivery(received, deliveredTotal, ordered float64) OrderItemStatus {
	switch {
	case received == 0:
		return OrderItemNotDelivered
	case deliveredTotal >= ordered:
		return OrderItemFullyDelivered
	default:
		return OrderItemPartiallyDelivered
	}
}

// orderStatusFor re-evaluates an order from all of its items' statuses.
// Recomputed from scratch after every receipt, so repeated evaluation with no
// new receipts is idempotent.
func orderStatusFor(itemStatuses []OrderItemStatus) OrderStatus {
	if len(itemStatuses) == 0 {
		return OrderPartiallyDelivered
	}
	for _, status := range itemStatuses {
		if status != OrderItemFullyDelivered {
			return OrderPartiallyDelivered
		}
	}
	return OrderFullyDelivered
}

// allFullyDelivered reports whether every order item in the slice is fully
// delivered; used by optional request auto-fulfilment.
func allFullyDelivered(itemStatuses []OrderItemStatus) bool {
	if len(itemStatuses) == 0 {
		return false
	}
	for _, status := range itemStatuses {
		if status != OrderItemFullyDelivered {
			return false
		}
	}
	return true
}
