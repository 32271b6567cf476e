package procurement

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/audit"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/inventory"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/notify"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// memRepo keeps the whole pipeline in maps and honors transactional rollback
// by restoring a snapshot when the WithTx callback fails.
type memRepo struct {
	requests     map[int64]MaterialRequest
	requestItems map[int64]MaterialRequestItem
	orders       map[int64]PurchaseOrder
	orderItems   map[int64]PurchaseOrderItem
	warehouses   map[int64]inventory.Warehouse
	stock        map[inventory.StockKey]float64
	movements    []inventory.MaterialMovement
	auditEntries []audit.Entry
	nextID       int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		requests:     map[int64]MaterialRequest{},
		requestItems: map[int64]MaterialRequestItem{},
		orders:       map[int64]PurchaseOrder{},
		orderItems:   map[int64]PurchaseOrderItem{},
		warehouses:   map[int64]inventory.Warehouse{},
		stock:        map[inventory.StockKey]float64{},
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) snapshot() *memRepo {
	clone := newMemRepo()
	clone.nextID = m.nextID
	for k, v := range m.requests {
		clone.requests[k] = v
	}
	for k, v := range m.requestItems {
		clone.requestItems[k] = v
	}
	for k, v := range m.orders {
		clone.orders[k] = v
	}
	for k, v := range m.orderItems {
		clone.orderItems[k] = v
	}
	for k, v := range m.warehouses {
		clone.warehouses[k] = v
	}
	for k, v := range m.stock {
		clone.stock[k] = v
	}
	clone.movements = append([]inventory.MaterialMovement(nil), m.movements...)
	clone.auditEntries = append([]audit.Entry(nil), m.auditEntries...)
	return clone
}

func (m *memRepo) restore(snap *memRepo) {
	*m = *snap
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memRepo) CreateRequest(_ context.Context, request MaterialRequest) (int64, error) {
	request.ID = m.id()
	m.requests[request.ID] = request
	return request.ID, nil
}

func (m *memRepo) InsertRequestItems(_ context.Context, requestID int64, items []MaterialRequestItem) error {
	for _, item := range items {
		item.ID = m.id()
		item.MaterialRequestID = requestID
		m.requestItems[item.ID] = item
	}
	return nil
}

func (m *memRepo) GetRequestForUpdate(_ context.Context, id int64) (MaterialRequest, error) {
	request, ok := m.requests[id]
	if !ok || request.Deleted {
		return MaterialRequest{}, ErrNotFound
	}
	return request, nil
}

func (m *memRepo) UpdateRequest(_ context.Context, request MaterialRequest) error {
	if _, ok := m.requests[request.ID]; !ok {
		return ErrNotFound
	}
	m.requests[request.ID] = request
	return nil
}

func (m *memRepo) ListRequestItems(_ context.Context, requestID int64) ([]MaterialRequestItem, error) {
	var items []MaterialRequestItem
	for _, item := range m.requestItems {
		if item.MaterialRequestID == requestID && !item.Deleted {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *memRepo) SetRequestItemsStatus(_ context.Context, requestID int64, status RequestItemStatus) error {
	for id, item := range m.requestItems {
		if item.MaterialRequestID == requestID && !item.Deleted {
			item.Status = status
			m.requestItems[id] = item
		}
	}
	return nil
}

func (m *memRepo) SetRequestStatus(_ context.Context, requestID int64, status RequestStatus) error {
	request, ok := m.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	request.Status = status
	m.requests[requestID] = request
	return nil
}

func (m *memRepo) CreateOrder(_ context.Context, order PurchaseOrder) (int64, error) {
	order.ID = m.id()
	m.orders[order.ID] = order
	return order.ID, nil
}

func (m *memRepo) InsertOrderItems(_ context.Context, orderID int64, items []PurchaseOrderItem) error {
	for _, item := range items {
		item.ID = m.id()
		item.PurchaseOrderID = orderID
		m.orderItems[item.ID] = item
	}
	return nil
}

func (m *memRepo) GetRequestItemsForUpdate(_ context.Context, ids []int64) ([]MaterialRequestItem, error) {
	var items []MaterialRequestItem
	for _, id := range ids {
		if item, ok := m.requestItems[id]; ok && !item.Deleted {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *memRepo) SumOrderedQuantities(_ context.Context, requestItemIDs []int64) (map[int64]float64, error) {
	wanted := map[int64]bool{}
	for _, id := range requestItemIDs {
		wanted[id] = true
	}
	sums := map[int64]float64{}
	for _, item := range m.orderItems {
		if item.Deleted || !wanted[item.MaterialRequestItemID] {
			continue
		}
		if order, ok := m.orders[item.PurchaseOrderID]; ok && order.Deleted {
			continue
		}
		sums[item.MaterialRequestItemID] += item.Quantity
	}
	return sums, nil
}

func (m *memRepo) SetRequestItemStatus(_ context.Context, itemID int64, status RequestItemStatus) error {
	item, ok := m.requestItems[itemID]
	if !ok {
		return ErrNotFound
	}
	item.Status = status
	m.requestItems[itemID] = item
	return nil
}

func (m *memRepo) MarkRequestsInExecution(_ context.Context, requestIDs []int64) error {
	for _, id := range requestIDs {
		if request, ok := m.requests[id]; ok && !request.Deleted {
			request.Status = RequestInExecution
			m.requests[id] = request
		}
	}
	return nil
}

func (m *memRepo) GetOrderItemForUpdate(_ context.Context, id int64) (PurchaseOrderItem, error) {
	item, ok := m.orderItems[id]
	if !ok || item.Deleted {
		return PurchaseOrderItem{}, ErrNotFound
	}
	if requestItem, ok := m.requestItems[item.MaterialRequestItemID]; ok {
		item.MaterialRequestID = requestItem.MaterialRequestID
	}
	return item, nil
}

func (m *memRepo) UpdateOrderItemDelivery(_ context.Context, id int64, deliveredTotal float64, status OrderItemStatus) error {
	item, ok := m.orderItems[id]
	if !ok {
		return ErrNotFound
	}
	item.DeliveredQuantity = deliveredTotal
	item.Status = status
	m.orderItems[id] = item
	return nil
}

func (m *memRepo) ListOrderItemStatuses(_ context.Context, orderID int64) ([]OrderItemStatus, error) {
	var statuses []OrderItemStatus
	for _, item := range m.orderItems {
		if item.PurchaseOrderID == orderID && !item.Deleted {
			statuses = append(statuses, item.Status)
		}
	}
	return statuses, nil
}

func (m *memRepo) SetOrderStatus(_ context.Context, orderID int64, status OrderStatus) error {
	order, ok := m.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	m.orders[orderID] = order
	return nil
}

func (m *memRepo) ListRequestDeliveryStatuses(_ context.Context, requestID int64) ([]OrderItemStatus, error) {
	var statuses []OrderItemStatus
	for _, item := range m.orderItems {
		if item.Deleted {
			continue
		}
		requestItem, ok := m.requestItems[item.MaterialRequestItemID]
		if !ok || requestItem.MaterialRequestID != requestID {
			continue
		}
		statuses = append(statuses, item.Status)
	}
	return statuses, nil
}

func (m *memRepo) GetWarehouse(_ context.Context, warehouseID int64) (inventory.Warehouse, error) {
	warehouse, ok := m.warehouses[warehouseID]
	if !ok {
		return inventory.Warehouse{}, inventory.ErrWarehouseNotFound
	}
	return warehouse, nil
}

func (m *memRepo) IncrementStock(_ context.Context, key inventory.StockKey, amount float64) error {
	m.stock[key] += amount
	return nil
}

func (m *memRepo) InsertMovement(_ context.Context, movement inventory.MaterialMovement) error {
	m.movements = append(m.movements, movement)
	return nil
}

func (m *memRepo) RecordAudit(_ context.Context, entry audit.Entry) (bool, error) {
	m.auditEntries = append(m.auditEntries, entry)
	return true, nil
}

func (m *memRepo) GetRequest(_ context.Context, id int64) (MaterialRequest, error) {
	request, ok := m.requests[id]
	if !ok || request.Deleted {
		return MaterialRequest{}, ErrNotFound
	}
	for _, item := range m.requestItems {
		if item.MaterialRequestID == id && !item.Deleted {
			request.Items = append(request.Items, item)
		}
	}
	sort.Slice(request.Items, func(i, j int) bool { return request.Items[i].ID < request.Items[j].ID })
	return request, nil
}

func (m *memRepo) SearchRequests(_ context.Context, filter RequestFilter) ([]MaterialRequest, int, error) {
	var out []MaterialRequest
	for _, request := range m.requests {
		if request.Deleted {
			continue
		}
		if filter.ProjectID > 0 && request.ProjectID != filter.ProjectID {
			continue
		}
		out = append(out, request)
	}
	return out, len(out), nil
}

func (m *memRepo) SoftDeleteRequest(_ context.Context, id int64) error {
	request, ok := m.requests[id]
	if !ok || request.Deleted {
		return ErrNotFound
	}
	request.Deleted = true
	m.requests[id] = request
	return nil
}

func (m *memRepo) GetOrder(_ context.Context, id int64) (PurchaseOrder, error) {
	order, ok := m.orders[id]
	if !ok || order.Deleted {
		return PurchaseOrder{}, ErrNotFound
	}
	for _, item := range m.orderItems {
		if item.PurchaseOrderID == id && !item.Deleted {
			order.Items = append(order.Items, item)
		}
	}
	return order, nil
}

func (m *memRepo) SearchOrders(_ context.Context, filter OrderFilter) ([]PurchaseOrder, int, error) {
	var out []PurchaseOrder
	for _, order := range m.orders {
		if !order.Deleted {
			out = append(out, order)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) SoftDeleteOrder(_ context.Context, id int64) error {
	order, ok := m.orders[id]
	if !ok || order.Deleted {
		return ErrNotFound
	}
	order.Deleted = true
	m.orders[id] = order
	for itemID, item := range m.orderItems {
		if item.PurchaseOrderID == id {
			item.Deleted = true
			m.orderItems[itemID] = item
		}
	}
	return nil
}

type fakeNotifier struct {
	sent []notify.MaterialRequestApprovedMessage
	err  error
}

func (f *fakeNotifier) SendMaterialRequestApproved(_ context.Context, msg notify.MaterialRequestApprovedMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeRecipients struct{ emails []string }

func (f *fakeRecipients) ActivePurchasingAgentEmails(context.Context) ([]string, error) {
	return f.emails, nil
}

type fakeDirectory struct{}

func (fakeDirectory) ProjectName(context.Context, int64) (string, error) {
	return "Riverside Residences", nil
}
func (fakeDirectory) MaterialName(context.Context, int64, int64) (string, error) {
	return "Cement M500", nil
}
func (fakeDirectory) UnitName(context.Context, int64) (string, error) { return "bag", nil }

type fakeIdempotency struct {
	claimed map[string]bool
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.claimed == nil {
		f.claimed = map[string]bool{}
	}
	if f.claimed[key] {
		return shared.ErrIdempotencyConflict
	}
	f.claimed[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(_ context.Context, key string) error {
	delete(f.claimed, key)
	return nil
}

func newTestService(repo *memRepo, notifier *fakeNotifier, cfg Config) *Service {
	return NewService(repo, notifier, &fakeRecipients{emails: []string{"purchasing@dreamhouse.local"}}, fakeDirectory{}, &fakeIdempotency{}, cfg)
}

func seedRequest(t *testing.T, svc *Service, quantities ...float64) MaterialRequest {
	t.Helper()
	input := CreateRequestInput{ProjectID: 1}
	for _, q := range quantities {
		input.Items = append(input.Items, RequestItemInput{MaterialType: 1, MaterialID: 10, UnitOfMeasure: 5, Quantity: q, Price: 100})
	}
	created, err := svc.CreateMaterialRequest(context.Background(), input)
	require.NoError(t, err)
	// Refetch so the items carry their assigned ids.
	request, err := svc.GetMaterialRequest(context.Background(), created.ID)
	require.NoError(t, err)
	return request
}

func approveAll(t *testing.T, svc *Service, id int64) {
	t.Helper()
	yes := true
	_, err := svc.UpdateMaterialRequest(context.Background(), id, UpdateRequestInput{
		ApprovedByForeman:          &yes,
		ApprovedBySiteManager:      &yes,
		ApprovedByPurchasingAgent:  &yes,
		ApprovedByPlanningEngineer: &yes,
		ApprovedByMainEngineer:     &yes,
	}, shared.Actor{UserID: 7})
	require.NoError(t, err)
}

func TestCreateMaterialRequest(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})

	_, err := svc.CreateMaterialRequest(context.Background(), CreateRequestInput{ProjectID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	request := seedRequest(t, svc, 100, 50)
	require.Equal(t, RequestPendingApproval, request.Status)
	require.Len(t, request.Items, 2)
	require.Equal(t, ItemRequested, request.Items[0].Status)
	require.InDelta(t, 10000.0, request.Items[0].Summ, 1e-9)
}

func TestUpdateMaterialRequestApprovalCascade(t *testing.T) {
	repo := newMemRepo()
	notifier := &fakeNotifier{}
	svc := newTestService(repo, notifier, Config{})
	request := seedRequest(t, svc, 100)

	yes := true
	// Four of five: no cascade yet.
	updated, err := svc.UpdateMaterialRequest(context.Background(), request.ID, UpdateRequestInput{
		ApprovedByForeman:          &yes,
		ApprovedBySiteManager:      &yes,
		ApprovedByPurchasingAgent:  &yes,
		ApprovedByPlanningEngineer: &yes,
	}, shared.Actor{UserID: 3})
	require.NoError(t, err)
	require.Equal(t, RequestPendingApproval, updated.Status)
	require.True(t, updated.ApprovedByForeman)
	require.NotNil(t, updated.ApprovedByForemanTime)
	require.Equal(t, int64(3), updated.ApprovedByForemanUserID)
	require.Empty(t, notifier.sent)

	// The final approver sends only their own flag: stored flags are not
	// merged in, so the cascade still must not fire.
	updated, err = svc.UpdateMaterialRequest(context.Background(), request.ID, UpdateRequestInput{
		ApprovedByMainEngineer: &yes,
	}, shared.Actor{UserID: 6})
	require.NoError(t, err)
	require.Equal(t, RequestPendingApproval, updated.Status)
	require.Empty(t, notifier.sent)

	// All five flags in one payload: request and items approved, mail sent.
	approveAll(t, svc, request.ID)
	approved, err := svc.GetMaterialRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestApproved, approved.Status)
	require.Equal(t, ItemApproved, approved.Items[0].Status)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, []string{"purchasing@dreamhouse.local"}, notifier.sent[0].Recipients)
	require.Equal(t, "Riverside Residences", notifier.sent[0].ProjectName)
}

type failingDirectory struct{}

func (failingDirectory) ProjectName(context.Context, int64) (string, error) {
	return "", errors.New("directory down")
}
func (failingDirectory) MaterialName(context.Context, int64, int64) (string, error) {
	return "", errors.New("directory down")
}
func (failingDirectory) UnitName(context.Context, int64) (string, error) {
	return "", errors.New("directory down")
}

func TestApprovalMailSurvivesLookupFailures(t *testing.T) {
	repo := newMemRepo()
	notifier := &fakeNotifier{}
	svc := NewService(repo, notifier, &fakeRecipients{emails: []string{"purchasing@dreamhouse.local"}}, failingDirectory{}, &fakeIdempotency{}, Config{})
	request := seedRequest(t, svc, 100)

	approveAll(t, svc, request.ID)

	// Display names degrade to the numeric fallback; the approval and the
	// send still go through.
	approved, err := svc.GetMaterialRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestApproved, approved.Status)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, "project 1", notifier.sent[0].ProjectName)
	require.Empty(t, notifier.sent[0].Items[0].MaterialName)
}

func TestUpdateMaterialRequestNotificationFailureRollsBack(t *testing.T) {
	repo := newMemRepo()
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	svc := newTestService(repo, notifier, Config{})
	request := seedRequest(t, svc, 100)

	yes := true
	_, err := svc.UpdateMaterialRequest(context.Background(), request.ID, UpdateRequestInput{
		ApprovedByForeman:          &yes,
		ApprovedBySiteManager:      &yes,
		ApprovedByPurchasingAgent:  &yes,
		ApprovedByPlanningEngineer: &yes,
		ApprovedByMainEngineer:     &yes,
	}, shared.Actor{UserID: 1})
	require.ErrorIs(t, err, shared.ErrDependency)

	// Nothing committed: flags, status and items all revert.
	stored, err := svc.GetMaterialRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestPendingApproval, stored.Status)
	require.False(t, stored.ApprovedByForeman)
	require.Equal(t, ItemRequested, stored.Items[0].Status)
}

func TestUpdateMaterialRequestRejectsDerivedStatus(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})
	request := seedRequest(t, svc, 100)

	status := RequestApproved
	_, err := svc.UpdateMaterialRequest(context.Background(), request.ID, UpdateRequestInput{Status: &status}, shared.Actor{})
	require.ErrorIs(t, err, shared.ErrValidation)

	cancelled := RequestCancelled
	updated, err := svc.UpdateMaterialRequest(context.Background(), request.ID, UpdateRequestInput{Status: &cancelled}, shared.Actor{})
	require.NoError(t, err)
	require.Equal(t, RequestCancelled, updated.Status)
}

func TestCreatePurchaseOrderEscalatesItemStatuses(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})
	request := seedRequest(t, svc, 100)
	approveAll(t, svc, request.ID)
	itemID := request.Items[0].ID

	// First partial order: 40 of 100.
	order, err := svc.CreatePurchaseOrder(context.Background(), CreateOrderInput{
		ProjectID:  1,
		SupplierID: 2,
		Items:      []OrderItemInput{{MaterialRequestItemID: itemID, MaterialType: 1, MaterialID: 10, UnitOfMeasure: 5, Quantity: 40}},
	})
	require.NoError(t, err)
	require.Equal(t, OrderInDelivery, order.Status)
	require.Equal(t, ItemPartiallyOrdered, repo.requestItems[itemID].Status)
	require.Equal(t, RequestInExecution, repo.requests[request.ID].Status)

	// Second order brings the recomputed total to 100: escalates to fully
	// ordered without double counting.
	_, err = svc.CreatePurchaseOrder(context.Background(), CreateOrderInput{
		ProjectID:  1,
		SupplierID: 2,
		Items:      []OrderItemInput{{MaterialRequestItemID: itemID, MaterialType: 1, MaterialID: 10, UnitOfMeasure: 5, Quantity: 60}},
	})
	require.NoError(t, err)
	require.Equal(t, ItemFullyOrdered, repo.requestItems[itemID].Status)
}

func TestCreatePurchaseOrderExcludesCancelledOrders(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})
	request := seedRequest(t, svc, 100)
	approveAll(t, svc, request.ID)
	itemID := request.Items[0].ID

	first, err := svc.CreatePurchaseOrder(context.Background(), CreateOrderInput{
		ProjectID:  1,
		SupplierID: 2,
		Items:      []OrderItemInput{{MaterialRequestItemID: itemID, MaterialType: 1, MaterialID: 10, UnitOfMeasure: 5, Quantity: 40}},
	})
	require.NoError(t, err)
	require.Equal(t, ItemPartiallyOrdered, repo.requestItems[itemID].Status)

	// Cancelling the first order removes its 40 from the recomputed total:
	// the next 60 covers only 60 of 100, not 100.
	require.NoError(t, svc.DeletePurchaseOrder(context.Background(), first.ID))

	_, err = svc.CreatePurchaseOrder(context.Background(), CreateOrderInput{
		ProjectID:  1,
		SupplierID: 2,
		Items:      []OrderItemInput{{MaterialRequestItemID: itemID, MaterialType: 1, MaterialID: 10, UnitOfMeasure: 5, Quantity: 60}},
	})
	require.NoError(t, err)
	require.Equal(t, ItemPartiallyOrdered, repo.requestItems[itemID].Status)

	// A further 40 against the surviving 60 completes the quantity.
	_, err = svc.CreatePurchaseOrder(context.Background(), CreateOrderInput{
		ProjectID:  1,
		SupplierID: 2,
		Items:      []OrderItemInput{{MaterialRequestItemID: itemID, MaterialType: 1, MaterialID: 10, UnitOfMeasure: 5, Quantity: 40}},
	})
	require.NoError(t, err)
	require.Equal(t, ItemFullyOrdered, repo.requestItems[itemID].Status)
}

func TestApprovalCascadeSkipsRemovedItems(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})
	request := seedRequest(t, svc, 100, 50)
	removedID := request.Items[1].ID

	removed := repo.requestItems[removedID]
	removed.Deleted = true
	repo.requestItems[removedID] = removed

	approveAll(t, svc, request.ID)

	approved, err := svc.GetMaterialRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestApproved, approved.Status)
	require.Len(t, approved.Items, 1)
	require.Equal(t, ItemApproved, approved.Items[0].Status)
	// The removed item keeps its original status.
	require.Equal(t, ItemRequested, repo.requestItems[removedID].Status)
}

func TestCreatePurchaseOrderValidation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})

	_, err := svc.CreatePurchaseOrder(context.Background(), CreateOrderInput{ProjectID: 1, SupplierID: 2})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreatePurchaseOrder(context.Background(), CreateOrderInput{
		ProjectID:  1,
		SupplierID: 2,
		Items:      []OrderItemInput{{MaterialRequestItemID: 999, MaterialID: 10, UnitOfMeasure: 5, Quantity: 10}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func receivingFixture(t *testing.T, svc *Service, repo *memRepo) (request MaterialRequest, orderItemID int64) {
	t.Helper()
	request = seedRequest(t, svc, 100)
	approveAll(t, svc, request.ID)
	repo.warehouses[77] = inventory.Warehouse{ID: 77, ProjectID: 1, Name: "Main Site Warehouse"}
	order, err := svc.CreatePurchaseOrder(context.Background(), CreateOrderInput{
		ProjectID:  1,
		SupplierID: 2,
		Items:      []OrderItemInput{{MaterialRequestItemID: request.Items[0].ID, MaterialType: 1, MaterialID: 10, UnitOfMeasure: 5, Quantity: 100}},
	})
	require.NoError(t, err)
	stored, err := svc.GetPurchaseOrder(context.Background(), order.ID)
	require.NoError(t, err)
	return request, stored.Items[0].ID
}

func TestReceiveOrderItemsPartialThenFull(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})
	_, orderItemID := receivingFixture(t, svc, repo)
	actor := shared.Actor{UserID: 9}

	err := svc.ReceiveOrderItems(context.Background(), ReceiveInput{
		WarehouseID: 77,
		Items:       []ReceiveItemInput{{PurchaseOrderItemID: orderItemID, ReceivedQuantity: 40}},
	}, actor)
	require.NoError(t, err)

	item := repo.orderItems[orderItemID]
	require.InDelta(t, 40.0, item.DeliveredQuantity, 1e-9)
	require.Equal(t, OrderItemPartiallyDelivered, item.Status)
	require.Equal(t, OrderPartiallyDelivered, repo.orders[item.PurchaseOrderID].Status)

	key := inventory.StockKey{WarehouseID: 77, MaterialID: 10, MaterialType: 1, UnitOfMeasure: 5}
	require.InDelta(t, 40.0, repo.stock[key], 1e-9)
	require.Len(t, repo.movements, 1)
	require.Equal(t, int64(1), repo.movements[0].ProjectID)
	require.Equal(t, inventory.OperationIn, repo.movements[0].Operation)
	require.Equal(t, inventory.SystemMovementNote, repo.movements[0].Note)
	require.Equal(t, int64(9), repo.movements[0].UserID)

	// Second receipt accumulates to the ordered quantity.
	err = svc.ReceiveOrderItems(context.Background(), ReceiveInput{
		WarehouseID: 77,
		Items:       []ReceiveItemInput{{PurchaseOrderItemID: orderItemID, ReceivedQuantity: 60}},
	}, actor)
	require.NoError(t, err)

	item = repo.orderItems[orderItemID]
	require.InDelta(t, 100.0, item.DeliveredQuantity, 1e-9)
	require.Equal(t, OrderItemFullyDelivered, item.Status)
	require.Equal(t, OrderFullyDelivered, repo.orders[item.PurchaseOrderID].Status)
	require.InDelta(t, 100.0, repo.stock[key], 1e-9)
	require.Len(t, repo.movements, 2)
}

func TestReceiveOrderItemsZeroQuantity(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})
	_, orderItemID := receivingFixture(t, svc, repo)

	err := svc.ReceiveOrderItems(context.Background(), ReceiveInput{
		WarehouseID: 77,
		Items:       []ReceiveItemInput{{PurchaseOrderItemID: orderItemID, ReceivedQuantity: 0}},
	}, shared.Actor{})
	require.NoError(t, err)

	// Marked not delivered without touching stock or the movement ledger.
	require.Equal(t, OrderItemNotDelivered, repo.orderItems[orderItemID].Status)
	require.Empty(t, repo.stock)
	require.Empty(t, repo.movements)
}

func TestReceiveOrderItemsValidation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})
	_, orderItemID := receivingFixture(t, svc, repo)

	err := svc.ReceiveOrderItems(context.Background(), ReceiveInput{WarehouseID: 77}, shared.Actor{})
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.ReceiveOrderItems(context.Background(), ReceiveInput{
		WarehouseID: 77,
		Items:       []ReceiveItemInput{{PurchaseOrderItemID: orderItemID, ReceivedQuantity: -5}},
	}, shared.Actor{})
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.ReceiveOrderItems(context.Background(), ReceiveInput{
		WarehouseID: 404,
		Items:       []ReceiveItemInput{{PurchaseOrderItemID: orderItemID, ReceivedQuantity: 10}},
	}, shared.Actor{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReceiveOrderItemsIdempotencyKey(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})
	_, orderItemID := receivingFixture(t, svc, repo)

	input := ReceiveInput{
		WarehouseID: 77,
		Items:       []ReceiveItemInput{{PurchaseOrderItemID: orderItemID, ReceivedQuantity: 40}},
		EventKey:    "grn-2024-0001",
	}
	require.NoError(t, svc.ReceiveOrderItems(context.Background(), input, shared.Actor{}))

	err := svc.ReceiveOrderItems(context.Background(), input, shared.Actor{})
	require.ErrorIs(t, err, shared.ErrConflict)

	// The replay did not double-count.
	require.InDelta(t, 40.0, repo.orderItems[orderItemID].DeliveredQuantity, 1e-9)
}

func TestReceiveOrderItemsAutoFulfill(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{AutoFulfill: true})
	request, orderItemID := receivingFixture(t, svc, repo)

	err := svc.ReceiveOrderItems(context.Background(), ReceiveInput{
		WarehouseID: 77,
		Items:       []ReceiveItemInput{{PurchaseOrderItemID: orderItemID, ReceivedQuantity: 100}},
	}, shared.Actor{})
	require.NoError(t, err)
	require.Equal(t, RequestFulfilled, repo.requests[request.ID].Status)
}

func TestReceiveOrderItemsNoAutoFulfillByDefault(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeNotifier{}, Config{})
	request, orderItemID := receivingFixture(t, svc, repo)

	err := svc.ReceiveOrderItems(context.Background(), ReceiveInput{
		WarehouseID: 77,
		Items:       []ReceiveItemInput{{PurchaseOrderItemID: orderItemID, ReceivedQuantity: 100}},
	}, shared.Actor{})
	require.NoError(t, err)
	// Fully delivered, but the request stays in execution for manual closing.
	require.Equal(t, RequestInExecution, repo.requests[request.ID].Status)
}
