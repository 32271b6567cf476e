package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/audit"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/inventory"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/platform/db"
)

// RequestFilter narrows the material request listing.
type RequestFilter struct {
	ProjectID int64
	Status    RequestStatus
	Page      int
	Size      int
}

// OrderFilter narrows the purchase order listing.
type OrderFilter struct {
	ProjectID  int64
	SupplierID int64
	Status     OrderStatus
	Page       int
	Size       int
}

// Repository persists the procurement pipeline in Postgres.
type Repository struct {
	pool     *pgxpool.Pool
	recorder *audit.Recorder
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool, recorder *audit.Recorder) *Repository {
	return &Repository{pool: pool, recorder: recorder}
}

// WithTx runs fn against a transaction-bound TxRepository.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, stock: inventory.NewTxStore(tx), recorder: r.recorder})
	})
}

const requestColumns = `id, project_id, COALESCE(stage_id, 0), status, COALESCE(comment, ''),
	approved_by_foreman, approved_by_foreman_time, COALESCE(approved_by_foreman_user_id, 0),
	approved_by_site_manager, approved_by_site_manager_time, COALESCE(approved_by_site_manager_user_id, 0),
	approved_by_purchasing_agent, approved_by_purchasing_agent_time, COALESCE(approved_by_purchasing_agent_user_id, 0),
	approved_by_planning_engineer, approved_by_planning_engineer_time, COALESCE(approved_by_planning_engineer_user_id, 0),
	approved_by_main_engineer, approved_by_main_engineer_time, COALESCE(approved_by_main_engineer_user_id, 0),
	created_at, updated_at, deleted`

func scanRequest(row pgx.Row) (MaterialRequest, error) {
	var m MaterialRequest
	err := row.Scan(
		&m.ID, &m.ProjectID, &m.StageID, &m.Status, &m.Comment,
		&m.ApprovedByForeman, &m.ApprovedByForemanTime, &m.ApprovedByForemanUserID,
		&m.ApprovedBySiteManager, &m.ApprovedBySiteManagerTime, &m.ApprovedBySiteManagerUserID,
		&m.ApprovedByPurchasingAgent, &m.ApprovedByPurchasingAgentTime, &m.ApprovedByPurchasingAgentUserID,
		&m.ApprovedByPlanningEngineer, &m.ApprovedByPlanningEngineerTime, &m.ApprovedByPlanningEngineerUserID,
		&m.ApprovedByMainEngineer, &m.ApprovedByMainEngineerTime, &m.ApprovedByMainEngineerUserID,
		&m.CreatedAt, &m.UpdatedAt, &m.Deleted,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return MaterialRequest{}, fmt.Errorf("%w: material request", ErrNotFound)
	}
	return m, err
}

const requestItemColumns = `id, material_request_id, material_type, material_id, unit_of_measure,
	quantity, price, summ, COALESCE(currency, 0), status, COALESCE(comment, ''), deleted`

func scanRequestItems(rows pgx.Rows) ([]MaterialRequestItem, error) {
	defer rows.Close()
	var items []MaterialRequestItem
	for rows.Next() {
		var it MaterialRequestItem
		if err := rows.Scan(&it.ID, &it.MaterialRequestID, &it.MaterialType, &it.MaterialID, &it.UnitOfMeasure,
			&it.Quantity, &it.Price, &it.Summ, &it.Currency, &it.Status, &it.Comment, &it.Deleted); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetRequest loads one request with its items.
func (r *Repository) GetRequest(ctx context.Context, id int64) (MaterialRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM material_requests WHERE id = $1 AND deleted = FALSE`, id)
	request, err := scanRequest(row)
	if err != nil {
		return MaterialRequest{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+requestItemColumns+` FROM material_request_items
WHERE material_request_id = $1 AND deleted = FALSE ORDER BY id`, id)
	if err != nil {
		return MaterialRequest{}, err
	}
	request.Items, err = scanRequestItems(rows)
	return request, err
}

// SearchRequests lists requests newest first with a total count.
func (r *Repository) SearchRequests(ctx context.Context, filter RequestFilter) ([]MaterialRequest, int, error) {
	where := ` WHERE deleted = FALSE`
	args := []any{}
	n := 1
	if filter.ProjectID > 0 {
		where += fmt.Sprintf(" AND project_id = $%d", n)
		args = append(args, filter.ProjectID)
		n++
	}
	if filter.Status > 0 {
		where += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
		n++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM material_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	size := filter.Size
	if size <= 0 {
		size = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT ` + requestColumns + ` FROM material_requests` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []MaterialRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// SoftDeleteRequest hides a request; rows and approval history survive.
func (r *Repository) SoftDeleteRequest(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE material_requests SET deleted = TRUE, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: material request", ErrNotFound)
	}
	return nil
}

const orderColumns = `id, project_id, supplier_id, COALESCE(created_user_id, 0), status, created_at, updated_at, deleted`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var o PurchaseOrder
	err := row.Scan(&o.ID, &o.ProjectID, &o.SupplierID, &o.CreatedUserID, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order", ErrNotFound)
	}
	return o, err
}

// GetOrder loads one order with its items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1 AND deleted = FALSE`, id)
	order, err := scanOrder(row)
	if err != nil {
		return PurchaseOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_order_id, material_request_item_id, material_type, material_id,
	unit_of_measure, quantity, price, summ, delivered_quantity, COALESCE(status, 0), deleted
FROM purchase_order_items WHERE purchase_order_id = $1 AND deleted = FALSE ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it PurchaseOrderItem
		if err := rows.Scan(&it.ID, &it.PurchaseOrderID, &it.MaterialRequestItemID, &it.MaterialType, &it.MaterialID,
			&it.UnitOfMeasure, &it.Quantity, &it.Price, &it.Summ, &it.DeliveredQuantity, &it.Status, &it.Deleted); err != nil {
			return PurchaseOrder{}, err
		}
		order.Items = append(order.Items, it)
	}
	return order, rows.Err()
}

// SearchOrders lists orders newest first with a total count.
func (r *Repository) SearchOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, int, error) {
	where := ` WHERE deleted = FALSE`
	args := []any{}
	n := 1
	if filter.ProjectID > 0 {
		where += fmt.Sprintf(" AND project_id = $%d", n)
		args = append(args, filter.ProjectID)
		n++
	}
	if filter.SupplierID > 0 {
		where += fmt.Sprintf(" AND supplier_id = $%d", n)
		args = append(args, filter.SupplierID)
		n++
	}
	if filter.Status > 0 {
		where += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
		n++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	size := filter.Size
	if size <= 0 {
		size = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT ` + orderColumns + ` FROM purchase_orders` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// SoftDeleteOrder hides an order and its items. Ordered-quantity sums skip
// deleted rows, so request item statuses computed later exclude this order.
func (r *Repository) SoftDeleteOrder(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE purchase_orders SET deleted = TRUE, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: purchase order", ErrNotFound)
		}
		_, err = tx.Exec(ctx, `UPDATE purchase_order_items SET deleted = TRUE, updated_at = now()
WHERE purchase_order_id = $1 AND deleted = FALSE`, id)
		return err
	})
}

// txRepo is the transaction-bound mutation surface.
type txRepo struct {
	tx       pgx.Tx
	stock    *inventory.TxStore
	recorder *audit.Recorder
}

func (t *txRepo) CreateRequest(ctx context.Context, request MaterialRequest) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO material_requests (project_id, stage_id, status, comment)
VALUES ($1, NULLIF($2, 0), $3, NULLIF($4, ''))
RETURNING id`, request.ProjectID, request.StageID, request.Status, request.Comment).Scan(&id)
	return id, err
}

func (t *txRepo) InsertRequestItems(ctx context.Context, requestID int64, items []MaterialRequestItem) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx, `INSERT INTO material_request_items
	(material_request_id, material_type, material_id, unit_of_measure, quantity, price, summ, currency, status, comment)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, 0), $9, NULLIF($10, ''))`,
			requestID, it.MaterialType, it.MaterialID, it.UnitOfMeasure, it.Quantity, it.Price, it.Summ, it.Currency, it.Status, it.Comment)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) GetRequestForUpdate(ctx context.Context, id int64) (MaterialRequest, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM material_requests
WHERE id = $1 AND deleted = FALSE FOR UPDATE`, id)
	return scanRequest(row)
}

func (t *txRepo) UpdateRequest(ctx context.Context, request MaterialRequest) error {
	tag, err := t.tx.Exec(ctx, `UPDATE material_requests SET
	stage_id = NULLIF($2, 0),
	comment = NULLIF($3, ''),
	status = $4,
	approved_by_foreman = $5, approved_by_foreman_time = $6, approved_by_foreman_user_id = NULLIF($7, 0),
	approved_by_site_manager = $8, approved_by_site_manager_time = $9, approved_by_site_manager_user_id = NULLIF($10, 0),
	approved_by_purchasing_agent = $11, approved_by_purchasing_agent_time = $12, approved_by_purchasing_agent_user_id = NULLIF($13, 0),
	approved_by_planning_engineer = $14, approved_by_planning_engineer_time = $15, approved_by_planning_engineer_user_id = NULLIF($16, 0),
	approved_by_main_engineer = $17, approved_by_main_engineer_time = $18, approved_by_main_engineer_user_id = NULLIF($19, 0),
	updated_at = now()
WHERE id = $1 AND deleted = FALSE`,
		request.ID, request.StageID, request.Comment, request.Status,
		request.ApprovedByForeman, request.ApprovedByForemanTime, request.ApprovedByForemanUserID,
		request.ApprovedBySiteManager, request.ApprovedBySiteManagerTime, request.ApprovedBySiteManagerUserID,
		request.ApprovedByPurchasingAgent, request.ApprovedByPurchasingAgentTime, request.ApprovedByPurchasingAgentUserID,
		request.ApprovedByPlanningEngineer, request.ApprovedByPlanningEngineerTime, request.ApprovedByPlanningEngineerUserID,
		request.ApprovedByMainEngineer, request.ApprovedByMainEngineerTime, request.ApprovedByMainEngineerUserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: material request", ErrNotFound)
	}
	return nil
}

func (t *txRepo) ListRequestItems(ctx context.Context, requestID int64) ([]MaterialRequestItem, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+requestItemColumns+` FROM material_request_items
WHERE material_request_id = $1 AND deleted = FALSE ORDER BY id`, requestID)
	if err != nil {
		return nil, err
	}
	return scanRequestItems(rows)
}

func (t *txRepo) SetRequestItemsStatus(ctx context.Context, requestID int64, status RequestItemStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE material_request_items SET status = $2, updated_at = now()
WHERE material_request_id = $1 AND deleted = FALSE`, requestID, status)
	return err
}

func (t *txRepo) SetRequestStatus(ctx context.Context, requestID int64, status RequestStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE material_requests SET status = $2, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, requestID, status)
	return err
}

func (t *txRepo) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders (project_id, supplier_id, created_user_id, status)
VALUES ($1, $2, NULLIF($3, 0), $4)
RETURNING id`, order.ProjectID, order.SupplierID, order.CreatedUserID, order.Status).Scan(&id)
	return id, err
}

func (t *txRepo) InsertOrderItems(ctx context.Context, orderID int64, items []PurchaseOrderItem) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx, `INSERT INTO purchase_order_items
	(purchase_order_id, material_request_item_id, material_type, material_id, unit_of_measure, quantity, price, summ, delivered_quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)`,
			orderID, it.MaterialRequestItemID, it.MaterialType, it.MaterialID, it.UnitOfMeasure, it.Quantity, it.Price, it.Summ)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) GetRequestItemsForUpdate(ctx context.Context, ids []int64) ([]MaterialRequestItem, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+requestItemColumns+` FROM material_request_items
WHERE id = ANY($1) AND deleted = FALSE ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	return scanRequestItems(rows)
}

// SumOrderedQuantities recomputes the total ordered per request item across
// every non-deleted order. Cancellation is expressed as soft delete, so the
// sum only ever grows while an order stands.
func (t *txRepo) SumOrderedQuantities(ctx context.Context, requestItemIDs []int64) (map[int64]float64, error) {
	rows, err := t.tx.Query(ctx, `SELECT poi.material_request_item_id, COALESCE(SUM(poi.quantity), 0)
FROM purchase_order_items poi
JOIN purchase_orders po ON po.id = poi.purchase_order_id
WHERE poi.material_request_item_id = ANY($1) AND poi.deleted = FALSE AND po.deleted = FALSE
GROUP BY poi.material_request_item_id`, requestItemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := make(map[int64]float64, len(requestItemIDs))
	for rows.Next() {
		var id int64
		var total float64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		sums[id] = total
	}
	return sums, rows.Err()
}

func (t *txRepo) SetRequestItemStatus(ctx context.Context, itemID int64, status RequestItemStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE material_request_items SET status = $2, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, itemID, status)
	return err
}

func (t *txRepo) MarkRequestsInExecution(ctx context.Context, requestIDs []int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE material_requests SET status = $2, updated_at = now()
WHERE id = ANY($1) AND deleted = FALSE`, requestIDs, RequestInExecution)
	return err
}

func (t *txRepo) GetOrderItemForUpdate(ctx context.Context, id int64) (PurchaseOrderItem, error) {
	var it PurchaseOrderItem
	err := t.tx.QueryRow(ctx, `SELECT poi.id, poi.purchase_order_id, poi.material_request_item_id, poi.material_type,
	poi.material_id, poi.unit_of_measure, poi.quantity, poi.price, poi.summ, poi.delivered_quantity,
	COALESCE(poi.status, 0), poi.deleted, COALESCE(mri.material_request_id, 0)
FROM purchase_order_items poi
LEFT JOIN material_request_items mri ON mri.id = poi.material_request_item_id
WHERE poi.id = $1 AND poi.deleted = FALSE
FOR UPDATE OF poi`, id).Scan(
		&it.ID, &it.PurchaseOrderID, &it.MaterialRequestItemID, &it.MaterialType,
		&it.MaterialID, &it.UnitOfMeasure, &it.Quantity, &it.Price, &it.Summ, &it.DeliveredQuantity,
		&it.Status, &it.Deleted, &it.MaterialRequestID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrderItem{}, fmt.Errorf("%w: purchase order item %d", ErrNotFound, id)
	}
	return it, err
}

func (t *txRepo) UpdateOrderItemDelivery(ctx context.Context, id int64, deliveredTotal float64, status OrderItemStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_order_items SET delivered_quantity = $2, status = $3, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, id, deliveredTotal, status)
	return err
}

func (t *txRepo) ListOrderItemStatuses(ctx context.Context, orderID int64) ([]OrderItemStatus, error) {
	rows, err := t.tx.Query(ctx, `SELECT COALESCE(status, 0) FROM purchase_order_items
WHERE purchase_order_id = $1 AND deleted = FALSE`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var statuses []OrderItemStatus
	for rows.Next() {
		var s OrderItemStatus
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func (t *txRepo) SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $2, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, orderID, status)
	return err
}

// ListRequestDeliveryStatuses returns the delivery status of every active
// order item bound to the request's items.
func (t *txRepo) ListRequestDeliveryStatuses(ctx context.Context, requestID int64) ([]OrderItemStatus, error) {
	rows, err := t.tx.Query(ctx, `SELECT COALESCE(poi.status, 0)
FROM purchase_order_items poi
JOIN material_request_items mri ON mri.id = poi.material_request_item_id
JOIN purchase_orders po ON po.id = poi.purchase_order_id
WHERE mri.material_request_id = $1 AND poi.deleted = FALSE AND po.deleted = FALSE`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var statuses []OrderItemStatus
	for rows.Next() {
		var s OrderItemStatus
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func (t *txRepo) GetWarehouse(ctx context.Context, warehouseID int64) (inventory.Warehouse, error) {
	return t.stock.GetWarehouse(ctx, warehouseID)
}

func (t *txRepo) IncrementStock(ctx context.Context, key inventory.StockKey, amount float64) error {
	return t.stock.IncrementStock(ctx, key, amount)
}

func (t *txRepo) InsertMovement(ctx context.Context, movement inventory.MaterialMovement) error {
	return t.stock.InsertMovement(ctx, movement)
}

func (t *txRepo) RecordAudit(ctx context.Context, entry audit.Entry) (bool, error) {
	return t.recorder.RecordIfChanged(ctx, t.tx, entry)
}
