package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxStore performs the ledger mutations that must share a transaction with
// the receiving engine. Stock increments go through an upsert on the natural
// key so concurrent receipts against the same key serialize instead of
// losing updates.
type TxStore struct {
	tx pgx.Tx
}

// NewTxStore binds a store to an open transaction.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

// GetWarehouse loads the warehouse referenced by a receipt. The movement's
// project id comes from here, not from the purchase order.
func (s *TxStore) GetWarehouse(ctx context.Context, warehouseID int64) (Warehouse, error) {
	var w Warehouse
	err := s.tx.QueryRow(ctx,
		`SELECT id, project_id, name FROM warehouses WHERE id=$1 AND deleted=false`,
		warehouseID).Scan(&w.ID, &w.ProjectID, &w.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Warehouse{}, ErrWarehouseNotFound
		}
		return Warehouse{}, err
	}
	return w, nil
}

// IncrementStock adds amount to the stock row for key, creating the row at
// amount when absent. A single upsert on the natural key: two first receipts
// for the same key racing each other serialize on the unique index instead
// of one of them failing. No decrement path exists here.
func (s *TxStore) IncrementStock(ctx context.Context, key StockKey, amount float64) error {
	_, err := s.tx.Exec(ctx,
		`INSERT INTO warehouse_stock (warehouse_id, material_id, material_type, unit_of_measure, quantity, min_qty, max_qty, created_at, updated_at, deleted)
VALUES ($1, $2, $3, $4, $5, 0, 0, NOW(), NOW(), false)
ON CONFLICT (warehouse_id, material_id, material_type, unit_of_measure)
DO UPDATE SET quantity = warehouse_stock.quantity + EXCLUDED.quantity, updated_at = NOW(), deleted = false`,
		key.WarehouseID, key.MaterialID, key.MaterialType, key.UnitOfMeasure, amount)
	return err
}

// InsertMovement appends one ledger row.
func (s *TxStore) InsertMovement(ctx context.Context, movement MaterialMovement) error {
	date := movement.Date
	if date.IsZero() {
		date = time.Now()
	}
	_, err := s.tx.Exec(ctx,
		`INSERT INTO material_movements (project_id, date, from_warehouse_id, to_warehouse_id, material_id, quantity, operation, user_id, note, status, created_at)
VALUES ($1, $2, NULLIF($3, 0), NULLIF($4, 0), $5, $6, $7, NULLIF($8, 0), $9, $10, NOW())`,
		movement.ProjectID, date, movement.FromWarehouseID, movement.ToWarehouseID,
		movement.MaterialID, movement.Quantity, string(movement.Operation),
		movement.UserID, movement.Note, movement.Status)
	return err
}
