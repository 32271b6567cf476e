// Package inventory holds the warehouse quantity ledger: current on-hand
// stock per warehouse/material and the append-only movement history.
package inventory

import (
	"errors"
	"time"
)

// MovementOperation marks the direction of a stock change.
type MovementOperation string

const (
	// OperationIn records goods arriving at a warehouse.
	OperationIn MovementOperation = "+"
	// OperationOut records goods leaving a warehouse.
	OperationOut MovementOperation = "-"
)

// MovementStatusPosted is the status every receipt-generated movement carries.
const MovementStatusPosted = 1

// SystemMovementNote marks ledger rows generated by the receiving engine.
const SystemMovementNote = "automatic receipt transaction"

// StockKey identifies one stock row. Quantity is unique per key.
type StockKey struct {
	WarehouseID   int64 `json:"warehouse_id"`
	MaterialID    int64 `json:"material_id"`
	MaterialType  int64 `json:"material_type"`
	UnitOfMeasure int64 `json:"unit_of_measure"`
}

// WarehouseStock is the current on-hand quantity for a stock key.
// Mutated additively by confirmed receipts; never decremented here.
type WarehouseStock struct {
	ID            int64     `json:"id"`
	WarehouseID   int64     `json:"warehouse_id"`
	MaterialID    int64     `json:"material_id"`
	MaterialType  int64     `json:"material_type"`
	UnitOfMeasure int64     `json:"unit_of_measure"`
	Quantity      float64   `json:"quantity"`
	Min           float64   `json:"min"`
	Max           float64   `json:"max"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Deleted       bool      `json:"deleted"`
}

// Key returns the stock row's identifying tuple.
func (s WarehouseStock) Key() StockKey {
	return StockKey{
		WarehouseID:   s.WarehouseID,
		MaterialID:    s.MaterialID,
		MaterialType:  s.MaterialType,
		UnitOfMeasure: s.UnitOfMeasure,
	}
}

// MovementFilter narrows the movement-ledger listing.
type MovementFilter struct {
	ProjectID   int64
	WarehouseID int64
	MaterialID  int64
	Page        int
	Size        int
}

// MaterialMovement is one append-only ledger row, written once per receipt
// event and never updated.
type MaterialMovement struct {
	ID              int64             `json:"id"`
	ProjectID       int64             `json:"project_id"`
	Date            time.Time         `json:"date"`
	FromWarehouseID int64             `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   int64             `json:"to_warehouse_id,omitempty"`
	MaterialID      int64             `json:"material_id"`
	Quantity        float64           `json:"quantity"`
	Operation       MovementOperation `json:"operation"`
	UserID          int64             `json:"user_id"`
	Note            string            `json:"note,omitempty"`
	Status          int               `json:"status"`
}

// Warehouse is the reference row receipts resolve project ids from.
type Warehouse struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
}

var (
	// ErrStockNotFound indicates no stock row exists for a key.
	ErrStockNotFound = errors.New("inventory: stock row not found")
	// ErrWarehouseNotFound indicates the referenced warehouse is absent.
	ErrWarehouseNotFound = errors.New("inventory: warehouse not found")
)
