package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/audit"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

type memStockRepo struct {
	stocks map[int64]WarehouseStock
}

func (m *memStockRepo) GetStock(_ context.Context, id int64) (WarehouseStock, error) {
	stock, ok := m.stocks[id]
	if !ok {
		return WarehouseStock{}, ErrStockNotFound
	}
	return stock, nil
}

func (m *memStockRepo) ListStock(_ context.Context, filter StockFilter) ([]WarehouseStock, int, error) {
	var out []WarehouseStock
	for _, stock := range m.stocks {
		if filter.BelowMin && stock.Quantity >= stock.Min {
			continue
		}
		if filter.WarehouseID > 0 && stock.WarehouseID != filter.WarehouseID {
			continue
		}
		out = append(out, stock)
	}
	return out, len(out), nil
}

func (m *memStockRepo) ListMovements(context.Context, MovementFilter) ([]MaterialMovement, int, error) {
	return nil, 0, nil
}

func (m *memStockRepo) UpdateStockLimits(_ context.Context, id int64, min, max float64) (WarehouseStock, error) {
	stock, ok := m.stocks[id]
	if !ok {
		return WarehouseStock{}, ErrStockNotFound
	}
	stock.Min = min
	stock.Max = max
	m.stocks[id] = stock
	return stock, nil
}

type memAudit struct {
	entries []audit.Entry
}

func (m *memAudit) RecordIfChanged(_ context.Context, _ audit.Execer, entry audit.Entry) (bool, error) {
	m.entries = append(m.entries, entry)
	return true, nil
}

func TestUpdateStockLimits(t *testing.T) {
	repo := &memStockRepo{stocks: map[int64]WarehouseStock{
		1: {ID: 1, WarehouseID: 77, MaterialID: 10, Quantity: 30},
	}}
	auditor := &memAudit{}
	svc := NewService(repo, auditor)

	stock, err := svc.UpdateStockLimits(context.Background(), 1, 20, 200, shared.Actor{UserID: 4})
	require.NoError(t, err)
	require.InDelta(t, 20.0, stock.Min, 1e-9)
	require.InDelta(t, 200.0, stock.Max, 1e-9)
	require.Len(t, auditor.entries, 1)
	require.Equal(t, "warehouse_stock_updated", auditor.entries[0].Action)
	require.Equal(t, int64(4), auditor.entries[0].UserID)
}

func TestUpdateStockLimitsValidation(t *testing.T) {
	repo := &memStockRepo{stocks: map[int64]WarehouseStock{1: {ID: 1}}}
	svc := NewService(repo, &memAudit{})

	_, err := svc.UpdateStockLimits(context.Background(), 1, -1, 10, shared.Actor{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UpdateStockLimits(context.Background(), 1, 50, 10, shared.Actor{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UpdateStockLimits(context.Background(), 404, 1, 10, shared.Actor{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLowStock(t *testing.T) {
	repo := &memStockRepo{stocks: map[int64]WarehouseStock{
		1: {ID: 1, Quantity: 5, Min: 10},
		2: {ID: 2, Quantity: 50, Min: 10},
	}}
	svc := NewService(repo, &memAudit{})

	low, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, int64(1), low[0].ID)
}
