package inventory

import (
	"context"
	"fmt"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/audit"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	GetStock(ctx context.Context, id int64) (WarehouseStock, error)
	ListStock(ctx context.Context, filter StockFilter) ([]WarehouseStock, int, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]MaterialMovement, int, error)
	UpdateStockLimits(ctx context.Context, id int64, min, max float64) (WarehouseStock, error)
}

// AuditPort records stock edits.
type AuditPort interface {
	RecordIfChanged(ctx context.Context, db audit.Execer, entry audit.Entry) (bool, error)
}

// Service exposes ledger reads and out-of-pipeline stock maintenance.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds the Service.
func NewService(repo RepositoryPort, auditor AuditPort) *Service {
	return &Service{repo: repo, audit: auditor}
}

// ListStock lists current on-hand quantities.
func (s *Service) ListStock(ctx context.Context, filter StockFilter) ([]WarehouseStock, int, error) {
	return s.repo.ListStock(ctx, filter)
}

// ListMovements lists the movement ledger.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]MaterialMovement, int, error) {
	return s.repo.ListMovements(ctx, filter)
}

// LowStock returns rows whose quantity fell below the configured minimum.
func (s *Service) LowStock(ctx context.Context) ([]WarehouseStock, error) {
	stocks, _, err := s.repo.ListStock(ctx, StockFilter{BelowMin: true, Size: 500})
	return stocks, err
}

// UpdateStockLimits changes min/max levels with an audit diff. Quantities
// themselves are only ever mutated by the receiving engine.
func (s *Service) UpdateStockLimits(ctx context.Context, id int64, min, max float64, actor shared.Actor) (WarehouseStock, error) {
	if min < 0 || max < 0 || (max > 0 && min > max) {
		return WarehouseStock{}, shared.Validationf("invalid min/max levels")
	}
	before, err := s.repo.GetStock(ctx, id)
	if err != nil {
		if err == ErrStockNotFound {
			return WarehouseStock{}, shared.NotFoundf("warehouse stock %d", id)
		}
		return WarehouseStock{}, err
	}
	after, err := s.repo.UpdateStockLimits(ctx, id, min, max)
	if err != nil {
		return WarehouseStock{}, err
	}
	if s.audit != nil {
		_, err = s.audit.RecordIfChanged(ctx, nil, audit.Entry{
			EntityType: "warehouse_stock",
			EntityID:   id,
			Action:     "warehouse_stock_updated",
			OldValues:  audit.Take(before),
			NewValues:  audit.Take(after),
			UserID:     actor.UserID,
		})
		if err != nil {
			return WarehouseStock{}, fmt.Errorf("inventory: record audit: %w", err)
		}
	}
	return after, nil
}
