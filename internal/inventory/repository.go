package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockFilter narrows the stock listing.
type StockFilter struct {
	WarehouseID  int64
	MaterialID   int64
	MaterialType int64
	BelowMin     bool
	Page         int
	Size         int
}

// Repository provides read access and out-of-pipeline corrections for the
// quantity ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const stockColumns = `id, warehouse_id, material_id, material_type, unit_of_measure, quantity, min_qty, max_qty, created_at, updated_at, deleted`

func scanStock(row pgx.Row) (WarehouseStock, error) {
	var s WarehouseStock
	err := row.Scan(&s.ID, &s.WarehouseID, &s.MaterialID, &s.MaterialType, &s.UnitOfMeasure,
		&s.Quantity, &s.Min, &s.Max, &s.CreatedAt, &s.UpdatedAt, &s.Deleted)
	return s, err
}

// GetStock fetches one stock row by id.
func (r *Repository) GetStock(ctx context.Context, id int64) (WarehouseStock, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+stockColumns+` FROM warehouse_stock WHERE id=$1 AND deleted=false`, id)
	s, err := scanStock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return WarehouseStock{}, ErrStockNotFound
	}
	return s, err
}

// ListStock returns stock rows matching the filter with a total count.
func (r *Repository) ListStock(ctx context.Context, filter StockFilter) ([]WarehouseStock, int, error) {
	where := ` WHERE deleted=false`
	args := []any{}
	n := 1
	if filter.WarehouseID > 0 {
		where += fmt.Sprintf(" AND warehouse_id = $%d", n)
		args = append(args, filter.WarehouseID)
		n++
	}
	if filter.MaterialID > 0 {
		where += fmt.Sprintf(" AND material_id = $%d", n)
		args = append(args, filter.MaterialID)
		n++
	}
	if filter.MaterialType > 0 {
		where += fmt.Sprintf(" AND material_type = $%d", n)
		args = append(args, filter.MaterialType)
		n++
	}
	if filter.BelowMin {
		where += " AND quantity < min_qty"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warehouse_stock`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	size := filter.Size
	if size <= 0 {
		size = 10
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT ` + stockColumns + ` FROM warehouse_stock` + where +
		fmt.Sprintf(` ORDER BY warehouse_id, material_id LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var stocks []WarehouseStock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, 0, err
		}
		stocks = append(stocks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return stocks, total, nil
}

// ListMovements returns ledger rows newest first with a total count.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]MaterialMovement, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 1
	if filter.ProjectID > 0 {
		where += fmt.Sprintf(" AND project_id = $%d", n)
		args = append(args, filter.ProjectID)
		n++
	}
	if filter.WarehouseID > 0 {
		where += fmt.Sprintf(" AND (from_warehouse_id = $%d OR to_warehouse_id = $%d)", n, n)
		args = append(args, filter.WarehouseID)
		n++
	}
	if filter.MaterialID > 0 {
		where += fmt.Sprintf(" AND material_id = $%d", n)
		args = append(args, filter.MaterialID)
		n++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM material_movements`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	size := filter.Size
	if size <= 0 {
		size = 10
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT id, project_id, date, COALESCE(from_warehouse_id, 0), COALESCE(to_warehouse_id, 0), material_id, quantity, operation, user_id, COALESCE(note, ''), status
FROM material_movements` + where + fmt.Sprintf(` ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var movements []MaterialMovement
	for rows.Next() {
		var m MaterialMovement
		var op string
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Date, &m.FromWarehouseID, &m.ToWarehouseID,
			&m.MaterialID, &m.Quantity, &op, &m.UserID, &m.Note, &m.Status); err != nil {
			return nil, 0, err
		}
		m.Operation = MovementOperation(op)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// UpdateStockLimits sets min/max levels on a stock row.
func (r *Repository) UpdateStockLimits(ctx context.Context, id int64, min, max float64) (WarehouseStock, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE warehouse_stock SET min_qty=$2, max_qty=$3, updated_at=NOW() WHERE id=$1 AND deleted=false`,
		id, min, max)
	if err != nil {
		return WarehouseStock{}, err
	}
	if tag.RowsAffected() == 0 {
		return WarehouseStock{}, ErrStockNotFound
	}
	return r.GetStock(ctx, id)
}
