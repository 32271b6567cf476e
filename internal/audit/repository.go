package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Filters narrow the audit listing.
type Filters struct {
	EntityType string
	EntityID   int64
	UserID     int64
	Action     string
	Page       int
	Size       int
}

// Repository reads audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns audit entries newest first with a total count.
func (r *Repository) List(ctx context.Context, filters Filters) ([]Entry, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 1
	if filters.EntityType != "" {
		where += fmt.Sprintf(" AND entity_type = $%d", n)
		args = append(args, filters.EntityType)
		n++
	}
	if filters.EntityID > 0 {
		where += fmt.Sprintf(" AND entity_id = $%d", n)
		args = append(args, filters.EntityID)
		n++
	}
	if filters.UserID > 0 {
		where += fmt.Sprintf(" AND user_id = $%d", n)
		args = append(args, filters.UserID)
		n++
	}
	if filters.Action != "" {
		where += fmt.Sprintf(" AND action = $%d", n)
		args = append(args, filters.Action)
		n++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	size := filters.Size
	if size <= 0 {
		size = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT entity_type, entity_id, action, old_values, new_values, user_id, COALESCE(comment, ''), created_at
FROM audit_logs` + where + fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.EntityType, &e.EntityID, &e.Action, &e.OldValues, &e.NewValues, &e.UserID, &e.Comment, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
