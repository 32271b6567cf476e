package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, COALESCE(phone, ''), role_id, password_hash, is_active, created_at, updated_at, deleted`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.RoleID, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user", ErrNotFound)
	}
	return u, err
}

// ListUsers returns all active accounts.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE deleted = FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetUser loads one account.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted = FALSE`, id))
}

// CreateUser inserts an account. A duplicate email surfaces as an
// IntegrityError.
func (r *Repository) CreateUser(ctx context.Context, user User) (User, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, phone, role_id, password_hash, is_active)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
RETURNING id, created_at, updated_at`,
		user.Email, user.Name, user.Phone, user.RoleID, user.PasswordHash, user.IsActive).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, &shared.IntegrityError{Field: "email", Message: "user with this email already exists"}
		}
		return User{}, err
	}
	return user, nil
}

// UpdateUser overwrites the mutable columns; password changes go through
// SetPasswordHash.
func (r *Repository) UpdateUser(ctx context.Context, user User) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET email = $2, name = $3, phone = NULLIF($4, ''), role_id = $5,
	is_active = $6, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, user.ID, user.Email, user.Name, user.Phone, user.RoleID, user.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return nil
}

// SetPasswordHash replaces the stored credential.
func (r *Repository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return nil
}

// SoftDeleteUser hides an account.
func (r *Repository) SoftDeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET deleted = TRUE, is_active = FALSE, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return nil
}

// ListActiveEmailsByRole returns the emails of active accounts holding a role.
func (r *Repository) ListActiveEmailsByRole(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT email FROM users
WHERE role_id = $1 AND is_active = TRUE AND deleted = FALSE ORDER BY email`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
