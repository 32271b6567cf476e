package users

import (
	"fmt"
	"time"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// User is one account. PasswordHash never serializes.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	RoleID       int64     `json:"role_id"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Deleted      bool      `json:"deleted"`
}

var (
	// ErrValidation marks rejected user input.
	ErrValidation = fmt.Errorf("users: %w", shared.ErrValidation)
	// ErrNotFound marks a missing account.
	ErrNotFound = fmt.Errorf("users: %w", shared.ErrNotFound)
)
