package users

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/notify"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	SoftDeleteUser(ctx context.Context, id int64) error
	ListActiveEmailsByRole(ctx context.Context, roleID int64) ([]string, error)
}

// MailPort delivers the temporary password, usually through the task queue.
type MailPort interface {
	EnqueueTempPassword(ctx context.Context, msg notify.TempPasswordMessage) error
}

// Service handles account management.
type Service struct {
	repo RepositoryPort
	mail MailPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, mail MailPort) *Service {
	return &Service{repo: repo, mail: mail}
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser loads one account.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateInput describes a new account.
type CreateInput struct {
	Email  string
	Name   string
	Phone  string
	RoleID int64
}

const tempPasswordLength = 12

// CreateUser registers an account with a generated temporary password and
// emails it to the new user.
func (s *Service) CreateUser(ctx context.Context, input CreateInput) (User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email required", ErrValidation)
	}
	if strings.TrimSpace(input.Name) == "" {
		return User{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if input.RoleID == 0 {
		return User{}, fmt.Errorf("%w: role required", ErrValidation)
	}
	tempPassword, err := generatePassword(tempPasswordLength)
	if err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.CreateUser(ctx, User{
		Email:        email,
		Name:         input.Name,
		Phone:        input.Phone,
		RoleID:       input.RoleID,
		PasswordHash: string(hash),
		IsActive:     true,
	})
	if err != nil {
		return User{}, err
	}
	if s.mail != nil {
		if err := s.mail.EnqueueTempPassword(ctx, notify.TempPasswordMessage{Recipient: email, TempPassword: tempPassword}); err != nil {
			return User{}, shared.Dependencyf("queue temp password mail: %v", err)
		}
	}
	return user, nil
}

// UpdateUser applies profile changes.
func (s *Service) UpdateUser(ctx context.Context, user User) error {
	if strings.TrimSpace(user.Email) == "" || strings.TrimSpace(user.Name) == "" {
		return fmt.Errorf("%w: email and name required", ErrValidation)
	}
	return s.repo.UpdateUser(ctx, user)
}

// ResetPassword issues and emails a fresh temporary password.
func (s *Service) ResetPassword(ctx context.Context, id int64) error {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	tempPassword, err := generatePassword(tempPasswordLength)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, id, string(hash)); err != nil {
		return err
	}
	if s.mail != nil {
		if err := s.mail.EnqueueTempPassword(ctx, notify.TempPasswordMessage{Recipient: user.Email, TempPassword: tempPassword}); err != nil {
			return shared.Dependencyf("queue temp password mail: %v", err)
		}
	}
	return nil
}

// DeleteUser deactivates and hides an account.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.SoftDeleteUser(ctx, id)
}

// ActivePurchasingAgentEmails lists the recipients of approval notifications.
func (s *Service) ActivePurchasingAgentEmails(ctx context.Context) ([]string, error) {
	return s.repo.ListActiveEmailsByRole(ctx, shared.RolePurchasingAgent)
}

const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generatePassword(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}
