// Package directory manages the admin account records behind the console:
// who may sign in, with which role, and whether the account is active.
package directory

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("directory: admin not found")
	ErrAlreadyExists      = errors.New("directory: admin already exists")
	ErrInvalidInput       = errors.New("directory: invalid input")
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
	ErrInactive           = errors.New("directory: admin is inactive")
)

// Admin is a console operator record.
type Admin struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	CreatedBy    string     `json:"created_by,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Store persists admin records.
type Store interface {
	Insert(ctx context.Context, a Admin) error
	Find(ctx context.Context, id string) (Admin, error)
	FindByEmail(ctx context.Context, email string) (Admin, error)
	List(ctx context.Context) ([]Admin, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
