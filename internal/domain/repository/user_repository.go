package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches a lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateKey is returned when Create violates the unique email constraint.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrConfirmedIsMonotonic is returned when asked to set Confirmed back to false.
	ErrConfirmedIsMonotonic = errors.New("confirmed cannot be reverted")
)

// UserRepository defines the credential store operations.
// Email uniqueness is enforced here; all other validation happens above this layer.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	// Create assigns ID and CreatedAt on success.
	Create(ctx context.Context, u *entity.User) error
	UpdateConfirmed(ctx context.Context, id string, confirmed bool) error
	Ping(ctx context.Context) error
}
