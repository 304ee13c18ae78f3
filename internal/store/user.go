package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
)

// UserStore persists users and their credit balances.
type UserStore interface {
	// Create inserts user. A taken email yields ErrEmailExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID yields ErrUserNotFound for unknown ids.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetOrCreate provisions the user on first sight with the starting
	// balance. An empty email is replaced by the placeholder address.
	GetOrCreate(ctx context.Context, id uuid.UUID, email string) (*domain.User, error)

	// DebitCredits subtracts amount in a single statement and returns the
	// remaining balance. A balance that does not cover amount is left
	// untouched and domain.ErrInsufficientCredits is returned.
	DebitCredits(ctx context.Context, id uuid.UUID, amount int) (int, error)

	// AddCredits refunds amount and returns the new balance.
	AddCredits(ctx context.Context, id uuid.UUID, amount int) (int, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx binds the store to tx.
	WithTx(tx *sql.Tx) UserStore
}
