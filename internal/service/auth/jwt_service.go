package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenLifetime is the lifetime of tokens minted by GenerateToken.
const DefaultTokenLifetime = 24 * time.Hour

// JWTService verifies the access tokens issued by the identity provider.
type JWTService interface {
	// GenerateToken mints an access token for userID with the shared secret.
	// It backs local development and the CLI; production tokens come from
	// the identity provider.
	GenerateToken(ctx context.Context, userID uuid.UUID, email string, lifetime time.Duration) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims containing user information if the token is valid,
	// or an error if validation fails (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the fields the API reads from a validated token.
type Claims struct {
	// UserID is parsed from the sub claim.
	UserID uuid.UUID

	// Email is optional; users without one get a placeholder address.
	Email string

	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
