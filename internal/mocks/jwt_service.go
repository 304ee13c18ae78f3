package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/service/auth"
)

// MockJWTService is an auth.JWTService whose answers are set per test.
// Without the Fn overrides it returns Token/Err when minting and
// Claims/ValidateErr when validating.
type MockJWTService struct {
	GenerateTokenFn func(ctx context.Context, userID uuid.UUID, email string, lifetime time.Duration) (string, error)
	ValidateTokenFn func(ctx context.Context, token string) (*auth.Claims, error)

	Token       string
	Err         error
	Claims      *auth.Claims
	ValidateErr error
}

var _ auth.JWTService = (*MockJWTService)(nil)

func (m *MockJWTService) GenerateToken(ctx context.Context, userID uuid.UUID, email string, lifetime time.Duration) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, userID, email, lifetime)
	}
	return m.Token, m.Err
}

func (m *MockJWTService) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, token)
	}
	return m.Claims, m.ValidateErr
}
