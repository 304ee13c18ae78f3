package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/store"
	"github.com/stretchr/testify/mock"
)

// TestifyMockUserStore is a store.UserStore driven by testify expectations.
type TestifyMockUserStore struct {
	mock.Mock
}

func userResult(args mock.Arguments) (*domain.User, error) {
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestifyMockUserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *TestifyMockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return userResult(m.Called(ctx, id))
}

func (m *TestifyMockUserStore) GetOrCreate(ctx context.Context, id uuid.UUID, email string) (*domain.User, error) {
	return userResult(m.Called(ctx, id, email))
}

func (m *TestifyMockUserStore) DebitCredits(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	args := m.Called(ctx, id, amount)
	return args.Int(0), args.Error(1)
}

func (m *TestifyMockUserStore) AddCredits(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	args := m.Called(ctx, id, amount)
	return args.Int(0), args.Error(1)
}

func (m *TestifyMockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *TestifyMockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	args := m.Called(tx)
	if ret, ok := args.Get(0).(store.UserStore); ok {
		return ret
	}
	return m
}

var _ store.UserStore = (*TestifyMockUserStore)(nil)
