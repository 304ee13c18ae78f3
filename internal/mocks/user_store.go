package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/store"
)

// MockUserStore implements store.UserStore for testing
type MockUserStore struct {
	// Function fields for customizable behavior
	CreateFn       func(ctx context.Context, user *domain.User) error
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetOrCreateFn  func(ctx context.Context, id uuid.UUID, email string) (*domain.User, error)
	DebitCreditsFn func(ctx context.Context, id uuid.UUID, amount int) (int, error)
	AddCreditsFn   func(ctx context.Context, id uuid.UUID, amount int) (int, error)
	DeleteFn       func(ctx context.Context, id uuid.UUID) error

	mu    sync.Mutex
	Users map[uuid.UUID]*domain.User
}

// NewMockUserStore creates a new mock store with initialized defaults
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Users: make(map[uuid.UUID]*domain.User),
	}
}

// Seed stores a user with the given balance and returns it.
func (m *MockUserStore) Seed(id uuid.UUID, credits int) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	u := &domain.User{ID: id, Email: domain.PlaceholderEmail(id), Credits: credits, CreatedAt: now, UpdatedAt: now}
	m.Users[id] = u
	return u
}

// Credits returns the stored balance of a user.
func (m *MockUserStore) Credits(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.Users[id]; ok {
		return u.Credits
	}
	return 0
}

// Create implements the UserStore interface
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	if err := user.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	cp := *user
	m.Users[user.ID] = &cp
	return nil
}

// GetByID implements the UserStore interface
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetOrCreate implements the UserStore interface
func (m *MockUserStore) GetOrCreate(ctx context.Context, id uuid.UUID, email string) (*domain.User, error) {
	if m.GetOrCreateFn != nil {
		return m.GetOrCreateFn(ctx, id, email)
	}
	if u, err := m.GetByID(ctx, id); err == nil {
		return u, nil
	}
	u, err := domain.NewUser(id, email)
	if err != nil {
		return nil, err
	}
	if err := m.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DebitCredits implements the UserStore interface
func (m *MockUserStore) DebitCredits(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	if m.DebitCreditsFn != nil {
		return m.DebitCreditsFn(ctx, id, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return 0, store.ErrUserNotFound
	}
	if u.Credits < amount {
		return u.Credits, domain.ErrInsufficientCredits
	}
	u.Credits -= amount
	return u.Credits, nil
}

// AddCredits implements the UserStore interface
func (m *MockUserStore) AddCredits(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	if m.AddCreditsFn != nil {
		return m.AddCreditsFn(ctx, id, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return 0, store.ErrUserNotFound
	}
	u.Credits += amount
	return u.Credits, nil
}

// Delete implements the UserStore interface
func (m *MockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(m.Users, id)
	return nil
}

// WithTx implements the UserStore interface
func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

var _ store.UserStore = (*MockUserStore)(nil)
