package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/store"
)

// MockProjectStore implements store.ProjectStore for testing
type MockProjectStore struct {
	CreateFn  func(ctx context.Context, project *domain.Project) error
	GetByIDFn func(ctx context.Context, id int64) (*domain.Project, error)
	DeleteFn  func(ctx context.Context, id int64) error

	mu       sync.Mutex
	nextID   int64
	Projects map[int64]*domain.Project
}

// NewMockProjectStore creates an empty store.
func NewMockProjectStore() *MockProjectStore {
	return &MockProjectStore{Projects: make(map[int64]*domain.Project)}
}

// Create implements store.ProjectStore
func (m *MockProjectStore) Create(ctx context.Context, project *domain.Project) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, project)
	}
	if err := project.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	project.ID = m.nextID
	cp := *project
	m.Projects[project.ID] = &cp
	return nil
}

// GetByID implements store.ProjectStore
func (m *MockProjectStore) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

// ListByOwner implements store.ProjectStore
func (m *MockProjectStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Project
	for _, p := range m.Projects {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Update implements store.ProjectStore
func (m *MockProjectStore) Update(ctx context.Context, project *domain.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Projects[project.ID]; !ok {
		return store.ErrProjectNotFound
	}
	cp := *project
	m.Projects[project.ID] = &cp
	return nil
}

// Delete implements store.ProjectStore
func (m *MockProjectStore) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Projects[id]; !ok {
		return store.ErrProjectNotFound
	}
	delete(m.Projects, id)
	return nil
}

// WithTx implements store.ProjectStore
func (m *MockProjectStore) WithTx(tx *sql.Tx) store.ProjectStore {
	return m
}

var _ store.ProjectStore = (*MockProjectStore)(nil)
