package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/store"
)

// ProgressUpdate records one UpdateProgress call.
type ProgressUpdate struct {
	Progress int
	Stage    string
}

// MockVideoTaskStore implements store.VideoTaskStore in memory for testing.
// It is safe for concurrent use.
type MockVideoTaskStore struct {
	// Function fields for customizable behavior
	CreateFn         func(ctx context.Context, task *domain.VideoTask) error
	GetByIDFn        func(ctx context.Context, id int64) (*domain.VideoTask, error)
	UpdateProgressFn func(ctx context.Context, id int64, progress int, stage string) error
	CompleteFn       func(ctx context.Context, id int64, videoURL string) error
	FailFn           func(ctx context.Context, id int64, status domain.TaskStatus) error

	mu      sync.Mutex
	nextID  int64
	Tasks   map[int64]*domain.VideoTask
	Updates map[int64][]ProgressUpdate
}

// NewMockVideoTaskStore creates an empty store.
func NewMockVideoTaskStore() *MockVideoTaskStore {
	return &MockVideoTaskStore{
		Tasks:   make(map[int64]*domain.VideoTask),
		Updates: make(map[int64][]ProgressUpdate),
	}
}

// Seed stores task, assigning an ID when it has none, and returns the ID.
func (m *MockVideoTaskStore) Seed(task *domain.VideoTask) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID == 0 {
		m.nextID++
		task.ID = m.nextID
	} else if task.ID > m.nextID {
		m.nextID = task.ID
	}
	m.Tasks[task.ID] = task
	return task.ID
}

// Snapshot returns a copy of the stored task.
func (m *MockVideoTaskStore) Snapshot(id int64) (domain.VideoTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return domain.VideoTask{}, false
	}
	return *t, true
}

// ProgressOf returns the recorded progress updates of a task.
func (m *MockVideoTaskStore) ProgressOf(id int64) []ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProgressUpdate(nil), m.Updates[id]...)
}

// Create implements store.VideoTaskStore
func (m *MockVideoTaskStore) Create(ctx context.Context, task *domain.VideoTask) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return err
	}
	m.Seed(task)
	return nil
}

// GetByID implements store.VideoTaskStore
func (m *MockVideoTaskStore) GetByID(ctx context.Context, id int64) (*domain.VideoTask, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	t, ok := m.Snapshot(id)
	if !ok {
		return nil, store.ErrVideoTaskNotFound
	}
	return &t, nil
}

func (m *MockVideoTaskStore) list(match func(*domain.VideoTask) bool) []*domain.VideoTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.VideoTask
	for _, t := range m.Tasks {
		if match(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// ListByOwner implements store.VideoTaskStore
func (m *MockVideoTaskStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.VideoTask, error) {
	return m.list(func(t *domain.VideoTask) bool { return t.OwnerID == ownerID }), nil
}

// ListByProject implements store.VideoTaskStore
func (m *MockVideoTaskStore) ListByProject(ctx context.Context, projectID int64) ([]*domain.VideoTask, error) {
	return m.list(func(t *domain.VideoTask) bool {
		return t.ProjectID != nil && *t.ProjectID == projectID
	}), nil
}

func (m *MockVideoTaskStore) mutate(id int64, fn func(*domain.VideoTask)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return store.ErrVideoTaskNotFound
	}
	fn(t)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateProgress implements store.VideoTaskStore
func (m *MockVideoTaskStore) UpdateProgress(ctx context.Context, id int64, progress int, stage string) error {
	if m.UpdateProgressFn != nil {
		return m.UpdateProgressFn(ctx, id, progress, stage)
	}
	return m.mutate(id, func(t *domain.VideoTask) {
		t.Progress = progress
		t.Stage = stage
		m.Updates[id] = append(m.Updates[id], ProgressUpdate{Progress: progress, Stage: stage})
	})
}

// SetScript implements store.VideoTaskStore
func (m *MockVideoTaskStore) SetScript(ctx context.Context, id int64, script string) error {
	return m.mutate(id, func(t *domain.VideoTask) { t.Script = script })
}

// Complete implements store.VideoTaskStore
func (m *MockVideoTaskStore) Complete(ctx context.Context, id int64, videoURL string) error {
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, id, videoURL)
	}
	return m.mutate(id, func(t *domain.VideoTask) {
		t.Status = domain.TaskStatusCompleted
		t.Stage = string(domain.TaskStatusCompleted)
		t.Progress = 100
		t.VideoURL = videoURL
	})
}

// Fail implements store.VideoTaskStore
func (m *MockVideoTaskStore) Fail(ctx context.Context, id int64, status domain.TaskStatus) error {
	if m.FailFn != nil {
		return m.FailFn(ctx, id, status)
	}
	return m.mutate(id, func(t *domain.VideoTask) { t.Status = status })
}

// WithTx implements store.VideoTaskStore
func (m *MockVideoTaskStore) WithTx(tx *sql.Tx) store.VideoTaskStore {
	return m
}

var _ store.VideoTaskStore = (*MockVideoTaskStore)(nil)
