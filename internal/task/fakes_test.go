package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeTask is a runnable task whose behaviour is set by ExecuteFn.
type fakeTask struct {
	id        uuid.UUID
	payload   []byte
	status    TaskStatus
	ExecuteFn func(ctx context.Context) error
}

func newFakeTask(label string) *fakeTask {
	payload, _ := json.Marshal(map[string]string{"label": label})
	return &fakeTask{
		id:        uuid.New(),
		payload:   payload,
		status:    TaskStatusPending,
		ExecuteFn: func(context.Context) error { return nil },
	}
}

func (t *fakeTask) ID() uuid.UUID                     { return t.id }
func (t *fakeTask) Type() string                      { return "fake" }
func (t *fakeTask) Payload() []byte                   { return t.payload }
func (t *fakeTask) Status() TaskStatus                { return t.status }
func (t *fakeTask) Execute(ctx context.Context) error { return t.ExecuteFn(ctx) }

// memoryStore is an in-memory TaskStore. Saved tasks are stored by pointer,
// so status updates are visible through the task itself.
type memoryStore struct {
	mu      sync.RWMutex
	tasks   map[uuid.UUID]*fakeTask
	changed map[uuid.UUID]time.Time

	SaveFn       func(ctx context.Context, t Task) error
	GetPendingFn func(ctx context.Context) ([]Task, error)

	// LastErrors holds the error message of each task's latest update.
	LastErrors map[uuid.UUID]string
}

var _ TaskStore = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tasks:      make(map[uuid.UUID]*fakeTask),
		changed:    make(map[uuid.UUID]time.Time),
		LastErrors: make(map[uuid.UUID]string),
	}
}

func (s *memoryStore) SaveTask(ctx context.Context, t Task) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, t)
	}
	ft, ok := t.(*fakeTask)
	if !ok {
		ft = &fakeTask{id: t.ID(), payload: t.Payload(), status: t.Status(), ExecuteFn: t.Execute}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID()] = ft
	s.changed[t.ID()] = time.Now()
	return nil
}

func (s *memoryStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft, ok := s.tasks[id]
	if !ok {
		return nil
	}
	ft.status = status
	s.LastErrors[id] = errorMsg
	s.changed[id] = time.Now()
	return nil
}

func (s *memoryStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	if s.GetPendingFn != nil {
		return s.GetPendingFn(ctx)
	}
	return s.withStatus(TaskStatusPending, 0), nil
}

func (s *memoryStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]Task, error) {
	return s.withStatus(TaskStatusProcessing, olderThan), nil
}

func (s *memoryStore) withStatus(status TaskStatus, olderThan time.Duration) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Task
	for id, ft := range s.tasks {
		if ft.status != status {
			continue
		}
		if olderThan > 0 && time.Since(s.changed[id]) <= olderThan {
			continue
		}
		out = append(out, ft)
	}
	return out
}

func (s *memoryStore) WithTx(*sql.Tx) TaskStore { return s }

func (s *memoryStore) StatusOf(id uuid.UUID) (TaskStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ft, ok := s.tasks[id]
	if !ok {
		return "", false
	}
	return ft.status, true
}

// Age backdates the task's last status change.
func (s *memoryStore) Age(id uuid.UUID, by time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed[id] = time.Now().Add(-by)
}

func (s *memoryStore) Get(id uuid.UUID) (*fakeTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ft, ok := s.tasks[id]
	return ft, ok
}
