package task

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a background task row. It is
// independent of the user-facing status stored on the video task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeVideoGeneration renders a video task, either through the AI
// pipeline or from an editor timeline.
const TaskTypeVideoGeneration = "video_generation"

// ErrNotRebuilt is returned when a task loaded from storage is executed
// before a Builder for its type has turned it back into a runnable task.
var ErrNotRebuilt = errors.New("no builder registered for stored task type")

// Task is a unit of background work. Payload is what gets persisted; it
// must be enough for a Builder to recreate the task after a restart.
type Task interface {
	ID() uuid.UUID
	Type() string
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// Builder recreates a runnable task from its persisted identity and payload.
type Builder func(id uuid.UUID, payload []byte) (Task, error)

// TaskQueueReader is the consuming side of a queue.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter is the producing side of a queue. Enqueue fails rather
// than blocks when the queue is full or closed.
type TaskQueueWriter interface {
	Enqueue(task Task) error
	Close()
}

// TaskStore persists task rows.
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks returns tasks in the processing state. A non-zero
	// olderThan keeps only those whose status changed longer ago than that.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	WithTx(tx *sql.Tx) TaskStore
}

// Record is a task as loaded from storage. It carries the persisted fields
// only; the runner swaps it for a runnable task through a registered Builder.
type Record struct {
	TaskID       uuid.UUID
	TaskType     string
	TaskPayload  []byte
	TaskStatus   TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *Record) ID() uuid.UUID      { return r.TaskID }
func (r *Record) Type() string       { return r.TaskType }
func (r *Record) Payload() []byte    { return r.TaskPayload }
func (r *Record) Status() TaskStatus { return r.TaskStatus }

// Execute always fails: a Record has no behaviour of its own.
func (r *Record) Execute(ctx context.Context) error {
	return ErrNotRebuilt
}
