package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
)

// VideoTaskStore defines the interface for video task persistence.
type VideoTaskStore interface {
	// Create saves a new task and assigns its ID.
	// Returns validation errors from the domain VideoTask if data is invalid.
	Create(ctx context.Context, task *domain.VideoTask) error

	// GetByID retrieves a task by ID.
	// Returns ErrVideoTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.VideoTask, error)

	// ListByOwner returns the owner's tasks, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.VideoTask, error)

	// ListByProject returns the tasks of a project, newest first.
	ListByProject(ctx context.Context, projectID int64) ([]*domain.VideoTask, error)

	// UpdateProgress records a progress value and its stage label.
	// Returns ErrVideoTaskNotFound if the task does not exist.
	UpdateProgress(ctx context.Context, id int64, progress int, stage string) error

	// SetScript stores a generated script on the task.
	SetScript(ctx context.Context, id int64, script string) error

	// Complete marks the task Completed at 100% with the given video URL.
	Complete(ctx context.Context, id int64, videoURL string) error

	// Fail stores a failure status on the task.
	Fail(ctx context.Context, id int64, status domain.TaskStatus) error

	// WithTx returns a new VideoTaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) VideoTaskStore
}
