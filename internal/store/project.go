package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
)

// ProjectStore defines the interface for project data persistence.
type ProjectStore interface {
	// Create saves a new project and assigns its ID.
	// Returns ErrInvalidEntity if the owner does not exist.
	Create(ctx context.Context, project *domain.Project) error

	// GetByID retrieves a project by ID.
	// Returns ErrProjectNotFound if the project does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Project, error)

	// ListByOwner returns the owner's projects, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Project, error)

	// Update saves the project's metadata.
	// Returns ErrProjectNotFound if the project does not exist.
	Update(ctx context.Context, project *domain.Project) error

	// Delete removes a project. Its video tasks are removed with it.
	// Returns ErrProjectNotFound if the project does not exist.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a new ProjectStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ProjectStore
}
