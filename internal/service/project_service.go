package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/store"
)

// ProjectUpdate lists the project fields a caller may change. Nil fields
// are left untouched.
type ProjectUpdate struct {
	Title       *string
	Description *string
	Platform    *string
	ColorCode   *string
	Emoji       *string
}

// ProjectDetail is a project with its tasks, newest first.
type ProjectDetail struct {
	Project *domain.Project
	Tasks   []*domain.VideoTask
}

// ProjectService manages the projects of a user. Projects owned by someone
// else are reported as ErrProjectNotFound.
type ProjectService interface {
	CreateProject(ctx context.Context, ownerID uuid.UUID, title, description string) (*domain.Project, error)
	ListProjects(ctx context.Context, ownerID uuid.UUID) ([]*domain.Project, error)
	GetProject(ctx context.Context, ownerID uuid.UUID, projectID int64) (*ProjectDetail, error)
	UpdateProject(ctx context.Context, ownerID uuid.UUID, projectID int64, update ProjectUpdate) (*domain.Project, error)
	DeleteProject(ctx context.Context, ownerID uuid.UUID, projectID int64) error
}

type projectServiceImpl struct {
	projects store.ProjectStore
	tasks    store.VideoTaskStore
	logger   *slog.Logger
}

var _ ProjectService = (*projectServiceImpl)(nil)

// NewProjectService creates a new ProjectService
func NewProjectService(projects store.ProjectStore, tasks store.VideoTaskStore, logger *slog.Logger) ProjectService {
	return &projectServiceImpl{
		projects: projects,
		tasks:    tasks,
		logger:   logger.With("component", "project_service"),
	}
}

func (s *projectServiceImpl) CreateProject(
	ctx context.Context,
	ownerID uuid.UUID,
	title, description string,
) (*domain.Project, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	project, err := domain.NewProject(ownerID, title, description)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Create(ctx, project); err != nil {
		log.Error("failed to create project",
			slog.String("error", redact.Error(err)),
			slog.String("owner_id", ownerID.String()))
		return nil, mapError("project", "create", err)
	}

	log.Info("project created",
		slog.Int64("project_id", project.ID),
		slog.String("owner_id", ownerID.String()))
	return project, nil
}

func (s *projectServiceImpl) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]*domain.Project, error) {
	projects, err := s.projects.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list projects",
			slog.String("error", redact.Error(err)),
			slog.String("owner_id", ownerID.String()))
		return nil, mapError("project", "list", err)
	}
	return projects, nil
}

// owned loads a project and hides it from everyone but its owner.
func (s *projectServiceImpl) owned(ctx context.Context, ownerID uuid.UUID, projectID int64) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, mapError("project", "get", err)
	}
	if !project.IsOwnedBy(ownerID) {
		logger.FromContextOrDefault(ctx, s.logger).Warn("project access denied",
			slog.Int64("project_id", projectID),
			slog.String("user_id", ownerID.String()))
		return nil, ErrProjectNotFound
	}
	return project, nil
}

func (s *projectServiceImpl) GetProject(ctx context.Context, ownerID uuid.UUID, projectID int64) (*ProjectDetail, error) {
	project, err := s.owned(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, mapError("project", "list_tasks", err)
	}
	return &ProjectDetail{Project: project, Tasks: tasks}, nil
}

func (s *projectServiceImpl) UpdateProject(
	ctx context.Context,
	ownerID uuid.UUID,
	projectID int64,
	update ProjectUpdate,
) (*domain.Project, error) {
	project, err := s.owned(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		project.Title = strings.TrimSpace(*update.Title)
	}
	if update.Description != nil {
		project.Description = *update.Description
	}
	if update.Platform != nil {
		project.Platform = *update.Platform
	}
	if update.ColorCode != nil {
		project.ColorCode = *update.ColorCode
	}
	if update.Emoji != nil {
		project.Emoji = *update.Emoji
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	project.UpdatedAt = time.Now().UTC()

	if err := s.projects.Update(ctx, project); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update project",
			slog.String("error", redact.Error(err)),
			slog.Int64("project_id", projectID))
		return nil, mapError("project", "update", err)
	}
	return project, nil
}

// DeleteProject removes the project; its tasks are removed by the store.
func (s *projectServiceImpl) DeleteProject(ctx context.Context, ownerID uuid.UUID, projectID int64) error {
	if _, err := s.owned(ctx, ownerID, projectID); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete project",
			slog.String("error", redact.Error(err)),
			slog.Int64("project_id", projectID))
		return mapError("project", "delete", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("project deleted", slog.Int64("project_id", projectID))
	return nil
}
