package api

import (
	"log/slog"
	"net/http"

	"github.com/miyog/miyog-engine/internal/api/shared"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/service"
)

// ProjectHandler handles project CRUD requests.
type ProjectHandler struct {
	projects service.ProjectService
	logger   *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects service.ProjectService, logger *slog.Logger) *ProjectHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ProjectHandler")
	}
	return &ProjectHandler{
		projects: projects,
		logger:   logger.With(slog.String("component", "project_handler")),
	}
}

// ListProjects handles GET /api/projects.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	projects, err := h.projects.ListProjects(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list projects")
		return
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, projects)
}

// CreateProject handles POST /api/projects.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	project, err := h.projects.CreateProject(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create project")
		return
	}
	log.Debug("project created", slog.Int64("project_id", project.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, project)
}

// GetProject handles GET /api/projects/{id}.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, projectID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	detail, err := h.projects.GetProject(r.Context(), userID, projectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load project")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ProjectDetailResponse{
		Project: detail.Project,
		Tasks:   tasksToResponse(detail.Tasks),
	})
}

// UpdateProject handles PUT /api/projects/{id}.
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, projectID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	project, err := h.projects.UpdateProject(r.Context(), userID, projectID, req.toUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update project")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, project)
}

// DeleteProject handles DELETE /api/projects/{id}. The project's tasks are
// removed with it.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, projectID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.projects.DeleteProject(r.Context(), userID, projectID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete project")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
