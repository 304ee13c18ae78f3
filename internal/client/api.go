package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
)

// User is the authenticated account.
type User struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Credits int       `json:"credits"`
}

// ProjectInput creates a project.
type ProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ProjectUpdate changes project metadata. Nil fields are left unchanged.
type ProjectUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Platform    *string `json:"platform,omitempty"`
	ColorCode   *string `json:"color_code,omitempty"`
	Emoji       *string `json:"emoji,omitempty"`
}

// ProjectDetail is a project with its tasks.
type ProjectDetail struct {
	domain.Project
	Tasks []Task `json:"tasks"`
}

// Task is the client view of a video task.
type Task struct {
	ID             int64           `json:"id"`
	ProjectID      *int64          `json:"project_id,omitempty"`
	Status         string          `json:"status"`
	Stage          string          `json:"stage"`
	Progress       int             `json:"progress"`
	VideoURL       string          `json:"video_url"`
	Title          string          `json:"title"`
	Script         string          `json:"script"`
	GenerateImages bool            `json:"generate_images"`
	Captions       domain.Captions `json:"captions"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Completed reports whether the render finished.
func (t *Task) Completed() bool {
	return domain.TaskStatus(t.Status) == domain.TaskStatusCompleted
}

// Failed reports whether the task ended with an error status.
func (t *Task) Failed() bool { return domain.TaskStatus(t.Status).IsFailed() }

// TaskRequest is the payload of POST /api/tasks/generate.
type TaskRequest struct {
	Title             string           `json:"title,omitempty"`
	Description       string           `json:"description,omitempty"`
	Script            string           `json:"scripts,omitempty"`
	Resolution        string           `json:"resolution,omitempty"`
	FPS               int              `json:"fps,omitempty"`
	Duration          float64          `json:"duration,omitempty"`
	GenerateScript    bool             `json:"generate_script"`
	GenerateAudio     bool             `json:"generate_audio"`
	GenerateImages    *bool            `json:"generate_images,omitempty"`
	GenerateVideo     bool             `json:"generate_video"`
	BackgroundColor   string           `json:"background_color,omitempty"`
	VignetteIntensity int              `json:"vignette_intensity,omitempty"`
	ProjectID         *int64           `json:"project_id,omitempty"`
	Timeline          json.RawMessage  `json:"timeline,omitempty"`
	Files             domain.Files     `json:"files"`
	Captions          *domain.Captions `json:"captions,omitempty"`
}

// Queued acknowledges an accepted task.
type Queued struct {
	Status           string `json:"status"`
	TaskID           int64  `json:"task_id"`
	RemainingCredits int    `json:"remaining_credits"`
}

// Script is generated narration.
type Script struct {
	Script string `json:"script"`
	Hook   string `json:"hook"`
}

// Presigned describes a direct-to-storage upload.
type Presigned struct {
	URL    string            `json:"url"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields"`
	Path   string            `json:"path"`
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListProjects returns the caller's projects.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject returns a project and its tasks.
func (c *Client) GetProject(ctx context.Context, id int64) (*ProjectDetail, error) {
	var p ProjectDetail
	if err := c.do(ctx, http.MethodGet, projectPath(id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject changes project metadata.
func (c *Client) UpdateProject(ctx context.Context, id int64, in ProjectUpdate) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodPut, projectPath(id), nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject removes a project and its tasks.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, projectPath(id), nil, nil, nil)
}

// GenerateTask queues a video task.
func (c *Client) GenerateTask(ctx context.Context, in TaskRequest) (*Queued, error) {
	var q Queued
	if err := c.do(ctx, http.MethodPost, "/api/tasks/generate", nil, in, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id int64) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns the caller's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateScript asks for narration on topic. An empty duration uses the
// server default.
func (c *Client) GenerateScript(ctx context.Context, topic, duration string) (*Script, error) {
	in := map[string]string{"topic": topic}
	if duration != "" {
		in["duration"] = duration
	}
	var s Script
	if err := c.do(ctx, http.MethodPost, "/api/ai/generate_script", nil, in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Presign requests a direct upload target for filename.
func (c *Client) Presign(ctx context.Context, filename, fileType string) (*Presigned, error) {
	in := map[string]string{"filename": filename, "file_type": fileType}
	var p Presigned
	if err := c.do(ctx, http.MethodPost, "/api/upload/presigned", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func projectPath(id int64) string { return "/api/projects/" + strconv.FormatInt(id, 10) }

func taskPath(id int64) string { return "/api/tasks/" + strconv.FormatInt(id, 10) }
