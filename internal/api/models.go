package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/service"
)

// UserResponse is the body of GET /api/user.
type UserResponse struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Credits int       `json:"credits"`
}

// CreateProjectRequest is the payload of POST /api/projects.
type CreateProjectRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateProjectRequest is the payload of PUT /api/projects/{id}. Absent
// fields are left unchanged.
type UpdateProjectRequest struct {
	Title       *string `json:"title"       validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Platform    *string `json:"platform"    validate:"omitempty,max=50"`
	ColorCode   *string `json:"color_code"  validate:"omitempty,hexcolor"`
	Emoji       *string `json:"emoji"       validate:"omitempty,max=16"`
}

func (r UpdateProjectRequest) toUpdate() service.ProjectUpdate {
	return service.ProjectUpdate{
		Title:       r.Title,
		Description: r.Description,
		Platform:    r.Platform,
		ColorCode:   r.ColorCode,
		Emoji:       r.Emoji,
	}
}

// ProjectDetailResponse is a project together with its tasks.
type ProjectDetailResponse struct {
	*domain.Project
	Tasks []TaskResponse `json:"tasks"`
}

// PresignRequest is the payload of POST /api/upload/presigned.
type PresignRequest struct {
	Filename string `json:"filename"  validate:"required,max=255"`
	FileType string `json:"file_type" validate:"max=255"`
}

// PresignResponse tells the browser where and how to upload.
type PresignResponse struct {
	URL    string            `json:"url"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields"`
	Path   string            `json:"path"`
}

// UploadResponse is the body of POST /api/upload.
type UploadResponse struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// GenerateScriptRequest is the payload of POST /api/ai/generate_script.
type GenerateScriptRequest struct {
	Topic    string `json:"topic"    validate:"required,max=500"`
	Duration string `json:"duration" validate:"max=32"`
}

// ScriptResponse carries a generated narration script.
type ScriptResponse struct {
	Script string `json:"script"`
	Hook   string `json:"hook"`
}

// PromptRequest is the payload of the image and video generation routes.
type PromptRequest struct {
	Prompt      string `json:"prompt"       validate:"required,max=2000"`
	AspectRatio string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16 1:1"`
}

// ImageResponse is the body of POST /api/ai/generate_image.
type ImageResponse struct {
	URL              string `json:"url"`
	RemainingCredits int    `json:"remaining_credits"`
}

// MediaResponse is the body of the video and voice generation routes.
type MediaResponse struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url"`
}

// GenerateVoiceRequest is the payload of POST /api/ai/generate_voice.
type GenerateVoiceRequest struct {
	Text      string `json:"text"       validate:"required,max=5000"`
	PromptURL string `json:"prompt_url" validate:"omitempty,url"`
}

// GenerateTaskRequest is the payload of POST /api/tasks/generate.
type GenerateTaskRequest struct {
	Title             string           `json:"title"              validate:"max=200"`
	Description       string           `json:"description"        validate:"max=2000"`
	Script            string           `json:"scripts"`
	Resolution        string           `json:"resolution"`
	FPS               int              `json:"fps"                validate:"gte=0,lte=120"`
	Duration          float64          `json:"duration"           validate:"gte=0"`
	GenerateScript    bool             `json:"generate_script"`
	GenerateAudio     bool             `json:"generate_audio"`
	GenerateImages    *bool            `json:"generate_images"`
	GenerateVideo     bool             `json:"generate_video"`
	BackgroundColor   string           `json:"background_color"`
	VignetteIntensity int              `json:"vignette_intensity" validate:"gte=0,lte=100"`
	ProjectID         *int64           `json:"project_id"`
	Timeline          json.RawMessage  `json:"timeline"`
	Files             domain.Files     `json:"files"`
	Captions          *domain.Captions `json:"captions"`
}

func (r GenerateTaskRequest) toServiceRequest() service.TaskRequest {
	tl := r.Timeline
	if string(tl) == "null" {
		tl = nil
	}
	return service.TaskRequest{
		Title:             r.Title,
		Description:       r.Description,
		Script:            r.Script,
		Resolution:        r.Resolution,
		FPS:               r.FPS,
		Duration:          r.Duration,
		GenerateScript:    r.GenerateScript,
		GenerateAudio:     r.GenerateAudio,
		GenerateImages:    r.GenerateImages,
		GenerateVideo:     r.GenerateVideo,
		BackgroundColor:   r.BackgroundColor,
		VignetteIntensity: r.VignetteIntensity,
		ProjectID:         r.ProjectID,
		Timeline:          tl,
		Files:             r.Files,
		Captions:          r.Captions,
	}
}

// QueuedResponse is the body of POST /api/tasks/generate.
type QueuedResponse struct {
	Status           string `json:"status"`
	TaskID           int64  `json:"task_id"`
	RemainingCredits int    `json:"remaining_credits"`
}

// TaskResponse is the client view of a video task.
type TaskResponse struct {
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

func taskToResponse(t *domain.VideoTask) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		ProjectID:      t.ProjectID,
		Status:         string(t.Status),
		Stage:          t.Stage,
		Progress:       t.Progress,
		VideoURL:       t.VideoURL,
		Title:          t.Title,
		Script:         t.Script,
		GenerateImages: t.GenerateImages,
		Captions:       t.Captions,
		CreatedAt:      t.CreatedAt,
	}
}

func tasksToResponse(tasks []*domain.VideoTask) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}
