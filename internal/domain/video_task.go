package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the user-visible state of a video task.
type TaskStatus string

// Status values. Failures are stored as "Error: <reason>".
const (
	TaskStatusProcessing TaskStatus = "Processing"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusFailed     TaskStatus = "Failed"

	errorStatusPrefix   = "Error"
	maxStatusReasonSize = 100
)

// Credit costs of billable actions.
const (
	VideoTaskCost = 5
	ImageCost     = 1
)

// Task defaults.
const (
	DefaultTaskTitle    = "New AI Video"
	DefaultResolution   = "1080x1920"
	DefaultRenderWidth  = 1920
	DefaultRenderHeight = 1080
	DefaultFPS          = 24
	DefaultDuration     = 30
)

var (
	ErrEmptyTaskOwner     = errors.New("task owner cannot be empty")
	ErrInvalidProgress    = errors.New("progress must be between 0 and 100")
	ErrInvalidFPS         = errors.New("fps must be between 1 and 120")
	ErrInvalidDuration    = errors.New("duration must be positive")
	ErrInvalidVignette    = errors.New("vignette intensity must be between 0 and 100")
	ErrInvalidWordsScreen = errors.New("words per screen must be at least 1")
)

// FailedStatus builds the stored status for a failed task, keeping only the
// first 100 characters of the reason.
func FailedStatus(err error) TaskStatus {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	if r := []rune(reason); len(r) > maxStatusReasonSize {
		reason = string(r[:maxStatusReasonSize])
	}
	return TaskStatus(errorStatusPrefix + ": " + reason)
}

// IsFailed reports whether the status denotes a failure.
func (s TaskStatus) IsFailed() bool {
	return s == TaskStatusFailed || strings.HasPrefix(string(s), errorStatusPrefix)
}

// IsTerminal reports whether polling can stop.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s.IsFailed()
}

// Captions holds the burned-in caption style of the AI pipeline.
type Captions struct {
	Font           string `json:"font"`
	Size           int    `json:"size"`
	Color          string `json:"color"`
	YPos           int    `json:"y_pos"`
	XPos           string `json:"x_pos"`
	WordsPerScreen int    `json:"words_per_screen"`
}

// DefaultCaptions returns the caption style used when a request sets none.
func DefaultCaptions() Captions {
	return Captions{
		Font:           "Liberation-Sans-Bold",
		Size:           80,
		Color:          "yellow",
		YPos:           1300,
		XPos:           "center",
		WordsPerScreen: 1,
	}
}

// Files references user-supplied assets for a task.
type Files struct {
	Foreground string `json:"Foreground,omitempty"`
	Background string `json:"Background,omitempty"`
	AudioTrack string `json:"Audio Track,omitempty"`
	Thumbnail  string `json:"Thumbnail,omitempty"`
}

// VideoTask is a server-side video generation job. Clients poll it until the
// status is terminal.
type VideoTask struct {
	ID                int64           `json:"id"`
	OwnerID           uuid.UUID       `json:"owner_id"`
	ProjectID         *int64          `json:"project_id,omitempty"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Script            string          `json:"script,omitempty"`
	Status            TaskStatus      `json:"status"`
	Stage             string          `json:"stage,omitempty"`
	Progress          int             `json:"progress"`
	Resolution        string          `json:"resolution"`
	FPS               int             `json:"fps"`
	Duration          float64         `json:"duration"`
	VideoURL          string          `json:"video_url,omitempty"`
	GenerateScript    bool            `json:"generate_script"`
	GenerateAudio     bool            `json:"generate_audio"`
	GenerateImages    bool            `json:"generate_images"`
	GenerateVideo     bool            `json:"generate_video"`
	BackgroundColor   string          `json:"background_color,omitempty"`
	VignetteIntensity int             `json:"vignette_intensity"`
	Captions          Captions        `json:"captions"`
	Files             Files           `json:"files"`
	Timeline          json.RawMessage `json:"timeline,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewVideoTask creates a processing task with default settings.
func NewVideoTask(ownerID uuid.UUID) *VideoTask {
	now := time.Now().UTC()
	return &VideoTask{
		OwnerID:        ownerID,
		Title:          DefaultTaskTitle,
		Status:         TaskStatusProcessing,
		Resolution:     DefaultResolution,
		FPS:            DefaultFPS,
		Duration:       DefaultDuration,
		GenerateImages: true,
		Captions:       DefaultCaptions(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasTimeline reports whether the task is an editor export.
func (t *VideoTask) HasTimeline() bool {
	s := strings.TrimSpace(string(t.Timeline))
	return s != "" && s != "null" && s != "[]"
}

// Validate checks if the VideoTask has valid data.
func (t *VideoTask) Validate() error {
	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskOwner
	}
	if t.Progress < 0 || t.Progress > 100 {
		return ErrInvalidProgress
	}
	if t.FPS < 1 || t.FPS > 120 {
		return ErrInvalidFPS
	}
	if t.Duration < 0 {
		return ErrInvalidDuration
	}
	if t.VignetteIntensity < 0 || t.VignetteIntensity > 100 {
		return ErrInvalidVignette
	}
	if t.Captions.WordsPerScreen < 1 {
		return ErrInvalidWordsScreen
	}
	if t.BackgroundColor != "" && !IsHexColor(t.BackgroundColor) {
		return ErrInvalidColor
	}
	if t.Resolution != "" {
		if _, _, err := ParseResolution(t.Resolution); err != nil {
			return err
		}
	}
	return nil
}

// StageFor maps progress to the stage label shown while a task runs.
func StageFor(progress int, editorExport bool) string {
	if editorExport {
		switch {
		case progress < 50:
			return "Downloading Assets"
		case progress < 90:
			return "Rendering Timeline"
		default:
			return "Finalizing"
		}
	}
	switch {
	case progress < 25:
		return "Generating Script/Voice"
	case progress < 50:
		return "Transcribing Audio"
	case progress < 100:
		return "Optimizing Visuals"
	default:
		return string(TaskStatusCompleted)
	}
}

// ParseResolution splits "WIDTHxHEIGHT" into its parts.
func ParseResolution(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 || width > 7680 || height > 7680 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	return width, height, nil
}

// RenderSize resolves the output frame size, falling back to 1920x1080 for
// empty or malformed values.
func RenderSize(resolution string) (int, int) {
	w, h, err := ParseResolution(resolution)
	if err != nil {
		return DefaultRenderWidth, DefaultRenderHeight
	}
	return w, h
}
