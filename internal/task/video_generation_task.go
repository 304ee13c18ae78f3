package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilProcessor      = errors.New("video processor cannot be nil")
	ErrNilLogger         = errors.New("logger cannot be nil")
	ErrInvalidVideoTask  = errors.New("video task ID must be positive")
	ErrInvalidTaskRecord = errors.New("invalid stored task payload")
)

// VideoProcessor renders a stored video task and records its outcome on the
// task row. It is implemented by the pipeline worker.
type VideoProcessor interface {
	Process(ctx context.Context, videoTaskID int64) error
}

// videoGenerationPayload represents the serialized data stored in the task
type videoGenerationPayload struct {
	VideoTaskID int64 `json:"video_task_id"`
}

// VideoGenerationTask implements the Task interface for rendering one video task.
type VideoGenerationTask struct {
	id          uuid.UUID
	videoTaskID int64
	processor   VideoProcessor
	logger      *slog.Logger
	status      TaskStatus
}

// NewVideoGenerationTask creates a new task for the given video task ID
func NewVideoGenerationTask(
	videoTaskID int64,
	processor VideoProcessor,
	logger *slog.Logger,
) (*VideoGenerationTask, error) {
	return newVideoGenerationTask(uuid.New(), videoTaskID, processor, logger)
}

func newVideoGenerationTask(
	id uuid.UUID,
	videoTaskID int64,
	processor VideoProcessor,
	logger *slog.Logger,
) (*VideoGenerationTask, error) {
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if videoTaskID <= 0 {
		return nil, ErrInvalidVideoTask
	}

	return &VideoGenerationTask{
		id:          id,
		videoTaskID: videoTaskID,
		processor:   processor,
		logger:      logger.With("task_type", TaskTypeVideoGeneration, "video_task_id", videoTaskID),
		status:      TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *VideoGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *VideoGenerationTask) Type() string {
	return TaskTypeVideoGeneration
}

// VideoTaskID returns the video task this job renders.
func (t *VideoGenerationTask) VideoTaskID() int64 {
	return t.videoTaskID
}

// Payload returns the task data as a byte slice
func (t *VideoGenerationTask) Payload() []byte {
	data, err := json.Marshal(videoGenerationPayload{VideoTaskID: t.videoTaskID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *VideoGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute hands the video task to the processor.
func (t *VideoGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting video generation task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.processor.Process(ctx, t.videoTaskID); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to process video task %d: %w", t.videoTaskID, err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("video generation task completed")
	return nil
}
