package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// VideoGenerationTaskFactory creates VideoGenerationTask instances
type VideoGenerationTaskFactory struct {
	processor VideoProcessor
	logger    *slog.Logger
}

// NewVideoGenerationTaskFactory creates a new factory for VideoGenerationTasks
func NewVideoGenerationTaskFactory(processor VideoProcessor, logger *slog.Logger) *VideoGenerationTaskFactory {
	return &VideoGenerationTaskFactory{
		processor: processor,
		logger:    logger.With("component", "video_generation_task_factory"),
	}
}

// CreateTask creates a new VideoGenerationTask for the specified video task
func (f *VideoGenerationTaskFactory) CreateTask(videoTaskID int64) (Task, error) {
	return NewVideoGenerationTask(videoTaskID, f.processor, f.logger)
}

// Rebuild recreates a persisted task. It satisfies Builder.
func (f *VideoGenerationTaskFactory) Rebuild(id uuid.UUID, payload []byte) (Task, error) {
	var p videoGenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTaskRecord, err)
	}
	return newVideoGenerationTask(id, p.VideoTaskID, f.processor, f.logger)
}
