package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/miyog/miyog-engine/internal/events"
	"github.com/miyog/miyog-engine/internal/redact"
)

// videoTaskCreator is satisfied by VideoGenerationTaskFactory.
type videoTaskCreator interface {
	CreateTask(videoTaskID int64) (Task, error)
}

// submitter is satisfied by TaskRunner.
type submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler turns video generation requests published by the
// task service into runner submissions.
type TaskFactoryEventHandler struct {
	factory videoTaskCreator
	runner  submitter
	logger  *slog.Logger
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

// NewTaskFactoryEventHandler returns a handler that builds tasks with
// factory and submits them to runner.
func NewTaskFactoryEventHandler(factory videoTaskCreator, runner submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With(slog.String("component", "task_event_handler")),
	}
}

// HandleEvent submits a render for video generation events and ignores
// every other type.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	log := h.logger.With(slog.String("event_id", event.ID.String()))
	if event.Type != TaskTypeVideoGeneration {
		log.Debug("ignoring event", slog.String("event_type", event.Type))
		return nil
	}

	var payload videoGenerationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	log = log.With(slog.Int64("video_task_id", payload.VideoTaskID))

	t, err := h.factory.CreateTask(payload.VideoTaskID)
	if err != nil {
		log.Error("render task rejected", slog.String("error", redact.Error(err)))
		return fmt.Errorf("failed to create task: %w", err)
	}
	if err := h.runner.Submit(ctx, t); err != nil {
		log.Error("render task not submitted",
			slog.String("task_id", t.ID().String()),
			slog.String("error", redact.Error(err)))
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Info("render task submitted", slog.String("task_id", t.ID().String()))
	return nil
}

// NewVideoGenerationEvent builds the event that requests a render of videoTaskID.
func NewVideoGenerationEvent(videoTaskID int64) (*events.TaskRequestEvent, error) {
	return events.NewTaskRequestEvent(TaskTypeVideoGeneration, videoGenerationPayload{VideoTaskID: videoTaskID})
}
