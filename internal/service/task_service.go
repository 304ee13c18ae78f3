package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/miyog/miyog-engine/internal/events"
	"github.com/miyog/miyog-engine/internal/metrics"
	"github.com/miyog/miyog-engine/internal/pipeline"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/store"
	"github.com/miyog/miyog-engine/internal/task"
)

// CreditActionVideoTask labels credits spent on queued renders.
const CreditActionVideoTask = "video_task"

// TaskRequest describes a video to generate. Zero values keep the task
// defaults; a non-empty Timeline makes it an editor export.
type TaskRequest struct {
	Title             string
	Description       string
	Script            string
	Resolution        string
	FPS               int
	Duration          float64
	GenerateScript    bool
	GenerateAudio     bool
	GenerateImages    *bool
	GenerateVideo     bool
	BackgroundColor   string
	VignetteIntensity int
	ProjectID         *int64
	Timeline          json.RawMessage
	Files             domain.Files
	Captions          *domain.Captions
}

// QueuedTask is returned once a task has been paid for and enqueued.
type QueuedTask struct {
	TaskID           int64
	RemainingCredits int
}

// URLSigner turns a storage key into a time-limited download URL.
type URLSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

// TaskService creates and reads video tasks.
type TaskService interface {
	// Generate charges domain.VideoTaskCost credits, stores a Processing
	// task and enqueues it.
	Generate(ctx context.Context, ownerID uuid.UUID, req TaskRequest) (*QueuedTask, error)

	// ListTasks returns the caller's tasks, newest first.
	ListTasks(ctx context.Context, ownerID uuid.UUID) ([]*domain.VideoTask, error)

	// GetTask returns a task with a playable video URL.
	GetTask(ctx context.Context, ownerID uuid.UUID, taskID int64) (*domain.VideoTask, error)
}

// TaskServiceDeps groups the collaborators of the task service.
type TaskServiceDeps struct {
	Tx       TxRunner
	Users    store.UserStore
	Projects store.ProjectStore
	Tasks    store.VideoTaskStore
	Emitter  events.EventEmitter
	Signer   URLSigner
	Metrics  *metrics.Metrics
}

type taskServiceImpl struct {
	deps   TaskServiceDeps
	logger *slog.Logger
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a new TaskService.
func NewTaskService(deps TaskServiceDeps, logger *slog.Logger) (TaskService, error) {
	switch {
	case deps.Tx == nil:
		return nil, errors.New("tx runner cannot be nil")
	case deps.Users == nil, deps.Projects == nil, deps.Tasks == nil:
		return nil, errors.New("stores cannot be nil")
	case deps.Emitter == nil:
		return nil, errors.New("event emitter cannot be nil")
	case deps.Signer == nil:
		return nil, errors.New("url signer cannot be nil")
	}
	return &taskServiceImpl{
		deps:   deps,
		logger: logger.With("component", "task_service"),
	}, nil
}

// newTask applies req over the task defaults.
func newTask(ownerID uuid.UUID, req TaskRequest) *domain.VideoTask {
	t := domain.NewVideoTask(ownerID)
	if title := strings.TrimSpace(req.Title); title != "" {
		t.Title = title
	}
	t.Description = req.Description
	t.Script = strings.TrimSpace(req.Script)
	if req.Resolution != "" {
		t.Resolution = req.Resolution
	}
	if req.FPS > 0 {
		t.FPS = req.FPS
	}
	if req.Duration > 0 {
		t.Duration = req.Duration
	}
	t.GenerateScript = req.GenerateScript
	t.GenerateAudio = req.GenerateAudio
	if req.GenerateImages != nil {
		t.GenerateImages = *req.GenerateImages
	}
	t.GenerateVideo = req.GenerateVideo
	t.BackgroundColor = req.BackgroundColor
	t.VignetteIntensity = req.VignetteIntensity
	t.ProjectID = req.ProjectID
	t.Files = req.Files
	if req.Captions != nil {
		t.Captions = *req.Captions
	}
	if len(req.Timeline) > 0 {
		t.Timeline = req.Timeline
	}
	return t
}

func (s *taskServiceImpl) Generate(ctx context.Context, ownerID uuid.UUID, req TaskRequest) (*QueuedTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", ownerID.String()))

	t := newTask(ownerID, req)
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if t.HasTimeline() {
		if _, err := timeline.Decode(t.Timeline, t.FPS, t.Duration); err != nil {
			log.Debug("rejecting invalid timeline", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%w: %w", ErrInvalidTimeline, err)
		}
	}

	if t.ProjectID != nil {
		project, err := s.deps.Projects.GetByID(ctx, *t.ProjectID)
		if err != nil && !store.IsNotFoundError(err) {
			return nil, mapError("task", "generate", err)
		}
		if err != nil || !project.IsOwnedBy(ownerID) {
			log.Warn("task requested for foreign project", slog.Int64("project_id", *t.ProjectID))
			return nil, ErrNotOwned
		}
	}

	var remaining int
	err := s.deps.Tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		remaining, err = s.deps.Users.WithTx(tx).DebitCredits(ctx, ownerID, domain.VideoTaskCost)
		if err != nil {
			return err
		}
		return s.deps.Tasks.WithTx(tx).Create(ctx, t)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			log.Error("failed to create task", slog.String("error", redact.Error(err)))
		}
		return nil, mapError("task", "generate", err)
	}
	s.deps.Metrics.AddCreditsDebited(CreditActionVideoTask, domain.VideoTaskCost)

	if err := s.enqueue(ctx, t.ID); err != nil {
		log.Error("failed to enqueue task, refunding",
			slog.Int64("task_id", t.ID),
			slog.String("error", redact.Error(err)))
		s.rollback(context.WithoutCancel(ctx), t, err)
		return nil, NewServiceError("task", "enqueue", err)
	}

	log.Info("video task queued",
		slog.Int64("task_id", t.ID),
		slog.Bool("editor_export", t.HasTimeline()),
		slog.Int("remaining_credits", remaining))
	return &QueuedTask{TaskID: t.ID, RemainingCredits: remaining}, nil
}

func (s *taskServiceImpl) enqueue(ctx context.Context, taskID int64) error {
	event, err := task.NewVideoGenerationEvent(taskID)
	if err != nil {
		return err
	}
	return s.deps.Emitter.EmitEvent(ctx, event)
}

// rollback refunds the credits of a task that never reached the queue and
// marks it failed.
func (s *taskServiceImpl) rollback(ctx context.Context, t *domain.VideoTask, cause error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if _, err := s.deps.Users.AddCredits(ctx, t.OwnerID, domain.VideoTaskCost); err != nil {
		log.Error("failed to refund credits",
			slog.Int64("task_id", t.ID),
			slog.String("error", redact.Error(err)))
	}
	if err := s.deps.Tasks.Fail(ctx, t.ID, domain.FailedStatus(errors.New(redact.Error(cause)))); err != nil {
		log.Error("failed to mark task failed",
			slog.Int64("task_id", t.ID),
			slog.String("error", redact.Error(err)))
	}
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, ownerID uuid.UUID) ([]*domain.VideoTask, error) {
	tasks, err := s.deps.Tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", ownerID.String()))
		return nil, mapError("task", "list", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, ownerID uuid.UUID, taskID int64) (*domain.VideoTask, error) {
	t, err := s.deps.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, mapError("task", "get", err)
	}
	if t.OwnerID != ownerID {
		return nil, ErrTaskNotFound
	}
	t.VideoURL = s.playableURL(ctx, t.VideoURL)
	return t, nil
}

// playableURL signs storage keys. Local temp paths and absolute URLs are
// returned as is, and a signing failure falls back to the raw key.
func (s *taskServiceImpl) playableURL(ctx context.Context, ref string) string {
	if ref == "" ||
		strings.HasPrefix(ref, pipeline.TempPathPrefix) ||
		strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") {
		return ref
	}
	signed, err := s.deps.Signer.SignedURL(ctx, strings.TrimPrefix(ref, "/"))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to sign video url",
			slog.String("error", redact.Error(err)))
		return ref
	}
	return signed
}
