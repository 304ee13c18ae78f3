package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"reflect"
	"time"

	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/events"
	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/miyog/miyog-engine/internal/platform/ffmpeg"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/platform/s3"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/task"
)

// Worker defaults.
const (
	DefaultSegmentConcurrency = 2
	DefaultAssetConcurrency   = 4
	DefaultDownloadTimeout    = 5 * time.Minute
)

// TaskStore is the part of store.VideoTaskStore the worker writes to.
type TaskStore interface {
	GetByID(ctx context.Context, id int64) (*domain.VideoTask, error)
	UpdateProgress(ctx context.Context, id int64, progress int, stage string) error
	SetScript(ctx context.Context, id int64, script string) error
	Complete(ctx context.Context, id int64, videoURL string) error
	Fail(ctx context.Context, id int64, status domain.TaskStatus) error
}

// Renderer executes a composed ffmpeg command.
type Renderer interface {
	Run(ctx context.Context, cmd *ffmpeg.Command, progress ffmpeg.ProgressFunc) error
}

// ProbeFunc inspects a local media file.
type ProbeFunc func(ctx context.Context, path string) (ffmpeg.ProbeResult, error)

// StockImages finds a stock still for a search term.
type StockImages interface {
	FirstImage(ctx context.Context, query string) (string, error)
}

// Deps are the collaborators of a Worker. Keywords, Stock, Progress and
// HTTPClient are optional.
type Deps struct {
	Tasks       TaskStore
	Storage     s3.Storage
	Scripts     generation.ScriptGenerator
	Voice       generation.VoiceSynthesizer
	Transcriber generation.Transcriber
	Optimizer   generation.SegmentOptimizer
	Clips       generation.ClipGenerator
	Keywords    generation.KeywordExtractor
	Stock       StockImages
	Renderer    Renderer
	Probe       ProbeFunc
	Progress    events.ProgressPublisher
	HTTPClient  *http.Client
}

// Config tunes a Worker.
type Config struct {
	// RuntimeDir holds per-task scratch directories.
	RuntimeDir string
	FontFile   string
	// SegmentConcurrency caps parallel clip generations per task.
	SegmentConcurrency int
	// AssetConcurrency caps parallel downloads per task.
	AssetConcurrency int
}

// ErrMissingDependency is returned by NewWorker when a required
// collaborator is nil.
var ErrMissingDependency = errors.New("pipeline dependency cannot be nil")

// Worker processes video tasks. It implements task.VideoProcessor.
type Worker struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
}

var _ task.VideoProcessor = (*Worker)(nil)

// NewWorker validates deps and applies configuration defaults.
func NewWorker(deps Deps, cfg Config, log *slog.Logger) (*Worker, error) {
	required := map[string]any{
		"tasks":       deps.Tasks,
		"storage":     deps.Storage,
		"scripts":     deps.Scripts,
		"voice":       deps.Voice,
		"transcriber": deps.Transcriber,
		"optimizer":   deps.Optimizer,
		"clips":       deps.Clips,
		"renderer":    deps.Renderer,
		"probe":       deps.Probe,
	}
	for name, dep := range required {
		if isNil(dep) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDependency, name)
		}
	}
	if log == nil {
		return nil, fmt.Errorf("%w: logger", ErrMissingDependency)
	}

	if cfg.RuntimeDir == "" {
		cfg.RuntimeDir = os.TempDir()
	}
	if cfg.SegmentConcurrency < 1 {
		cfg.SegmentConcurrency = DefaultSegmentConcurrency
	}
	if cfg.AssetConcurrency < 1 {
		cfg.AssetConcurrency = DefaultAssetConcurrency
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: DefaultDownloadTimeout}
	}

	return &Worker{
		deps:   deps,
		cfg:    cfg,
		logger: log.With(slog.String("component", "pipeline_worker")),
	}, nil
}

// Process renders one video task and records the outcome on it. Tasks that
// already reached a terminal status are left alone, so a recovered job does
// not render twice. A cancelled ctx leaves the task unfinished; a deadline
// fails it.
func (w *Worker) Process(ctx context.Context, videoTaskID int64) error {
	log := logger.FromContextOrDefault(ctx, w.logger).With(slog.Int64("video_task_id", videoTaskID))
	ctx = logger.WithLogger(ctx, log)

	t, err := w.deps.Tasks.GetByID(ctx, videoTaskID)
	if err != nil {
		return fmt.Errorf("load video task %d: %w", videoTaskID, err)
	}
	if t.Status.IsTerminal() {
		log.Info("video task already finished, skipping", slog.String("status", string(t.Status)))
		return nil
	}

	if err := os.MkdirAll(w.cfg.RuntimeDir, 0o755); err != nil {
		return w.fail(ctx, t.ID, t.HasTimeline(), fmt.Errorf("create runtime dir: %w", err))
	}
	dir, err := os.MkdirTemp(w.cfg.RuntimeDir, fmt.Sprintf("task_%d_", t.ID))
	if err != nil {
		return w.fail(ctx, t.ID, t.HasTimeline(), fmt.Errorf("create scratch dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("failed to remove scratch dir", slog.String("error", redact.Error(err)))
		}
	}()

	editor := t.HasTimeline()
	rep := newReporter(w.deps.Tasks, w.deps.Progress, log, t.ID, editor)

	started := time.Now()
	var key string
	if editor {
		log.Info("rendering editor timeline")
		key, err = w.renderTimeline(ctx, t, dir, rep)
	} else {
		log.Info("running ai pipeline")
		key, err = w.generate(ctx, t, dir, rep)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// Shutdown: keep the task open so the runner's recovery redoes it.
			log.Warn("video task interrupted", slog.String("error", redact.Error(err)))
			return err
		}
		return w.fail(ctx, t.ID, editor, err)
	}

	if err := w.deps.Tasks.Complete(ctx, t.ID, key); err != nil {
		return fmt.Errorf("complete video task %d: %w", t.ID, err)
	}
	w.publish(events.ProgressEvent{
		TaskID:   t.ID,
		Status:   string(domain.TaskStatusCompleted),
		Stage:    domain.StageFor(100, editor),
		Progress: 100,
		VideoURL: key,
	})
	log.Info("video task completed",
		slog.String("video_key", key),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return nil
}

// fail stores the failure status and returns cause.
func (w *Worker) fail(ctx context.Context, id int64, editor bool, cause error) error {
	log := logger.FromContextOrDefault(ctx, w.logger)
	status := domain.FailedStatus(errors.New(redact.Error(cause)))

	// The task context may be what failed; the status must still be written.
	if err := w.deps.Tasks.Fail(context.WithoutCancel(ctx), id, status); err != nil {
		log.Error("failed to record task failure",
			slog.String("error", redact.Error(err)),
			slog.String("cause", redact.Error(cause)))
	}
	w.publish(events.ProgressEvent{TaskID: id, Status: string(status), Stage: domain.StageFor(0, editor)})
	log.Error("video task failed", slog.String("error", redact.Error(cause)))
	return cause
}

func (w *Worker) publish(event events.ProgressEvent) {
	if w.deps.Progress != nil {
		w.deps.Progress.Publish(event)
	}
}

// isNil reports whether v is nil or an interface holding a nil pointer,
// func, map, slice or chan.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
