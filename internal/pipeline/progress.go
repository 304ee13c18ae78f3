package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/events"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
)

// reporter records the progress of one task. Progress only moves forward,
// so callers may report from concurrent steps.
type reporter struct {
	tasks     TaskStore
	publisher events.ProgressPublisher
	logger    *slog.Logger
	taskID    int64
	editor    bool

	mu   sync.Mutex
	last int
}

func newReporter(tasks TaskStore, publisher events.ProgressPublisher, log *slog.Logger, taskID int64, editor bool) *reporter {
	return &reporter{
		tasks:     tasks,
		publisher: publisher,
		logger:    log,
		taskID:    taskID,
		editor:    editor,
		last:      -1,
	}
}

// Set records progress when it is ahead of the last recorded value.
func (r *reporter) Set(ctx context.Context, progress int) {
	progress = max(0, min(100, progress))

	r.mu.Lock()
	defer r.mu.Unlock()
	if progress <= r.last {
		return
	}
	r.last = progress

	stage := domain.StageFor(progress, r.editor)
	if err := r.tasks.UpdateProgress(ctx, r.taskID, progress, stage); err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Warn("failed to record task progress",
			slog.Int("progress", progress),
			slog.String("error", redact.Error(err)))
	}
	if r.publisher != nil {
		r.publisher.Publish(events.ProgressEvent{
			TaskID:   r.taskID,
			Status:   string(domain.TaskStatusProcessing),
			Stage:    stage,
			Progress: progress,
		})
	}
}

// Span maps done/total of a step onto the progress range [from, to].
func (r *reporter) Span(ctx context.Context, from, to, done, total int) {
	if total <= 0 {
		r.Set(ctx, to)
		return
	}
	r.Set(ctx, from+(to-from)*done/total)
}

// Fraction maps a 0..1 fraction onto the progress range [from, to].
func (r *reporter) Fraction(ctx context.Context, from, to int, f float64) {
	r.Set(ctx, from+int(float64(to-from)*f))
}
