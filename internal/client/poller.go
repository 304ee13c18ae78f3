package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/sethvargo/go-retry"
)

// DefaultPollInterval is the delay between status fetches.
const DefaultPollInterval = 3 * time.Second

// ErrTaskFailed is returned by Poll when the task ends in a failure status.
var ErrTaskFailed = errors.New("task failed")

// errPending keeps the poll loop going while the task is processing.
var errPending = errors.New("task still processing")

// TaskGetter fetches a task by id.
type TaskGetter interface {
	GetTask(ctx context.Context, id int64) (*Task, error)
}

var _ TaskGetter = (*Client)(nil)

// Poller follows a task until it reaches a terminal status.
type Poller struct {
	tasks    TaskGetter
	Interval time.Duration
	// OnUpdate, when set, sees every fetched task.
	OnUpdate func(*Task)
	logger   *slog.Logger
}

// NewPoller creates a poller using DefaultPollInterval.
func NewPoller(tasks TaskGetter, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		tasks:    tasks,
		Interval: DefaultPollInterval,
		logger:   logger.With(slog.String("component", "poller")),
	}
}

// Poll fetches the task every Interval until it completes, returning the
// final task, or fails, returning ErrTaskFailed wrapped with the status.
// Fetch errors are logged and retried. Cancelling ctx stops the loop.
func (p *Poller) Poll(ctx context.Context, taskID int64) (*Task, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log := logger.FromContextOrDefault(ctx, p.logger).With(slog.Int64("task_id", taskID))

	var final *Task
	err := retry.Do(ctx, retry.NewConstant(interval), func(ctx context.Context) error {
		task, err := p.tasks.GetTask(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("task status fetch failed", slog.String("error", redact.Error(err)))
			return retry.RetryableError(err)
		}
		if p.OnUpdate != nil {
			p.OnUpdate(task)
		}
		switch {
		case task.Completed():
			final = task
			return nil
		case task.Failed():
			final = task
			return fmt.Errorf("%w: %s", ErrTaskFailed, task.Status)
		default:
			log.Debug("task processing",
				slog.String("stage", task.Stage),
				slog.Int("progress", task.Progress))
			return retry.RetryableError(errPending)
		}
	})
	if err != nil {
		if errors.Is(err, ErrTaskFailed) {
			return final, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	log.Info("task completed", slog.String("video_url", final.VideoURL))
	return final, nil
}
