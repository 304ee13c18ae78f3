package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Errors returned by Enqueue.
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a bounded in-memory buffer between Submit and the workers.
// Enqueue never blocks: a full queue is reported to the caller, whose task
// row stays pending in the store until the next recovery pass.
type TaskQueue struct {
	mu     sync.RWMutex
	closed bool
	ch     chan Task
	logger *slog.Logger
}

var (
	_ TaskQueueReader = (*TaskQueue)(nil)
	_ TaskQueueWriter = (*TaskQueue)(nil)
)

// NewTaskQueue returns a queue holding up to size tasks (at least one).
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskQueue{ch: make(chan Task, max(size, 1)), logger: logger}
}

func (q *TaskQueue) Enqueue(t Task) error {
	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- t:
		q.logger.Debug("task enqueued",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.Int("depth", len(q.ch)))
		return nil
	default:
		return fmt.Errorf("%w: %d tasks waiting", ErrQueueFull, cap(q.ch))
	}
}

// Close stops intake; workers drain what is already buffered.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
	q.logger.Info("task queue closed", slog.Int("remaining", len(q.ch)))
}

// Len reports how many tasks are waiting.
func (q *TaskQueue) Len() int { return len(q.ch) }

func (q *TaskQueue) GetChannel() <-chan Task { return q.ch }
