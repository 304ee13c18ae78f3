package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/miyog/miyog-engine/internal/redact"
)

// TaskRunnerConfig sizes the worker pool and the stuck-task monitor.
type TaskRunnerConfig struct {
	WorkerCount int
	QueueSize   int

	// StuckTaskAge bounds each execution. The monitor reclaims rows left
	// processing for longer than StuckTaskAge plus one check interval,
	// which only happens when the process that owned them died.
	StuckTaskAge time.Duration

	// StuckTaskAge defaults to an hour and StuckTaskCheckInterval to five
	// minutes.
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig suits a single server rendering a couple of
// videos at a time.
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           time.Hour,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner executes background tasks on a fixed pool of workers. Every
// task is persisted before it is queued, so nothing submitted is lost to a
// restart: Start requeues pending rows and rows a crash left processing.
type TaskRunner struct {
	store  TaskStore
	queue  *TaskQueue
	config TaskRunnerConfig
	logger *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu         sync.RWMutex
	builders   map[string]Builder
	errHandler func(task Task, err error)
	onFinish   func(task Task, err error, elapsed time.Duration)
}

// NewTaskRunner returns a stopped runner. Call Start to begin processing.
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "task_runner"))

	if config.StuckTaskAge <= 0 {
		config.StuckTaskAge = time.Hour
	}
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if config.WorkerCount <= 0 {
		logger.Warn("worker count must be positive, using 1", slog.Int("configured", config.WorkerCount))
		config.WorkerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &TaskRunner{
		store:    store,
		queue:    NewTaskQueue(config.QueueSize, logger),
		config:   config,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		builders: make(map[string]Builder),
	}
}

// Register installs the Builder used to rebuild stored tasks of taskType.
func (r *TaskRunner) Register(taskType string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[taskType] = builder
}

// SetErrorHandler registers a callback for failed executions.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errHandler = handler
}

// SetFinishHandler registers a callback invoked after every execution with
// its outcome and duration.
func (r *TaskRunner) SetFinishHandler(handler func(task Task, err error, elapsed time.Duration)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFinish = handler
}

// QueueLength reports how many tasks wait for a worker.
func (r *TaskRunner) QueueLength() int { return r.queue.Len() }

// Submit persists task as pending and queues it. When the queue is full the
// error is returned but the row stays pending for the next recovery.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Start recovers unfinished work, then launches the workers and the
// stuck-task monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.wg.Add(r.config.WorkerCount + 1)
	for i := range r.config.WorkerCount {
		go r.worker(i)
	}
	go r.monitorStuck()
	return nil
}

// Stop waits for running tasks to finish and closes the queue. Tasks still
// queued stay pending in the store. Stop is safe to call more than once.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		r.wg.Wait()
		r.queue.Close()
	})
}

// Recover requeues pending tasks and resets tasks left processing by an
// earlier process.
func (r *TaskRunner) Recover() error {
	ctx := context.Background()

	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}
	interrupted, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		slog.Int("pending", len(pending)),
		slog.Int("interrupted", len(interrupted)))

	for _, t := range pending {
		r.requeue(t, "pending")
	}
	r.resetAll(ctx, interrupted, "interrupted", "Reset after recovery")
	return nil
}

// resetAll marks each task pending again and requeues it.
func (r *TaskRunner) resetAll(ctx context.Context, tasks []Task, origin, reason string) {
	for _, t := range tasks {
		if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusPending, reason); err != nil {
			r.taskLogger(t).Error("failed to reset task",
				slog.String("origin", origin),
				slog.String("error", redact.Error(err)))
			continue
		}
		r.requeue(t, origin)
	}
}

func (r *TaskRunner) requeue(t Task, origin string) {
	log := r.taskLogger(t).With(slog.String("origin", origin))

	runnable, err := r.rebuild(t)
	if err != nil {
		log.Error("failed to rebuild stored task", slog.String("error", redact.Error(err)))
		return
	}
	if err := r.queue.Enqueue(runnable); err != nil {
		log.Error("failed to requeue task", slog.String("error", redact.Error(err)))
	}
}

// rebuild turns a Record into a runnable task through its type's Builder.
// Tasks that are already runnable are returned unchanged.
func (r *TaskRunner) rebuild(t Task) (Task, error) {
	if _, stored := t.(*Record); !stored {
		return t, nil
	}

	r.mu.RLock()
	build, ok := r.builders[t.Type()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRebuilt, t.Type())
	}
	return build(t.ID(), t.Payload())
}

func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()
	tasks := r.queue.GetChannel()
	for {
		select {
		case <-r.ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			r.process(t, id)
		}
	}
}

func (r *TaskRunner) process(t Task, workerID int) {
	ctx := context.Background()
	log := r.taskLogger(t).With(slog.Int("worker_id", workerID))

	if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to mark task processing", slog.String("error", redact.Error(err)))
		return
	}
	log.Info("processing task")

	execCtx, cancel := r.executionContext()
	started := time.Now()
	err := r.execute(execCtx, t)
	elapsed := time.Since(started)
	cancel()

	// Shutdown leaves the row processing; the next Recover requeues it.
	if r.ctx.Err() != nil {
		log.Warn("task interrupted by shutdown", slog.Int64("duration_ms", elapsed.Milliseconds()))
		return
	}

	r.mu.RLock()
	errHandler, onFinish := r.errHandler, r.onFinish
	r.mu.RUnlock()

	status, message := TaskStatusCompleted, ""
	if err != nil {
		status, message = TaskStatusFailed, err.Error()
		log.Error("task execution failed",
			slog.String("error", redact.Error(err)),
			slog.Int64("duration_ms", elapsed.Milliseconds()))
	} else {
		log.Info("task completed", slog.Int64("duration_ms", elapsed.Milliseconds()))
	}
	if updateErr := r.store.UpdateTaskStatus(ctx, t.ID(), status, message); updateErr != nil {
		log.Error("failed to record task outcome",
			slog.String("status", string(status)),
			slog.String("error", redact.Error(updateErr)))
	}

	if err != nil && errHandler != nil {
		errHandler(t, err)
	}
	if onFinish != nil {
		onFinish(t, err, elapsed)
	}
}

// executionContext ends with Stop or after StuckTaskAge, whichever is first.
func (r *TaskRunner) executionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.ctx, r.config.StuckTaskAge)
}

// reclaimAge is how long a row must sit in processing before the monitor
// treats its owner as gone. It exceeds StuckTaskAge so a live execution
// always hits its own deadline first.
func (r *TaskRunner) reclaimAge() time.Duration {
	return r.config.StuckTaskAge + r.config.StuckTaskCheckInterval
}

// execute runs the task, turning a panic into an error so one bad render
// cannot take a worker down.
func (r *TaskRunner) execute(ctx context.Context, t Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	err = t.Execute(ctx)
	if errors.Is(err, ErrNotRebuilt) {
		err = fmt.Errorf("%w: %s", err, t.Type())
	}
	return err
}

// monitorStuck periodically resets tasks whose owner stopped updating them.
func (r *TaskRunner) monitorStuck() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			stuck, err := r.store.GetProcessingTasks(r.ctx, r.reclaimAge())
			if err != nil {
				r.logger.Error("failed to check for stuck tasks", slog.String("error", redact.Error(err)))
				continue
			}
			if len(stuck) > 0 {
				r.logger.Warn("resetting stuck tasks", slog.Int("count", len(stuck)))
				r.resetAll(r.ctx, stuck, "stuck", "Reset after being stuck in processing state")
			}
		}
	}
}

func (r *TaskRunner) taskLogger(t Task) *slog.Logger {
	return r.logger.With(
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", t.Type()),
	)
}
