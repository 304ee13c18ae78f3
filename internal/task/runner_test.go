package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestTaskRunner_Submit(t *testing.T) {
	t.Parallel()

	t.Run("successful submission", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

		task := newFakeTask("test task")
		require.NoError(t, runner.Submit(context.Background(), task))

		pendingTasks, _ := store.GetPendingTasks(context.Background())
		assert.Contains(t, extractTaskIDs(pendingTasks), task.ID())
		assert.Equal(t, 1, runner.QueueLength())
	})

	t.Run("queue full", func(t *testing.T) {
		t.Parallel()

		config := DefaultTaskRunnerConfig()
		config.QueueSize = 1
		runner := NewTaskRunner(newMemoryStore(), config, discardLogger())

		require.NoError(t, runner.Submit(context.Background(), newFakeTask("task 1")))

		err := runner.Submit(context.Background(), newFakeTask("task 2"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrQueueFull)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		store.SaveFn = func(ctx context.Context, task Task) error {
			return errors.New("mock store error")
		}
		runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

		err := runner.Submit(context.Background(), newFakeTask("error task"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save task")
		assert.Equal(t, 0, runner.QueueLength())
	})
}

func TestTaskRunner_Start_and_Processing(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	config := DefaultTaskRunnerConfig()
	config.WorkerCount = 2
	config.QueueSize = 10
	runner := NewTaskRunner(store, config, discardLogger())

	var finished sync.WaitGroup
	finished.Add(3)
	runner.SetFinishHandler(func(task Task, err error, elapsed time.Duration) {
		assert.NoError(t, err)
		finished.Done()
	})

	done := make(chan uuid.UUID, 3)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		task := newFakeTask("test task")
		task.ExecuteFn = func(ctx context.Context) error {
			done <- task.ID()
			return nil
		}
		ids = append(ids, task.ID())
		require.NoError(t, runner.Submit(context.Background(), task))
	}

	require.NoError(t, runner.Start())

	completed := make(map[uuid.UUID]bool)
	timeout := time.After(2 * time.Second)
wait:
	for len(completed) < 3 {
		select {
		case id := <-done:
			completed[id] = true
		case <-timeout:
			break wait
		}
	}
	finished.Wait()
	runner.Stop()

	for _, id := range ids {
		assert.True(t, completed[id], "task %s should have run", id)
		status, ok := store.StatusOf(id)
		require.True(t, ok)
		assert.Equal(t, TaskStatusCompleted, status)
	}
}

func TestTaskRunner_TaskFailure(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(task Task, err error) {
		handled <- err
	})
	finished := make(chan struct{})
	runner.SetFinishHandler(func(Task, error, time.Duration) { close(finished) })

	task := newFakeTask("failing task")
	task.ExecuteFn = func(ctx context.Context) error {
		return errors.New("intentional test failure")
	}
	require.NoError(t, runner.Submit(context.Background(), task))
	require.NoError(t, runner.Start())

	select {
	case err := <-handled:
		assert.EqualError(t, err, "intentional test failure")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error handler")
	}
	<-finished
	runner.Stop()

	status, _ := store.StatusOf(task.ID())
	assert.Equal(t, TaskStatusFailed, status)
	assert.Equal(t, "intentional test failure", store.LastErrors[task.ID()])
}

func TestTaskRunner_PanicBecomesFailure(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(task Task, err error) { handled <- err })

	task := newFakeTask("panicking task")
	task.ExecuteFn = func(ctx context.Context) error { panic("boom") }
	require.NoError(t, runner.Submit(context.Background(), task))
	require.NoError(t, runner.Start())
	defer runner.Stop()

	select {
	case err := <-handled:
		assert.Contains(t, err.Error(), "task panicked: boom")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for panic to be handled")
	}
}

func TestTaskRunner_Recover(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	ctx := context.Background()

	pendingTask := newFakeTask("pending task")
	processingTask := newFakeTask("processing task")
	require.NoError(t, store.SaveTask(ctx, pendingTask))
	require.NoError(t, store.SaveTask(ctx, processingTask))
	require.NoError(t, store.UpdateTaskStatus(ctx, processingTask.ID(), TaskStatusProcessing, ""))

	done := make(chan uuid.UUID, 2)
	for _, task := range []*fakeTask{pendingTask, processingTask} {
		stored, ok := store.Get(task.ID())
		require.True(t, ok)
		stored.ExecuteFn = func(ctx context.Context) error {
			done <- stored.ID()
			return nil
		}
	}

	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())
	require.NoError(t, runner.Start())

	seen := map[uuid.UUID]bool{}
	timeout := time.After(2 * time.Second)
wait:
	for len(seen) < 2 {
		select {
		case id := <-done:
			seen[id] = true
		case <-timeout:
			break wait
		}
	}
	runner.Stop()

	assert.True(t, seen[pendingTask.ID()], "pending task should have run")
	assert.True(t, seen[processingTask.ID()], "interrupted task should have run")
}

func TestTaskRunner_RecoverRebuildsRecords(t *testing.T) {
	t.Parallel()

	record := &Record{
		TaskID:      uuid.New(),
		TaskType:    TaskTypeVideoGeneration,
		TaskPayload: []byte(`{"video_task_id":42}`),
		TaskStatus:  TaskStatusPending,
	}
	unknown := &Record{TaskID: uuid.New(), TaskType: "retired_type", TaskStatus: TaskStatusPending}

	store := newMemoryStore()
	store.GetPendingFn = func(ctx context.Context) ([]Task, error) {
		return []Task{record, unknown}, nil
	}

	processed := make(chan int64, 1)
	processor := &processorFunc{fn: func(ctx context.Context, id int64) error {
		processed <- id
		return nil
	}}

	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())
	factory := NewVideoGenerationTaskFactory(processor, discardLogger())
	runner.Register(TaskTypeVideoGeneration, factory.Rebuild)

	require.NoError(t, runner.Start())
	defer runner.Stop()

	select {
	case id := <-processed:
		assert.Equal(t, int64(42), id)
	case <-time.After(2 * time.Second):
		t.Fatal("rebuilt task was not executed")
	}
}

func TestTaskRunner_StuckTasks(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	ctx := context.Background()

	stuckTask := newFakeTask("stuck task")
	done := make(chan uuid.UUID, 2)
	stuckTask.ExecuteFn = func(ctx context.Context) error {
		done <- stuckTask.ID()
		return nil
	}
	require.NoError(t, store.SaveTask(ctx, stuckTask))

	config := DefaultTaskRunnerConfig()
	config.StuckTaskAge = 15 * time.Minute
	config.StuckTaskCheckInterval = 50 * time.Millisecond
	runner := NewTaskRunner(store, config, discardLogger())

	// Leave recovery nothing to do, then plant a task stuck for 30 minutes.
	store.GetPendingFn = func(ctx context.Context) ([]Task, error) { return nil, nil }
	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, store.UpdateTaskStatus(ctx, stuckTask.ID(), TaskStatusProcessing, ""))
	store.Age(stuckTask.ID(), 30*time.Minute)

	select {
	case id := <-done:
		assert.Equal(t, stuckTask.ID(), id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stuck task to be executed")
	}
}

func TestTaskRunner_ExecutionDeadline(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	config := DefaultTaskRunnerConfig()
	config.WorkerCount = 2
	config.StuckTaskAge = 100 * time.Millisecond
	config.StuckTaskCheckInterval = 200 * time.Millisecond
	runner := NewTaskRunner(store, config, discardLogger())

	slow := newFakeTask("slow render")
	runs := make(chan error, 2)
	slow.ExecuteFn = func(ctx context.Context) error {
		<-ctx.Done()
		runs <- ctx.Err()
		return ctx.Err()
	}

	finished := make(chan error, 2)
	runner.SetFinishHandler(func(_ Task, err error, _ time.Duration) { finished <- err })

	require.NoError(t, runner.Start())
	defer runner.Stop()
	require.NoError(t, runner.Submit(context.Background(), slow))

	select {
	case err := <-runs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("execution was never cancelled")
	}
	select {
	case err := <-finished:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("finish handler not called")
	}

	// Give the monitor several ticks; a timed-out task must not run again.
	time.Sleep(3 * config.StuckTaskCheckInterval)
	assert.Empty(t, runs, "task was executed twice")
	status, ok := store.StatusOf(slow.ID())
	require.True(t, ok)
	assert.Equal(t, TaskStatusFailed, status)
}

func TestTaskRunner_StopCancelsRunningTask(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

	started := make(chan struct{})
	blocked := newFakeTask("blocked")
	cancelled := make(chan error, 1)
	blocked.ExecuteFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled <- ctx.Err()
		return ctx.Err()
	}

	require.NoError(t, runner.Start())
	require.NoError(t, runner.Submit(context.Background(), blocked))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task never started")
	}

	runner.Stop()
	assert.ErrorIs(t, <-cancelled, context.Canceled)

	status, ok := store.StatusOf(blocked.ID())
	require.True(t, ok)
	assert.Equal(t, TaskStatusProcessing, status, "interrupted rows are left for recovery")
}

func TestTaskRunner_StopIsIdempotent(t *testing.T) {
	runner := NewTaskRunner(newMemoryStore(), DefaultTaskRunnerConfig(), discardLogger())
	require.NoError(t, runner.Start())
	runner.Stop()
	runner.Stop()

	err := runner.Submit(context.Background(), newFakeTask("late"))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

type processorFunc struct {
	fn func(ctx context.Context, id int64) error
}

func (p *processorFunc) Process(ctx context.Context, id int64) error {
	return p.fn(ctx, id)
}

func extractTaskIDs(tasks []Task) []uuid.UUID {
	ids := make([]uuid.UUID, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID()
	}
	return ids
}
