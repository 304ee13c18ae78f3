package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/store"
	"github.com/miyog/miyog-engine/internal/task"
)

const (
	insertBackgroundTask = `
		INSERT INTO background_tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`

	updateBackgroundTaskStatus = `
		UPDATE background_tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4`

	selectBackgroundTasks = `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM background_tasks
		WHERE status = $1 AND updated_at < $2
		ORDER BY created_at`
)

// PostgresTaskStore keeps the runner's durable queue in background_tasks.
// The user-facing video_tasks rows are written by PostgresVideoTaskStore.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ task.TaskStore = (*PostgresTaskStore)(nil)

func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{db: db, logger: logger.With(slog.String("component", "task_store"))}
}

// SaveTask inserts t with its current status.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	_, err := s.db.ExecContext(ctx, insertBackgroundTask,
		t.ID(), t.Type(), t.Payload(), string(t.Status()), time.Now().UTC())
	if err != nil {
		s.log(ctx).Error("insert background task",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", redact.Error(err)))
		return fmt.Errorf("insert background task: %w", MapError(err))
	}
	return nil
}

// UpdateTaskStatus sets status and message. An unknown id is logged rather
// than returned because the runner has nothing to do about it.
func (s *PostgresTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errorMsg string) error {
	log := s.log(ctx).With(slog.String("task_id", taskID.String()), slog.String("status", string(status)))

	result, err := s.db.ExecContext(ctx, updateBackgroundTaskStatus,
		string(status), errorMsg, time.Now().UTC(), taskID)
	if err != nil {
		log.Error("update background task", slog.String("error", redact.Error(err)))
		return fmt.Errorf("update background task: %w", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrJobNotFound); err != nil {
		log.Warn("background task vanished before status update", slog.String("error", redact.Error(err)))
	}
	return nil
}

func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.listByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks lists processing tasks untouched for at least olderThan.
// Zero lists all of them.
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Task, error) {
	return s.listByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *PostgresTaskStore) listByStatus(ctx context.Context, status task.TaskStatus, olderThan time.Duration) ([]task.Task, error) {
	log := s.log(ctx).With(slog.String("status", string(status)))

	// A zero age still needs a bound; rows stamped in the future never exist.
	cutoff := time.Now().UTC().Add(-olderThan)
	if olderThan <= 0 {
		cutoff = time.Now().UTC().Add(time.Minute)
	}

	rows, err := s.db.QueryContext(ctx, selectBackgroundTasks, string(status), cutoff)
	if err != nil {
		log.Error("list background tasks", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("list %s tasks: %w", status, MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []task.Task
	for rows.Next() {
		rec := &task.Record{}
		var rowStatus string
		err := rows.Scan(&rec.TaskID, &rec.TaskType, &rec.TaskPayload, &rowStatus,
			&rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan background task: %w", err)
		}
		rec.TaskStatus = task.TaskStatus(rowStatus)
		tasks = append(tasks, rec)
	}
	if err := rows.Err(); err != nil {
		log.Error("iterate background tasks", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("iterate background tasks: %w", err)
	}
	return tasks, nil
}

// WithTx returns a store bound to tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

func (s *PostgresTaskStore) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}
