package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/store"
)

// PostgresVideoTaskStore implements the store.VideoTaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresVideoTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresVideoTaskStore creates a new PostgreSQL implementation of the VideoTaskStore interface.
func NewPostgresVideoTaskStore(db store.DBTX, logger *slog.Logger) *PostgresVideoTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresVideoTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "video_task_store")),
	}
}

// Ensure PostgresVideoTaskStore implements store.VideoTaskStore interface
var _ store.VideoTaskStore = (*PostgresVideoTaskStore)(nil)

const videoTaskColumns = `id, owner_id, project_id, title, description, script, status, stage, progress,
	resolution, fps, duration, video_url, generate_script, generate_audio, generate_images,
	generate_video, background_color, vignette_intensity, captions, files, timeline,
	created_at, updated_at`

func scanVideoTask(row interface{ Scan(...any) error }) (*domain.VideoTask, error) {
	var (
		t         domain.VideoTask
		projectID sql.NullInt64
		status    string
		captions  []byte
		files     []byte
		timeline  []byte
	)
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&projectID,
		&t.Title,
		&t.Description,
		&t.Script,
		&status,
		&t.Stage,
		&t.Progress,
		&t.Resolution,
		&t.FPS,
		&t.Duration,
		&t.VideoURL,
		&t.GenerateScript,
		&t.GenerateAudio,
		&t.GenerateImages,
		&t.GenerateVideo,
		&t.BackgroundColor,
		&t.VignetteIntensity,
		&captions,
		&files,
		&timeline,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TaskStatus(status)
	if projectID.Valid {
		id := projectID.Int64
		t.ProjectID = &id
	}
	t.Captions = domain.DefaultCaptions()
	if len(captions) > 0 {
		if err := json.Unmarshal(captions, &t.Captions); err != nil {
			return nil, fmt.Errorf("failed to decode captions: %w", err)
		}
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &t.Files); err != nil {
			return nil, fmt.Errorf("failed to decode files: %w", err)
		}
	}
	if len(timeline) > 0 {
		t.Timeline = json.RawMessage(timeline)
	}
	return &t, nil
}

// Create implements store.VideoTaskStore.Create
func (s *PostgresVideoTaskStore) Create(ctx context.Context, task *domain.VideoTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("video task validation failed during create", slog.String("error", err.Error()))
		return err
	}

	captions, err := json.Marshal(task.Captions)
	if err != nil {
		return fmt.Errorf("failed to encode captions: %w", err)
	}
	files, err := json.Marshal(task.Files)
	if err != nil {
		return fmt.Errorf("failed to encode files: %w", err)
	}
	var timeline any
	if task.HasTimeline() {
		timeline = []byte(task.Timeline)
	}
	var projectID sql.NullInt64
	if task.ProjectID != nil {
		projectID = sql.NullInt64{Int64: *task.ProjectID, Valid: true}
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO video_tasks (owner_id, project_id, title, description, script, status, stage,
			progress, resolution, fps, duration, video_url, generate_script, generate_audio,
			generate_images, generate_video, background_color, vignette_intensity, captions, files,
			timeline, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23)
		 RETURNING id`,
		task.OwnerID,
		projectID,
		task.Title,
		task.Description,
		task.Script,
		string(task.Status),
		task.Stage,
		task.Progress,
		task.Resolution,
		task.FPS,
		task.Duration,
		task.VideoURL,
		task.GenerateScript,
		task.GenerateAudio,
		task.GenerateImages,
		task.GenerateVideo,
		task.BackgroundColor,
		task.VignetteIntensity,
		captions,
		files,
		timeline,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("video task references a missing owner or project", slog.String("error", err.Error()))
			return MapError(err)
		}
		log.Error("failed to create video task",
			slog.String("error", err.Error()),
			slog.String("owner_id", task.OwnerID.String()))
		return MapError(err)
	}

	log.Info("video task created",
		slog.Int64("video_task_id", task.ID),
		slog.String("owner_id", task.OwnerID.String()),
		slog.Bool("editor_export", task.HasTimeline()))
	return nil
}

// GetByID implements store.VideoTaskStore.GetByID
func (s *PostgresVideoTaskStore) GetByID(ctx context.Context, id int64) (*domain.VideoTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanVideoTask(s.db.QueryRowContext(ctx,
		`SELECT `+videoTaskColumns+` FROM video_tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("video task not found", slog.Int64("video_task_id", id))
			return nil, store.ErrVideoTaskNotFound
		}
		log.Error("failed to get video task",
			slog.String("error", err.Error()),
			slog.Int64("video_task_id", id))
		return nil, MapError(err)
	}
	return task, nil
}

// ListByOwner implements store.VideoTaskStore.ListByOwner
func (s *PostgresVideoTaskStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.VideoTask, error) {
	return s.list(ctx,
		`SELECT `+videoTaskColumns+` FROM video_tasks WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`,
		ownerID)
}

// ListByProject implements store.VideoTaskStore.ListByProject
func (s *PostgresVideoTaskStore) ListByProject(ctx context.Context, projectID int64) ([]*domain.VideoTask, error) {
	return s.list(ctx,
		`SELECT `+videoTaskColumns+` FROM video_tasks WHERE project_id = $1 ORDER BY created_at DESC, id DESC`,
		projectID)
}

func (s *PostgresVideoTaskStore) list(ctx context.Context, query string, arg any) ([]*domain.VideoTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		log.Error("failed to list video tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.VideoTask, 0)
	for rows.Next() {
		t, err := scanVideoTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video task rows: %w", err)
	}
	return tasks, nil
}

// UpdateProgress implements store.VideoTaskStore.UpdateProgress
func (s *PostgresVideoTaskStore) UpdateProgress(ctx context.Context, id int64, progress int, stage string) error {
	if progress < 0 || progress > 100 {
		return domain.ErrInvalidProgress
	}
	return s.exec(ctx, "update progress", id,
		`UPDATE video_tasks SET progress = $1, stage = $2, updated_at = $3 WHERE id = $4`,
		progress, stage, time.Now().UTC(), id)
}

// SetScript implements store.VideoTaskStore.SetScript
func (s *PostgresVideoTaskStore) SetScript(ctx context.Context, id int64, script string) error {
	return s.exec(ctx, "set script", id,
		`UPDATE video_tasks SET script = $1, updated_at = $2 WHERE id = $3`,
		script, time.Now().UTC(), id)
}

// Complete implements store.VideoTaskStore.Complete
func (s *PostgresVideoTaskStore) Complete(ctx context.Context, id int64, videoURL string) error {
	return s.exec(ctx, "complete", id,
		`UPDATE video_tasks SET status = $1, stage = $1, progress = 100, video_url = $2, updated_at = $3
		 WHERE id = $4`,
		string(domain.TaskStatusCompleted), videoURL, time.Now().UTC(), id)
}

// Fail implements store.VideoTaskStore.Fail
func (s *PostgresVideoTaskStore) Fail(ctx context.Context, id int64, status domain.TaskStatus) error {
	if !status.IsFailed() {
		return fmt.Errorf("%w: %q is not a failure status", store.ErrInvalidEntity, status)
	}
	return s.exec(ctx, "fail", id,
		`UPDATE video_tasks SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
}

func (s *PostgresVideoTaskStore) exec(ctx context.Context, op string, id int64, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("video task update failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.Int64("video_task_id", id))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrVideoTaskNotFound); err != nil {
		return err
	}
	log.Debug("video task updated",
		slog.String("operation", op),
		slog.Int64("video_task_id", id))
	return nil
}

// WithTx implements store.VideoTaskStore.WithTx
func (s *PostgresVideoTaskStore) WithTx(tx *sql.Tx) store.VideoTaskStore {
	return &PostgresVideoTaskStore{db: tx, logger: s.logger}
}
