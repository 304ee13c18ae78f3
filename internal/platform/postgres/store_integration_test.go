//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/platform/postgres"
	"github.com/miyog/miyog-engine/internal/store"
	"github.com/miyog/miyog-engine/internal/task"
	"github.com/miyog/miyog-engine/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore(t *testing.T) {
	t.Parallel()
	db := testdb.Open(t)

	testdb.InTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)
		id := uuid.New()

		created, err := users.GetOrCreate(ctx, id, "")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultCredits, created.Credits)
		assert.Equal(t, domain.PlaceholderEmail(id), created.Email)

		again, err := users.GetOrCreate(ctx, id, "other@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.Email, again.Email, "existing user must not be overwritten")

		remaining, err := users.DebitCredits(ctx, id, domain.VideoTaskCost)
		require.NoError(t, err)
		assert.Equal(t, 5, remaining)

		remaining, err = users.DebitCredits(ctx, id, 6)
		assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
		assert.Equal(t, 5, remaining)

		balance, err := users.AddCredits(ctx, id, 2)
		require.NoError(t, err)
		assert.Equal(t, 7, balance)

		_, err = users.DebitCredits(ctx, uuid.New(), 1)
		assert.ErrorIs(t, err, store.ErrUserNotFound)

		require.NoError(t, users.Delete(ctx, id))
		_, err = users.GetByID(ctx, id)
		assert.ErrorIs(t, err, store.ErrUserNotFound)
		assert.ErrorIs(t, users.Delete(ctx, id), store.ErrUserNotFound)
	})
}

func TestProjectAndVideoTaskStores(t *testing.T) {
	t.Parallel()
	db := testdb.Open(t)

	testdb.InTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		owner := testdb.InsertUser(t, tx, 10)
		projects := postgres.NewPostgresProjectStore(tx, nil)
		tasks := postgres.NewPostgresVideoTaskStore(tx, nil)

		project, err := domain.NewProject(owner, "Launch", "teasers")
		require.NoError(t, err)
		require.NoError(t, projects.Create(ctx, project))
		assert.Positive(t, project.ID)

		project.Title = "Launch v2"
		require.NoError(t, projects.Update(ctx, project))
		got, err := projects.GetByID(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, "Launch v2", got.Title)

		list, err := projects.ListByOwner(ctx, owner)
		require.NoError(t, err)
		require.Len(t, list, 1)

		vt := domain.NewVideoTask(owner)
		vt.ProjectID = &project.ID
		vt.Timeline = json.RawMessage(`[{"id":102,"type":"video","clips":[]}]`)
		vt.Files.AudioTrack = "uploads/a.wav"
		require.NoError(t, tasks.Create(ctx, vt))

		loaded, err := tasks.GetByID(ctx, vt.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusProcessing, loaded.Status)
		assert.Equal(t, project.ID, *loaded.ProjectID)
		assert.True(t, loaded.HasTimeline())
		assert.Equal(t, "uploads/a.wav", loaded.Files.AudioTrack)
		assert.Equal(t, domain.DefaultCaptions(), loaded.Captions)

		require.NoError(t, tasks.UpdateProgress(ctx, vt.ID, 50, "Rendering Timeline"))
		require.NoError(t, tasks.Complete(ctx, vt.ID, "completed/export_x.mp4"))
		loaded, err = tasks.GetByID(ctx, vt.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, loaded.Progress)
		assert.Equal(t, domain.TaskStatusCompleted, loaded.Status)
		assert.Equal(t, "completed/export_x.mp4", loaded.VideoURL)

		assert.Error(t, tasks.Fail(ctx, vt.ID, domain.TaskStatusCompleted))
		assert.ErrorIs(t, tasks.UpdateProgress(ctx, 999999, 10, ""), store.ErrVideoTaskNotFound)

		byProject, err := tasks.ListByProject(ctx, project.ID)
		require.NoError(t, err)
		assert.Len(t, byProject, 1)

		// Deleting the project removes its tasks.
		require.NoError(t, projects.Delete(ctx, project.ID))
		_, err = tasks.GetByID(ctx, vt.ID)
		assert.ErrorIs(t, err, store.ErrVideoTaskNotFound)
		_, err = projects.GetByID(ctx, project.ID)
		assert.ErrorIs(t, err, store.ErrProjectNotFound)
	})
}

func TestDebitCreditsIsAtomic(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	users := postgres.NewPostgresUserStore(db, nil)

	id := testdb.InsertUser(t, db, 10)
	t.Cleanup(func() { _ = users.Delete(ctx, id) })

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := users.DebitCredits(ctx, id, domain.VideoTaskCost); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, successes)
	user, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, user.Credits)
}

func TestTaskStore(t *testing.T) {
	t.Parallel()
	db := testdb.Open(t)

	testdb.InTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		jobs := postgres.NewPostgresTaskStore(tx, nil)

		job := &task.Record{
			TaskID:      uuid.New(),
			TaskType:    task.TaskTypeVideoGeneration,
			TaskPayload: []byte(`{"video_task_id":1}`),
			TaskStatus:  task.TaskStatusPending,
		}
		require.NoError(t, jobs.SaveTask(ctx, job))

		pending, err := jobs.GetPendingTasks(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids(pending), job.TaskID)

		require.NoError(t, jobs.UpdateTaskStatus(ctx, job.TaskID, task.TaskStatusProcessing, ""))
		processing, err := jobs.GetProcessingTasks(ctx, 0)
		require.NoError(t, err)
		assert.Contains(t, ids(processing), job.TaskID)

		stale, err := jobs.GetProcessingTasks(ctx, time.Hour)
		require.NoError(t, err)
		assert.NotContains(t, ids(stale), job.TaskID)

		assert.NoError(t, jobs.UpdateTaskStatus(ctx, uuid.New(), task.TaskStatusFailed, "gone"))
	})
}

func ids(tasks []task.Task) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID())
	}
	return out
}
