package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/miyog/miyog-engine/internal/api/shared"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/events"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/service"
)

// Websocket timings of the progress stream.
const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// ProgressSubscriber is the read side of the progress broker.
type ProgressSubscriber interface {
	Subscribe(taskID int64) (<-chan events.ProgressEvent, func())
}

// TaskHandler handles video task requests.
type TaskHandler struct {
	tasks    service.TaskService
	progress ProgressSubscriber
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. Websocket upgrades are accepted
// from allowedOrigins, from any origin when it contains "*", and always from
// clients that send no Origin header.
func NewTaskHandler(
	tasks service.TaskService,
	progress ProgressSubscriber,
	allowedOrigins []string,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	origins := slices.Clone(allowedOrigins)
	return &TaskHandler{
		tasks:    tasks,
		progress: progress,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
			},
		},
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// GenerateTask handles POST /api/tasks/generate.
func (h *TaskHandler) GenerateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req GenerateTaskRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	queued, err := h.tasks.Generate(r.Context(), userID, req.toServiceRequest())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to queue task")
		return
	}
	log.Info("video task queued", slog.Int64("task_id", queued.TaskID))
	shared.RespondWithJSON(w, r, http.StatusOK, QueuedResponse{
		Status:           "queued",
		TaskID:           queued.TaskID,
		RemainingCredits: queued.RemainingCredits,
	})
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, taskID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// StreamTask handles GET /api/tasks/{id}/stream. It upgrades to a websocket
// and pushes a task snapshot followed by every progress event, closing once
// the task is terminal.
func (h *TaskHandler) StreamTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, taskID, ok := handleUserIDAndPathID(w, r, "id", log)
	if !ok {
		return
	}
	if _, err := h.tasks.GetTask(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to load task")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		log.Warn("websocket upgrade failed", slog.String("error", redact.Error(err)))
		return
	}
	defer func() { _ = conn.Close() }()

	updates, cancel := h.progress.Subscribe(taskID)
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go h.readPump(conn, stop)

	// Snapshot after subscribing so no transition falls between the two.
	task, err := h.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		log.Warn("task vanished during stream", slog.String("error", redact.Error(err)))
		return
	}
	if done, err := h.send(conn, task); err != nil || done {
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case ev, open := <-updates:
			if !open {
				return
			}
			terminal := domain.TaskStatus(ev.Status).IsTerminal()
			if terminal {
				// Terminal snapshots carry the signed video URL.
				if task, err := h.tasks.GetTask(ctx, userID, taskID); err == nil {
					_, _ = h.send(conn, task)
					return
				}
			}
			if err := h.writeJSON(conn, ev); err != nil || terminal {
				return
			}
		}
	}
}

// send writes a snapshot and closes the stream when the task is terminal.
func (h *TaskHandler) send(conn *websocket.Conn, task *domain.VideoTask) (bool, error) {
	ev := events.ProgressEvent{
		TaskID:   task.ID,
		Status:   string(task.Status),
		Stage:    task.Stage,
		Progress: task.Progress,
		VideoURL: task.VideoURL,
		At:       time.Now().UTC(),
	}
	if err := h.writeJSON(conn, ev); err != nil {
		return false, err
	}
	if !task.Status.IsTerminal() {
		return false, nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(task.Status))
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
	return true, nil
}

func (h *TaskHandler) writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(v)
}

// readPump drains client frames so control messages are processed, and
// stops the stream when the client goes away.
func (h *TaskHandler) readPump(conn *websocket.Conn, stop context.CancelFunc) {
	defer stop()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				h.logger.Debug("stream reader stopped", slog.String("error", redact.Error(err)))
			}
			return
		}
	}
}
