package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/api/shared"
	"github.com/miyog/miyog-engine/internal/events"
	"github.com/miyog/miyog-engine/internal/mocks"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/service"
	"github.com/miyog/miyog-engine/internal/store"
	"github.com/stretchr/testify/require"
)

func inlineTx(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

// apiHarness wires real services over in-memory stores behind the
// production route table.
type apiHarness struct {
	users    *mocks.MockUserStore
	projects *mocks.MockProjectStore
	tasks    *mocks.MockVideoTaskStore
	storage  *mocks.MockStorage
	emitter  *mocks.MockEventEmitter
	images   *mocks.MockImageGenerator
	broker   *events.ProgressBroker
	tempDir  string
	user     uuid.UUID
	router   chi.Router
}

type harnessOption func(*service.AIServiceDeps)

func withAssets(a service.AssetSearcher) harnessOption {
	return func(d *service.AIServiceDeps) { d.Assets = a }
}

func newAPIHarness(t *testing.T, credits int, opts ...harnessOption) *apiHarness {
	t.Helper()
	log, _ := logger.NewTestLogger()

	h := &apiHarness{
		users:    mocks.NewMockUserStore(),
		projects: mocks.NewMockProjectStore(),
		tasks:    mocks.NewMockVideoTaskStore(),
		storage:  mocks.NewMockStorage(),
		emitter:  &mocks.MockEventEmitter{},
		images:   &mocks.MockImageGenerator{},
		broker:   events.NewProgressBroker(0, log),
		tempDir:  t.TempDir(),
		user:     uuid.New(),
	}
	h.users.Seed(h.user, credits)

	taskSvc, err := service.NewTaskService(service.TaskServiceDeps{
		Tx:       inlineTx,
		Users:    h.users,
		Projects: h.projects,
		Tasks:    h.tasks,
		Emitter:  h.emitter,
		Signer:   h.storage,
	}, log)
	require.NoError(t, err)

	aiDeps := service.AIServiceDeps{
		Tx:      inlineTx,
		Users:   h.users,
		Storage: h.storage,
		Scripts: &mocks.MockScriptGenerator{},
		Images:  h.images,
		Clips:   &mocks.MockClipGenerator{},
		Voice:   &mocks.MockVoiceSynthesizer{},
	}
	for _, opt := range opts {
		opt(&aiDeps)
	}
	aiSvc, err := service.NewAIService(aiDeps, log)
	require.NoError(t, err)

	userHandler := NewUserHandler(service.NewUserService(h.users, log), log)
	projectHandler := NewProjectHandler(service.NewProjectService(h.projects, h.tasks, log), log)
	uploadHandler := NewUploadHandler(service.NewUploadService(h.storage, log), log)
	aiHandler := NewAIHandler(aiSvc, log)
	taskHandler := NewTaskHandler(taskSvc, h.broker, []string{"http://localhost:3000"}, log)
	tempHandler := NewTempFileHandler(h.tempDir, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/video/temp/{filename}", tempHandler.Serve)
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Get("/user", userHandler.GetCurrentUser)
			r.Get("/projects", projectHandler.ListProjects)
			r.Post("/projects", projectHandler.CreateProject)
			r.Get("/projects/{id}", projectHandler.GetProject)
			r.Put("/projects/{id}", projectHandler.UpdateProject)
			r.Delete("/projects/{id}", projectHandler.DeleteProject)
			r.Post("/upload/presigned", uploadHandler.Presign)
			r.Post("/upload", uploadHandler.Upload)
			r.Post("/ai/generate_script", aiHandler.GenerateScript)
			r.Post("/ai/generate_image", aiHandler.GenerateImage)
			r.Post("/ai/generate_video", aiHandler.GenerateVideo)
			r.Post("/ai/generate_voice", aiHandler.GenerateVoice)
			r.Get("/audio/voices", aiHandler.ListVoices)
			r.Get("/assets/search", aiHandler.SearchAssets)
			r.Get("/tasks", taskHandler.ListTasks)
			r.Post("/tasks/generate", taskHandler.GenerateTask)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Get("/tasks/{id}/stream", taskHandler.StreamTask)
		})
	})
	h.router = r
	return h
}

// authenticate stands in for the JWT middleware. Requests carrying
// X-Test-User act as that user.
func (h *apiHarness) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := h.user
		if raw := r.Header.Get("X-Test-User"); raw != "" {
			userID = uuid.MustParse(raw)
		}
		next.ServeHTTP(w, r.WithContext(shared.WithUserID(r.Context(), userID)))
	})
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return h.doAs(t, uuid.Nil, method, path, body)
}

// doAs sends the request as user, or as the harness user when user is nil.
func (h *apiHarness) doAs(t *testing.T, user uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != uuid.Nil {
		req.Header.Set("X-Test-User", user.String())
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[shared.ErrorResponse](t, rec).Error
}
