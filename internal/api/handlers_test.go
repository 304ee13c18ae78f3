package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/platform/pixabay"
	"github.com/miyog/miyog-engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCurrentUser(t *testing.T) {
	h := newAPIHarness(t, 7)

	rec := h.do(t, http.MethodGet, "/api/user", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody[UserResponse](t, rec)
	assert.Equal(t, h.user, user.ID)
	assert.Equal(t, 7, user.Credits)
}

func TestProjectEndpoints(t *testing.T) {
	h := newAPIHarness(t, 10)

	rec := h.do(t, http.MethodPost, "/api/projects", CreateProjectRequest{Title: "Cooking Shorts"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[domain.Project](t, rec)
	assert.Equal(t, "Cooking Shorts", created.Title)
	path := fmt.Sprintf("/api/projects/%d", created.ID)

	rec = h.do(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.Project](t, rec), 1)

	rec = h.do(t, http.MethodPut, path, map[string]string{"emoji": "🍳", "color_code": "#FF8800"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[domain.Project](t, rec)
	assert.Equal(t, "🍳", updated.Emoji)
	assert.Equal(t, "Cooking Shorts", updated.Title)

	rec = h.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		ID    int64          `json:"id"`
		Title string         `json:"title"`
		Tasks []TaskResponse `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, created.ID, detail.ID)
	assert.NotNil(t, detail.Tasks)

	rec = h.doAs(t, uuid.New(), http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, MsgProjectNotFound, errorMessage(t, rec))

	rec = h.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"deleted"}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectEndpoints_BadRequests(t *testing.T) {
	h := newAPIHarness(t, 10)

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		wantMsg string
	}{
		{"missing title", http.MethodPost, "/api/projects", map[string]string{"description": "x"}, "Invalid title: required field"},
		{"malformed json", http.MethodPost, "/api/projects", `{"title":`, MsgInvalidRequest},
		{"non-numeric id", http.MethodGet, "/api/projects/abc", nil, "Invalid id"},
		{"bad color", http.MethodPut, "/api/projects/1", map[string]string{"color_code": "orange"}, "Invalid color_code: invalid color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, errorMessage(t, rec))
		})
	}
}

func TestGenerateTask(t *testing.T) {
	h := newAPIHarness(t, 10)

	rec := h.do(t, http.MethodPost, "/api/tasks/generate", map[string]any{
		"title":   "Space facts",
		"scripts": "Mars has two moons.",
		"files":   map[string]string{"Audio Track": "uploads/voice.wav"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	queued := decodeBody[QueuedResponse](t, rec)
	assert.Equal(t, "queued", queued.Status)
	assert.Equal(t, 5, queued.RemainingCredits)

	stored, ok := h.tasks.Snapshot(queued.TaskID)
	require.True(t, ok)
	assert.Equal(t, "Mars has two moons.", stored.Script)
	assert.Equal(t, "uploads/voice.wav", stored.Files.AudioTrack)
	assert.Len(t, h.emitter.Emitted(), 1)
}

func TestGenerateTask_Errors(t *testing.T) {
	tests := []struct {
		name       string
		credits    int
		body       func(h *apiHarness) any
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "insufficient credits",
			credits:    4,
			body:       func(*apiHarness) any { return map[string]any{} },
			wantStatus: http.StatusForbidden,
			wantMsg:    MsgTaskCredits,
		},
		{
			name:    "foreign project",
			credits: 10,
			body: func(h *apiHarness) any {
				p, _ := domain.NewProject(uuid.New(), "Theirs", "")
				_ = h.projects.Create(context.Background(), p)
				return map[string]any{"project_id": p.ID}
			},
			wantStatus: http.StatusForbidden,
			wantMsg:    MsgNotAuthorized,
		},
		{
			name:    "invalid timeline",
			credits: 10,
			body: func(*apiHarness) any {
				return map[string]any{"timeline": []map[string]any{{"id": 1, "type": "hologram", "clips": []any{}}}}
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    MsgInvalidTimeline,
		},
		{
			name:       "vignette out of range",
			credits:    10,
			body:       func(*apiHarness) any { return map[string]any{"vignette_intensity": 150} },
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid vignette_intensity: too large",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAPIHarness(t, tt.credits)
			rec := h.do(t, http.MethodPost, "/api/tasks/generate", tt.body(h))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantMsg, errorMessage(t, rec))
			assert.Equal(t, tt.credits, h.users.Credits(h.user))
		})
	}
}

func TestGetAndListTasks(t *testing.T) {
	h := newAPIHarness(t, 10)

	done := domain.NewVideoTask(h.user)
	done.Status = domain.TaskStatusCompleted
	done.Progress = 100
	done.VideoURL = "completed/final_1.mp4"
	doneID := h.tasks.Seed(done)

	temp := domain.NewVideoTask(h.user)
	temp.VideoURL = "/api/video/temp/preview.mp4"
	tempID := h.tasks.Seed(temp)

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", doneID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[TaskResponse](t, rec)
	assert.Equal(t, "Completed", got.Status)
	assert.Equal(t, "https://signed.example.com/completed/final_1.mp4", got.VideoURL)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", tempID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/video/temp/preview.mp4", decodeBody[TaskResponse](t, rec).VideoURL)

	rec = h.doAs(t, uuid.New(), http.MethodGet, fmt.Sprintf("/api/tasks/%d", doneID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, MsgTaskNotFound, errorMessage(t, rec))

	rec = h.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]TaskResponse](t, rec), 2)
}

func TestAIEndpoints(t *testing.T) {
	h := newAPIHarness(t, 1)

	rec := h.do(t, http.MethodPost, "/api/ai/generate_script", GenerateScriptRequest{Topic: "volcanoes"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	script := decodeBody[ScriptResponse](t, rec)
	assert.NotEmpty(t, script.Script)
	assert.NotEmpty(t, script.Hook)

	rec = h.do(t, http.MethodPost, "/api/ai/generate_image", PromptRequest{Prompt: "lava lake"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img := decodeBody[ImageResponse](t, rec)
	assert.Equal(t, 0, img.RemainingCredits)
	assert.Contains(t, img.URL, "generated/"+h.user.String())

	rec = h.do(t, http.MethodPost, "/api/ai/generate_image", PromptRequest{Prompt: "lava lake"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, MsgImageCredits, errorMessage(t, rec))

	rec = h.do(t, http.MethodPost, "/api/ai/generate_video", PromptRequest{Prompt: "eruption", AspectRatio: "9:16"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasSuffix(decodeBody[MediaResponse](t, rec).URL, ".mp4"))

	rec = h.do(t, http.MethodPost, "/api/ai/generate_video", PromptRequest{Prompt: "eruption", AspectRatio: "4:3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/ai/generate_voice", GenerateVoiceRequest{Text: "Hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	voice := decodeBody[MediaResponse](t, rec)
	assert.True(t, strings.HasPrefix(voice.Path, "generated_audio/voice_"))

	rec = h.do(t, http.MethodGet, "/api/audio/voices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[[]service.Voice](t, rec))
}

type stubSearcher struct{ query string }

func (s *stubSearcher) Search(_ context.Context, query string, page int) ([]pixabay.Asset, error) {
	s.query = query
	return []pixabay.Asset{{ID: fmt.Sprint(page), Type: "image", Src: "https://cdn/x.jpg", Thumb: "https://cdn/x_t.jpg"}}, nil
}

func TestSearchAssets(t *testing.T) {
	h := newAPIHarness(t, 0)
	rec := h.do(t, http.MethodGet, "/api/assets/search", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	searcher := &stubSearcher{}
	h = newAPIHarness(t, 0, withAssets(searcher))
	rec = h.do(t, http.MethodGet, "/api/assets/search?page=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DefaultAssetQuery, searcher.query)
	assets := decodeBody[[]pixabay.Asset](t, rec)
	require.Len(t, assets, 1)
	assert.Equal(t, "3", assets[0].ID)
}

func TestUploadEndpoints(t *testing.T) {
	h := newAPIHarness(t, 0)

	rec := h.do(t, http.MethodPost, "/api/upload/presigned", PresignRequest{Filename: "clip.mp4", FileType: "video/mp4"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	presigned := decodeBody[PresignResponse](t, rec)
	assert.True(t, strings.HasPrefix(presigned.Path, "uploads/"))
	assert.True(t, strings.HasSuffix(presigned.Path, ".mp4"))
	assert.Equal(t, http.MethodPut, presigned.Method)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "narration.wav")
	require.NoError(t, err)
	_, _ = part.Write([]byte("RIFF"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	uploaded := decodeBody[UploadResponse](t, rec)
	assert.Equal(t, "narration.wav", uploaded.Filename)
	data, ok := h.storage.Get(uploaded.Path)
	require.True(t, ok)
	assert.Equal(t, "RIFF", string(data))

	rec = h.do(t, http.MethodPost, "/api/upload", "not multipart")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTempFileHandler(t *testing.T) {
	h := newAPIHarness(t, 0)
	require.NoError(t, os.WriteFile(filepath.Join(h.tempDir, "voice.wav"), []byte("wav"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(h.tempDir, "render.mp4"), []byte("mp4"), 0o600))

	tests := []struct {
		path        string
		wantStatus  int
		contentType string
	}{
		{"/api/video/temp/voice.wav", http.StatusOK, "audio/wav"},
		{"/api/video/temp/render.mp4", http.StatusOK, "video/mp4"},
		{"/api/video/temp/missing.mp4", http.StatusNotFound, ""},
		{"/api/video/temp/..%2F..%2Fetc%2Fpasswd", http.StatusNotFound, ""},
		{"/api/video/temp/.hidden", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			} else {
				assert.Equal(t, MsgFileNotFound, errorMessage(t, rec))
			}
		})
	}
}
