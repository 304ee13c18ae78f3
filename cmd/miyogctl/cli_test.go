package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/config"
	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/miyog/miyog-engine/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "miyogctl-test-secret-that-is-long-enough"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, env := range envKeys {
		t.Setenv(env, "")
	}

	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const yamlTimeline = `
fps: 30
duration: 10
tracks:
  - id: 2
    type: video
    label: Base Video
    isHidden: false
    isMuted: true
    clips:
      - id: v1
        type: video
        src: uploads/a.mp4
        start: 0
        duration: 4
  - id: 1
    type: text
    label: Titles
    clips:
      - id: t1
        type: text
        content: Hello
        start: 1
        duration: 2
`

func TestLoadTimeline(t *testing.T) {
	t.Run("yaml object", func(t *testing.T) {
		tl, err := loadTimeline(writeFile(t, "tl.yaml", yamlTimeline), nil, 24, 15)
		require.NoError(t, err)
		assert.Equal(t, 30, tl.FPS)
		assert.Equal(t, 10.0, tl.Duration)
		require.Len(t, tl.Tracks, 2)
		assert.True(t, tl.Tracks[0].Muted)
		assert.Equal(t, timeline.DefaultProperties(), tl.Tracks[0].Clips[0].Properties)
		assert.Equal(t, "Hello", tl.Tracks[1].Clips[0].Content)
	})

	t.Run("json track list from stdin", func(t *testing.T) {
		in := strings.NewReader(`[{"id": 5, "type": "audio", "label": "Music", "clips": []}]`)
		tl, err := loadTimeline("-", in, 25, 8)
		require.NoError(t, err)
		assert.Equal(t, 25, tl.FPS)
		assert.Equal(t, 8.0, tl.Duration)
		assert.Equal(t, timeline.KindAudio, tl.Tracks[0].Kind)
	})

	t.Run("overlapping clips", func(t *testing.T) {
		overlap := `[{"id": 1, "type": "image", "label": "Sprites", "clips": [
			{"id": "a", "type": "image", "src": "a.png", "start": 0, "duration": 3},
			{"id": "b", "type": "image", "src": "b.png", "start": 2, "duration": 3}
		]}]`
		_, err := loadTimeline(writeFile(t, "tl.json", overlap), nil, 24, 15)
		require.Error(t, err)
		assert.ErrorIs(t, err, timeline.ErrInvalidTimeline)
		assert.ErrorIs(t, err, timeline.ErrOverlap)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := loadTimeline(writeFile(t, "tl.yml", "tracks: [\n"), nil, 24, 15)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse yaml")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadTimeline(filepath.Join(t.TempDir(), "nope.yaml"), nil, 24, 15)
		require.Error(t, err)
	})
}

func TestTimelineValidateCommand(t *testing.T) {
	out, err := runCLI(t, "timeline", "validate", writeFile(t, "tl.yaml", yamlTimeline))
	require.NoError(t, err)
	assert.Contains(t, out, "Base Video")
	assert.Contains(t, out, "muted")
	assert.Contains(t, out, "Timeline OK: 2 tracks, 2 clips, 10 s at 30 fps")
}

func TestTimelineEditCommand(t *testing.T) {
	src := writeFile(t, "tl.yaml", yamlTimeline)

	t.Run("edits apply in order with undo", func(t *testing.T) {
		out, err := runCLI(t, "timeline", "edit", src,
			"move v1 2",
			"trim v1 3",
			"place text 5 1 Good bye",
			"undo",
			"bounds v1 8 20",
		)
		require.NoError(t, err)

		tl, err := timeline.Decode([]byte(out), 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, tl.ClipCount(), "the placed text was undone")

		_, v1, err := tl.FindClip("v1")
		require.NoError(t, err)
		assert.Equal(t, 8.0, v1.Start)
		assert.InDelta(t, 2.0, v1.Duration, 1e-9, "end is clamped to the timeline")
	})

	t.Run("writes to a file", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "edited.json")
		out, err := runCLI(t, "timeline", "edit", src, "text t1 Welcome back", "-o", dest)
		require.NoError(t, err)
		assert.Empty(t, out)

		tl, err := loadTimeline(dest, nil, 0, 0)
		require.NoError(t, err)
		_, t1, err := tl.FindClip("t1")
		require.NoError(t, err)
		assert.Equal(t, "Welcome back", t1.Content)
	})

	tests := []struct {
		name string
		edit string
		want error
	}{
		{"unknown operation", "warp v1", errBadEdit},
		{"bad number", "trim v1 long", errBadEdit},
		{"missing clip", "remove nope", timeline.ErrClipNotFound},
		{"nothing to undo", "undo", timeline.ErrNothingToUndo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, "timeline", "edit", src, tt.edit)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "edit 1")
		})
	}
}

func TestTokenCommand(t *testing.T) {
	userID := uuid.New()
	out, err := runCLI(t, "token", "--user", userID.String(), "--secret", testSecret)
	require.NoError(t, err)

	svc, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)

	_, err = runCLI(t, "token")
	assert.ErrorIs(t, err, errNoCredentials)

	_, err = runCLI(t, "token", "--user", "not-a-uuid", "--secret", testSecret)
	assert.ErrorContains(t, err, "invalid user id")
}

func TestProjectsList(t *testing.T) {
	var authHeader atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
		assert.Equal(t, "/api/projects", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 4, "title": "Launch teaser", "platform": "YouTube", "emoji": "🎬",
			"created_at": "2026-01-02T03:04:05Z", "updated_at": "2026-01-02T03:04:05Z"}]`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "projects", "list", "--api-url", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", authHeader.Load())
	assert.Contains(t, out, "Launch teaser")
	assert.Contains(t, out, "YouTube")

	out, err = runCLI(t, "projects", "list", "--api-url", srv.URL, "--token", "tok", "--json")
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "Launch teaser", decoded[0]["title"])
}

func TestTasksWatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tasks/7":
			w.Header().Set("Content-Type", "application/json")
			switch calls.Add(1) {
			case 1:
				_, _ = w.Write([]byte(`{"id": 7, "status": "Processing", "stage": "audio", "progress": 20}`))
			case 2:
				_, _ = w.Write([]byte(`{"id": 7, "status": "Processing", "stage": "audio", "progress": 20}`))
			default:
				_, _ = w.Write([]byte(`{"id": 7, "status": "Completed", "stage": "done", "progress": 100,
					"video_url": "/api/video/temp/final_7.mp4"}`))
			}
		case "/api/video/temp/final_7.mp4":
			_, _ = w.Write([]byte("mp4-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	out, err := runCLI(t, "tasks", "watch", "7", "--interval", "1ms", "-o", dest,
		"--api-url", srv.URL, "--token", "tok")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "[ 20%] Processing - audio"), "unchanged status is printed once")
	assert.Contains(t, out, "[100%] Completed - done")
	assert.Contains(t, out, "Video: /api/video/temp/final_7.mp4")
	assert.Contains(t, out, "Saved "+dest+" (9 B)")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))
}

func TestTasksWatchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 9, "status": "Error: ffmpeg exited", "progress": 60}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, "tasks", "watch", "9", "--interval", "1ms", "--api-url", srv.URL, "--token", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task 9")

	_, err = runCLI(t, "tasks", "watch", "abc", "--api-url", srv.URL, "--token", "tok")
	assert.ErrorContains(t, err, "invalid task id")
}

func TestTimelineSubmit(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/generate", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "queued", "task_id": 12, "remaining_credits": 9}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "timeline", "submit", writeFile(t, "tl.yaml", yamlTimeline),
		"--title", "Teaser", "--project", "3", "--api-url", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "Queued task 12 (9 credits left)")

	body := <-bodies
	assert.Equal(t, "Teaser", body["title"])
	assert.Equal(t, float64(3), body["project_id"])
	assert.Equal(t, float64(30), body["fps"])
	tl, ok := body["timeline"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, tl["tracks"], 2)
}

func TestScriptCommand(t *testing.T) {
	bodies := make(chan map[string]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"script": "Rivers carve canyons.", "hook": "Ever wondered?"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "script", "how", "rivers", "work", "--duration", "30 Seconds",
		"--api-url", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Rivers carve canyons.\n", out)
	body := <-bodies
	assert.Equal(t, "how rivers work", body["topic"])
	assert.Equal(t, "30 Seconds", body["duration"])
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanBytes(tt.in))
	}
}
