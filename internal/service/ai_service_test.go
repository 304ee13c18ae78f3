package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/miyog/miyog-engine/internal/metrics"
	"github.com/miyog/miyog-engine/internal/mocks"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/platform/pixabay"
	"github.com/miyog/miyog-engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	query string
	page  int
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, query string, page int) ([]pixabay.Asset, error) {
	f.query, f.page = query, page
	if f.err != nil {
		return nil, f.err
	}
	return []pixabay.Asset{{ID: "1", Type: "image", Src: "https://cdn/1.jpg", Thumb: "https://cdn/1_t.jpg"}}, nil
}

type aiFixture struct {
	svc     service.AIService
	users   *mocks.MockUserStore
	storage *mocks.MockStorage
	scripts *mocks.MockScriptGenerator
	images  *mocks.MockImageGenerator
	clips   *mocks.MockClipGenerator
	voice   *mocks.MockVoiceSynthesizer
	search  *fakeSearcher
	metrics *metrics.Metrics
	user    uuid.UUID
}

func newAIFixture(t *testing.T, credits int) *aiFixture {
	t.Helper()
	log, _ := logger.NewTestLogger()
	m, err := metrics.New()
	require.NoError(t, err)
	f := &aiFixture{
		users:   mocks.NewMockUserStore(),
		storage: mocks.NewMockStorage(),
		scripts: &mocks.MockScriptGenerator{},
		images:  &mocks.MockImageGenerator{},
		clips:   &mocks.MockClipGenerator{},
		voice:   &mocks.MockVoiceSynthesizer{},
		search:  &fakeSearcher{},
		metrics: m,
		user:    uuid.New(),
	}
	f.users.Seed(f.user, credits)
	f.svc, err = service.NewAIService(service.AIServiceDeps{
		Tx:      service.InlineTx,
		Users:   f.users,
		Storage: f.storage,
		Scripts: f.scripts,
		Images:  f.images,
		Clips:   f.clips,
		Voice:   f.voice,
		Assets:  f.search,
		Metrics: m,
	}, log)
	require.NoError(t, err)
	return f
}

func TestAIService_GenerateScript(t *testing.T) {
	f := newAIFixture(t, 0)
	ctx := context.Background()

	var gotDuration string
	f.scripts.GenerateScriptFn = func(_ context.Context, topic, duration string) (*generation.Script, error) {
		gotDuration = duration
		return generation.NewScript(topic, "Did you know? [pause] Cats sleep a lot.", "mock"), nil
	}

	script, err := f.svc.GenerateScript(ctx, " cats ", "")
	require.NoError(t, err)
	assert.Equal(t, generation.DefaultDuration, gotDuration)
	assert.NotEmpty(t, script.Text)
	assert.Equal(t, []string{"cats"}, f.scripts.Topics)

	_, err = f.svc.GenerateScript(ctx, "  ", "15 Seconds")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	f.scripts.GenerateScriptFn = nil
	f.scripts.Err = generation.ErrGenerationFailed
	_, err = f.svc.GenerateScript(ctx, "dogs", "60 Seconds")
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
}

func TestAIService_GenerateImage(t *testing.T) {
	t.Run("charges one credit and stores under the user prefix", func(t *testing.T) {
		f := newAIFixture(t, 3)
		img, err := f.svc.GenerateImage(context.Background(), f.user, "a red fox")
		require.NoError(t, err)

		assert.Equal(t, 2, img.RemainingCredits)
		assert.True(t, strings.HasPrefix(img.Key, "generated/"+f.user.String()+"/"))
		assert.True(t, strings.HasSuffix(img.Key, ".png"))
		assert.Equal(t, "https://signed.example.com/"+img.Key, img.URL)
		assert.Equal(t, "image/png", f.storage.ContentTypes[img.Key])

		debited, err := f.metrics.Value("miyog_credits_debited_total", map[string]string{"action": service.CreditActionImage})
		require.NoError(t, err)
		assert.Equal(t, 1.0, debited)
	})

	t.Run("no credits", func(t *testing.T) {
		f := newAIFixture(t, 0)
		_, err := f.svc.GenerateImage(context.Background(), f.user, "a red fox")
		assert.ErrorIs(t, err, service.ErrInsufficientCredits)
		assert.Empty(t, f.storage.Keys())
	})

	t.Run("generation failure refunds", func(t *testing.T) {
		f := newAIFixture(t, 2)
		f.images.Err = errors.New("model loading")
		_, err := f.svc.GenerateImage(context.Background(), f.user, "a red fox")
		require.Error(t, err)
		assert.Equal(t, 2, f.users.Credits(f.user))
	})

	t.Run("upload failure refunds", func(t *testing.T) {
		f := newAIFixture(t, 2)
		f.storage.Err = errors.New("bucket gone")
		_, err := f.svc.GenerateImage(context.Background(), f.user, "a red fox")
		require.Error(t, err)
		assert.Equal(t, 2, f.users.Credits(f.user))
	})
}

func TestAIService_GenerateVideoAndVoice(t *testing.T) {
	f := newAIFixture(t, 0)
	ctx := context.Background()

	var aspect string
	f.clips.GenerateClipFn = func(_ context.Context, prompt, aspectRatio string, w io.Writer) error {
		aspect = aspectRatio
		_, err := io.WriteString(w, "mp4")
		return err
	}
	video, err := f.svc.GenerateVideo(ctx, f.user, "sunset timelapse", "9:16")
	require.NoError(t, err)
	assert.Equal(t, "9:16", aspect)
	assert.True(t, strings.HasPrefix(video.Key, "generated/"+f.user.String()+"/"))
	assert.True(t, strings.HasSuffix(video.Key, ".mp4"))
	data, ok := f.storage.Get(video.Key)
	require.True(t, ok)
	assert.Equal(t, "mp4", string(data))

	voice, err := f.svc.GenerateVoice(ctx, "Hello there", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(voice.Key, "generated_audio/voice_"))
	assert.Equal(t, "audio/wav", f.storage.ContentTypes[voice.Key])
	assert.Equal(t, []string{"Hello there"}, f.voice.Texts)

	_, err = f.svc.GenerateVideo(ctx, f.user, "", "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = f.svc.GenerateVoice(ctx, " ", "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	f.clips.GenerateClipFn = nil
	f.clips.Err = generation.ErrGenerationFailed
	_, err = f.svc.GenerateVideo(ctx, f.user, "storm", "")
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
}

func TestAIService_VoicesAndAssets(t *testing.T) {
	f := newAIFixture(t, 0)

	voices := f.svc.Voices()
	require.NotEmpty(t, voices)
	assert.Equal(t, "af_heart", voices[0].ID)
	voices[0].ID = "mutated"
	assert.Equal(t, "af_heart", f.svc.Voices()[0].ID, "catalogue is copied")

	assets, err := f.svc.SearchAssets(context.Background(), "mountains", 2)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "mountains", f.search.query)
	assert.Equal(t, 2, f.search.page)

	f.search.err = pixabay.ErrNotConfigured
	_, err = f.svc.SearchAssets(context.Background(), "", 1)
	assert.ErrorIs(t, err, pixabay.ErrNotConfigured)

	log, _ := logger.NewTestLogger()
	noSearch, err := service.NewAIService(service.AIServiceDeps{
		Tx:      service.InlineTx,
		Users:   f.users,
		Storage: f.storage,
		Scripts: f.scripts,
		Images:  f.images,
		Clips:   f.clips,
		Voice:   f.voice,
	}, log)
	require.NoError(t, err)
	_, err = noSearch.SearchAssets(context.Background(), "x", 1)
	assert.ErrorIs(t, err, pixabay.ErrNotConfigured)
}
