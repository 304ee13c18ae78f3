package pipeline

import (
	"testing"

	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAITimeline(t *testing.T) {
	segments := []Segment{
		{At: 6.5, Src: "generated_segments/clip_b.mp4"},
		{At: 0, Src: "generated_segments/clip_a.mp4"},
		{At: 12, Kind: timeline.KindImage, Src: "https://cdn.example.com/cat.jpg"},
	}

	tl, err := BuildAITimeline(segments, "generated_audio/voice.wav", 24)
	require.NoError(t, err)

	assert.Equal(t, 24, tl.FPS)
	assert.Equal(t, 17.0, tl.Duration)
	require.Len(t, tl.Tracks, 3)

	stock, visuals, narration := tl.Tracks[0], tl.Tracks[1], tl.Tracks[2]
	assert.Equal(t, StockTrackID, stock.ID)
	assert.Equal(t, "Stock Images", stock.Label)
	require.Len(t, stock.Clips, 1)
	assert.Equal(t, "clip-12.0", stock.Clips[0].ID)
	assert.Equal(t, 5.0, stock.Clips[0].Duration)

	assert.Equal(t, VisualTrackID, visuals.ID)
	assert.Equal(t, "AI Visuals", visuals.Label)
	assert.Equal(t, timeline.KindVideo, visuals.Kind)
	require.Len(t, visuals.Clips, 2)
	assert.Equal(t, "clip-0.0", visuals.Clips[0].ID)
	assert.Equal(t, 6.5, visuals.Clips[0].Duration)
	assert.Equal(t, "clip-6.5", visuals.Clips[1].ID)
	assert.Equal(t, 5.5, visuals.Clips[1].Duration)
	assert.True(t, visuals.Clips[0].Properties.IsFullFrame())

	assert.Equal(t, NarrationTrackID, narration.ID)
	assert.Equal(t, timeline.KindAudio, narration.Kind)
	require.Len(t, narration.Clips, 1)
	voice := narration.Clips[0]
	assert.Equal(t, "narration-main", voice.ID)
	assert.Equal(t, 0.0, voice.Start)
	assert.Equal(t, 17.0, voice.Duration)
	assert.Equal(t, 1.0, voice.Properties.Volume)
}

func TestBuildAITimeline_VideoOnly(t *testing.T) {
	tl, err := BuildAITimeline([]Segment{
		{At: 3, Src: "b.mp4"},
		{At: 3, Src: "dup.mp4"},
		{At: 1, Src: "a.mp4"},
		{At: 2, Src: ""},
	}, "", 30)
	require.NoError(t, err)

	require.Len(t, tl.Tracks, 1)
	clips := tl.Tracks[0].Clips
	require.Len(t, clips, 2)
	assert.Equal(t, "a.mp4", clips[0].Src)
	assert.Equal(t, 2.0, clips[0].Duration)
	assert.Equal(t, "b.mp4", clips[1].Src)
	assert.Equal(t, 8.0, tl.Duration)
}

func TestBuildAITimeline_NoSegments(t *testing.T) {
	_, err := BuildAITimeline(nil, "voice.wav", 24)
	assert.ErrorIs(t, err, ErrNoSegments)

	_, err = BuildAITimeline([]Segment{{At: 1}}, "voice.wav", 24)
	assert.ErrorIs(t, err, ErrNoSegments)
}

func TestKeywordAt(t *testing.T) {
	// Sorted by start, as keywords() returns them.
	kw := []generation.TimedPrompt{
		{At: 0, Prompt: "ocean"},
		{At: 4, Prompt: " forest "},
		{At: 9, Prompt: "city"},
	}
	tests := []struct {
		at   float64
		want string
	}{
		{0, "ocean"},
		{3.9, "ocean"},
		{4, "forest"},
		{20, "city"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, keywordAt(kw, tt.at), "at=%v", tt.at)
	}
	assert.Empty(t, keywordAt(nil, 1))
}

func TestDurationLabel(t *testing.T) {
	assert.Equal(t, "30 Seconds", durationLabel(0))
	assert.Equal(t, "15 Seconds", durationLabel(15))
	assert.Equal(t, "60 Seconds", durationLabel(60.4))
}

func TestAIRenderSize(t *testing.T) {
	w, h := aiRenderSize("")
	assert.Equal(t, []int{1920, 1080}, []int{w, h})
	w, h = aiRenderSize("1080x1920")
	assert.Equal(t, []int{1920, 1080}, []int{w, h})
	w, h = aiRenderSize("1280x720")
	assert.Equal(t, []int{1280, 720}, []int{w, h})
}
