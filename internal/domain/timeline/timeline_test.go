package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	tl := NewDefault()

	assert.Equal(t, 24, tl.FPS)
	assert.Equal(t, 15.0, tl.Duration)
	require.Len(t, tl.Tracks, 3)
	assert.Equal(t, Track{ID: 102, Kind: KindVideo, Label: "Base Video", Clips: []Clip{}}, tl.Tracks[0])
	assert.Equal(t, Track{ID: 101, Kind: KindImage, Label: "Sprites", Clips: []Clip{}}, tl.Tracks[1])
	assert.Equal(t, Track{ID: 100, Kind: KindText, Label: "Text Layer", Clips: []Clip{}}, tl.Tracks[2])
	assert.NoError(t, tl.Validate())
}

func TestSnapTime(t *testing.T) {
	tests := []struct {
		name     string
		fps      int
		input    float64
		expected float64
	}{
		{"already on frame", 24, 1.0, 1.0},
		{"rounds down", 24, 1.02, 1.0},
		{"rounds up", 24, 1.03, 25.0 / 24},
		{"half frame rounds up", 10, 0.05, 0.1},
		{"30 fps", 30, 0.51, 0.5},
		{"zero", 24, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := New(tt.fps, 10)
			assert.InDelta(t, tt.expected, tl.SnapTime(tt.input), 1e-12)
		})
	}

	t.Run("frame duration follows fps", func(t *testing.T) {
		assert.InDelta(t, 1.0/24, New(24, 10).FrameDuration(), 1e-12)
		assert.InDelta(t, 1.0/60, New(60, 10).FrameDuration(), 1e-12)
	})
}

func mustPlace(t *testing.T, tl *Timeline, c Clip) int {
	t.Helper()
	trackID, err := tl.PlaceClip(c)
	require.NoError(t, err)
	return trackID
}

func TestPlaceClip(t *testing.T) {
	t.Run("uses first compatible free track", func(t *testing.T) {
		tl := NewDefault()
		assert.Equal(t, 102, mustPlace(t, tl, videoClip("a", 0, 5)))
		assert.Equal(t, 102, mustPlace(t, tl, videoClip("b", 5, 1)), "touching clips share a track")
		assert.Len(t, tl.Tracks, 3)
	})

	t.Run("reroutes overlapping clip to a new track on top", func(t *testing.T) {
		tl := NewDefault()
		mustPlace(t, tl, videoClip("a", 0, 5))

		cmd := &PlaceClip{Clip: videoClip("b", 2, 2)}
		require.NoError(t, cmd.Apply(tl))

		assert.True(t, cmd.CreatedTrack())
		assert.Equal(t, 103, cmd.TrackID())
		require.Len(t, tl.Tracks, 4)
		assert.Equal(t, 103, tl.Tracks[0].ID)
		assert.Equal(t, "video Layer", tl.Tracks[0].Label)
		assert.Equal(t, KindVideo, tl.Tracks[0].Kind)
		assert.NoError(t, tl.Validate())
	})

	t.Run("second overlap prefers existing rerouted track", func(t *testing.T) {
		tl := NewDefault()
		mustPlace(t, tl, videoClip("a", 0, 5))
		mustPlace(t, tl, videoClip("b", 0, 2))
		assert.Equal(t, 103, mustPlace(t, tl, videoClip("c", 3, 1)))
		assert.Len(t, tl.Tracks, 4)
	})

	t.Run("snaps start and defaults text content", func(t *testing.T) {
		tl := NewDefault()
		trackID := mustPlace(t, tl, Clip{ID: "t", Kind: KindText, Start: 1.01, Duration: 2, Properties: DefaultProperties()})
		assert.Equal(t, 100, trackID)

		_, c, err := tl.FindClip("t")
		require.NoError(t, err)
		assert.Equal(t, 1.0, c.Start)
		assert.Equal(t, DefaultTextContent, c.Content)
	})

	t.Run("assigns an id when missing", func(t *testing.T) {
		tl := NewDefault()
		c := videoClip("", 0, 1)
		cmd := &PlaceClip{Clip: c}
		require.NoError(t, cmd.Apply(tl))
		assert.NotEmpty(t, cmd.Clip.ID)
		assert.True(t, tl.HasClip(cmd.Clip.ID))
	})

	t.Run("rejects duplicates and invalid clips", func(t *testing.T) {
		tl := NewDefault()
		mustPlace(t, tl, videoClip("a", 0, 1))

		_, err := tl.PlaceClip(videoClip("a", 5, 1))
		assert.ErrorIs(t, err, ErrDuplicateClip)

		_, err = tl.PlaceClip(Clip{ID: "x", Kind: KindVideo, Start: 0, Duration: 1})
		assert.ErrorIs(t, err, ErrInvalidClip, "media clip without a source")

		_, err = tl.PlaceClip(Clip{ID: "y", Kind: "sticker", Start: 0, Duration: 1})
		assert.ErrorIs(t, err, ErrUnknownKind)
	})
}

func TestInsertClip(t *testing.T) {
	tl := NewDefault()
	require.NoError(t, tl.InsertClip(102, videoClip("a", 0, 5)))

	assert.ErrorIs(t, tl.InsertClip(101, videoClip("b", 6, 1)), ErrKindMismatch)
	assert.ErrorIs(t, tl.InsertClip(102, videoClip("b", 4, 2)), ErrOverlap)
	assert.ErrorIs(t, tl.InsertClip(999, videoClip("b", 6, 1)), ErrTrackNotFound)
	assert.Equal(t, 1, tl.ClipCount())
}

func TestMoveClip(t *testing.T) {
	setup := func(t *testing.T) *Timeline {
		t.Helper()
		tl := NewDefault()
		require.NoError(t, tl.InsertClip(102, videoClip("a", 0, 5)))
		require.NoError(t, tl.InsertClip(102, videoClip("b", 8, 2)))
		return tl
	}

	start := func(t *testing.T, tl *Timeline, id string) float64 {
		t.Helper()
		_, c, err := tl.FindClip(id)
		require.NoError(t, err)
		return c.Start
	}

	t.Run("snaps to frame", func(t *testing.T) {
		tl := setup(t)
		require.NoError(t, tl.MoveClip("b", 10.01, 0))
		assert.Equal(t, 10.0, start(t, tl, "b"))
	})

	t.Run("clamps to timeline end", func(t *testing.T) {
		tl := setup(t)
		require.NoError(t, tl.MoveClip("b", 40, 0))
		assert.Equal(t, 13.0, start(t, tl, "b"))
	})

	t.Run("clamps to zero", func(t *testing.T) {
		tl := setup(t)
		require.NoError(t, tl.MoveClip("b", 6, 0))
		require.NoError(t, tl.MoveClip("a", -3, 0))
		assert.Equal(t, 0.0, start(t, tl, "a"))
	})

	t.Run("same-track collision is rejected", func(t *testing.T) {
		tl := setup(t)
		before := tl.Clone()
		assert.ErrorIs(t, tl.MoveClip("b", 4, 0), ErrOverlap)
		assert.Equal(t, before, tl)
	})

	t.Run("moves onto another compatible track", func(t *testing.T) {
		tl := setup(t)
		trackID, err := tl.AddTrack(KindVideo)
		require.NoError(t, err)

		require.NoError(t, tl.MoveClip("b", 1, trackID))

		tr, c, err := tl.FindClip("b")
		require.NoError(t, err)
		assert.Equal(t, trackID, tr.ID)
		assert.Equal(t, 1.0, c.Start)
	})

	t.Run("incompatible track is rejected", func(t *testing.T) {
		tl := setup(t)
		before := tl.Clone()
		assert.ErrorIs(t, tl.MoveClip("b", 1, 101), ErrKindMismatch)
		assert.Equal(t, before, tl)
	})

	t.Run("occupied track is rejected", func(t *testing.T) {
		tl := setup(t)
		trackID, err := tl.AddTrack(KindVideo)
		require.NoError(t, err)
		require.NoError(t, tl.InsertClip(trackID, videoClip("c", 0, 3)))
		before := tl.Clone()

		assert.ErrorIs(t, tl.MoveClip("b", 2, trackID), ErrOverlap)
		assert.Equal(t, before, tl)
	})

	t.Run("unknown clip or track", func(t *testing.T) {
		tl := setup(t)
		assert.ErrorIs(t, tl.MoveClip("zzz", 1, 0), ErrClipNotFound)
		assert.ErrorIs(t, tl.MoveClip("a", 1, 404), ErrTrackNotFound)
	})
}

func TestTrimClip(t *testing.T) {
	duration := func(t *testing.T, tl *Timeline, id string) float64 {
		t.Helper()
		_, c, err := tl.FindClip(id)
		require.NoError(t, err)
		return c.Duration
	}

	t.Run("never shorter than a frame", func(t *testing.T) {
		tl := NewDefault()
		require.NoError(t, tl.InsertClip(102, videoClip("a", 2, 5)))

		for _, d := range []float64{0, -4, 0.001} {
			require.NoError(t, tl.TrimClip("a", d))
			assert.InDelta(t, tl.FrameDuration(), duration(t, tl, "a"), 1e-12)
		}
	})

	t.Run("never past timeline end", func(t *testing.T) {
		tl := NewDefault()
		require.NoError(t, tl.InsertClip(102, videoClip("a", 10, 2)))

		require.NoError(t, tl.TrimClip("a", 30))
		assert.Equal(t, 5.0, duration(t, tl, "a"))
	})

	t.Run("snaps to frame", func(t *testing.T) {
		tl := NewDefault()
		require.NoError(t, tl.InsertClip(102, videoClip("a", 0, 1)))

		require.NoError(t, tl.TrimClip("a", 2.51))
		assert.Equal(t, 2.5, duration(t, tl, "a"))
	})

	t.Run("rejects growth into the next clip", func(t *testing.T) {
		tl := NewDefault()
		require.NoError(t, tl.InsertClip(102, videoClip("a", 0, 2)))
		require.NoError(t, tl.InsertClip(102, videoClip("b", 3, 2)))

		assert.ErrorIs(t, tl.TrimClip("a", 4), ErrOverlap)
		assert.Equal(t, 2.0, duration(t, tl, "a"))
		assert.NoError(t, tl.TrimClip("a", 3), "growing up to the neighbour is allowed")
	})

	t.Run("end stays within duration for off-grid timelines", func(t *testing.T) {
		tl := New(24, 10.03)
		id, err := tl.AddTrack(KindVideo)
		require.NoError(t, err)
		require.NoError(t, tl.InsertClip(id, videoClip("a", 0, 1)))

		require.NoError(t, tl.TrimClip("a", 100))
		assert.Equal(t, 10.0, duration(t, tl, "a"), "rounding up would pass the end")
	})
}

func TestSetClipBoundsAndLayerMoves(t *testing.T) {
	tl := NewDefault()
	upper, err := tl.AddTrack(KindVideo)
	require.NoError(t, err)
	require.NoError(t, tl.InsertClip(102, videoClip("a", 0, 2)))

	t.Run("bounds are snapped with a frame minimum", func(t *testing.T) {
		cmd := &SetClipBounds{ClipID: "a", Start: 1.01, End: 1.01}
		require.NoError(t, cmd.Apply(tl))
		_, c, err := tl.FindClip("a")
		require.NoError(t, err)
		assert.Equal(t, 1.0, c.Start)
		assert.InDelta(t, tl.FrameDuration(), c.Duration, 1e-12)
	})

	t.Run("bounds stay inside the timeline", func(t *testing.T) {
		tests := []struct {
			name       string
			start, end float64
		}{
			{"end past duration", tl.Duration - 1, tl.Duration + 25},
			{"both past duration", tl.Duration + 5, tl.Duration + 6},
			{"negative start", -3, 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				require.NoError(t, (&SetClipBounds{ClipID: "a", Start: tt.start, End: tt.end}).Apply(tl))
				_, c, err := tl.FindClip("a")
				require.NoError(t, err)
				assert.GreaterOrEqual(t, c.Start, 0.0)
				assert.LessOrEqual(t, c.End(), tl.Duration)
				assert.GreaterOrEqual(t, c.Duration, tl.FrameDuration()-1e-12)
			})
		}
	})

	t.Run("layer up onto the new video track", func(t *testing.T) {
		require.NoError(t, (&MoveClipLayer{ClipID: "a", Direction: Up}).Apply(tl))
		tr, _, err := tl.FindClip("a")
		require.NoError(t, err)
		assert.Equal(t, upper, tr.ID)
	})

	t.Run("no track above the top", func(t *testing.T) {
		assert.ErrorIs(t, (&MoveClipLayer{ClipID: "a", Direction: Up}).Apply(tl), ErrNoAdjacentTrack)
	})

	t.Run("layer down onto an image track fails", func(t *testing.T) {
		require.NoError(t, (&MoveClipLayer{ClipID: "a", Direction: Down}).Apply(tl))
		assert.ErrorIs(t, (&MoveClipLayer{ClipID: "a", Direction: Down}).Apply(tl), ErrKindMismatch)
	})
}

func TestTrackManagement(t *testing.T) {
	tl := NewDefault()

	id, err := tl.AddTrack(KindAudio)
	require.NoError(t, err)
	assert.Equal(t, 103, id)
	assert.Equal(t, "New audio Layer", tl.Tracks[0].Label)

	_, err = tl.AddTrack("hologram")
	assert.ErrorIs(t, err, ErrUnknownKind)

	require.NoError(t, tl.SetTrackMuted(id, true))
	require.NoError(t, tl.SetTrackHidden(102, true))
	assert.True(t, tl.Tracks[0].Muted)

	require.NoError(t, tl.InsertClip(100, Clip{ID: "t", Kind: KindText, Content: "hi", Start: 0, Duration: 1}))
	assert.ErrorIs(t, tl.RemoveTrack(100), ErrTrackNotEmpty)
	require.NoError(t, tl.RemoveClip("t"))
	require.NoError(t, tl.RemoveTrack(100))
	_, _, err = tl.Track(100)
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestClipEdits(t *testing.T) {
	tl := NewDefault()
	require.NoError(t, tl.InsertClip(100, Clip{ID: "t", Kind: KindText, Content: "hello", Start: 0, Duration: 1, Properties: DefaultProperties()}))
	require.NoError(t, tl.InsertClip(102, videoClip("v", 0, 1)))

	require.NoError(t, tl.SetContent("t", "world"))
	_, c, _ := tl.FindClip("t")
	assert.Equal(t, "world", c.Content)
	assert.ErrorIs(t, tl.SetContent("v", "nope"), ErrKindMismatch)

	props := DefaultProperties()
	props.Opacity = 0.5
	props.Rotation = 45
	require.NoError(t, tl.UpdateProperties("v", props))
	_, c, _ = tl.FindClip("v")
	assert.Equal(t, props, c.Properties)

	props.Opacity = 2
	assert.ErrorIs(t, tl.UpdateProperties("v", props), ErrInvalidClip)
}

func TestQueries(t *testing.T) {
	tl := NewDefault()
	upper, err := tl.AddTrack(KindVideo)
	require.NoError(t, err)
	require.NoError(t, tl.InsertClip(102, videoClip("base", 0, 10)))
	require.NoError(t, tl.InsertClip(upper, videoClip("overlay", 2, 2)))
	require.NoError(t, tl.InsertClip(100, Clip{ID: "caption", Kind: KindText, Content: "hi", Start: 3, Duration: 4}))

	ids := func(clips []Clip) []string {
		out := make([]string, 0, len(clips))
		for _, c := range clips {
			out = append(out, c.ID)
		}
		return out
	}

	assert.Equal(t, []string{"caption", "base", "overlay"}, ids(tl.ClipsAt(3)), "bottom layer first")
	assert.Equal(t, []string{"base"}, ids(tl.ClipsAt(8)))
	assert.Empty(t, tl.ClipsAt(12))

	active, ok := tl.ActiveVideoClip(3)
	require.True(t, ok)
	assert.Equal(t, "base", active.ID)

	require.NoError(t, tl.SetTrackHidden(102, true))
	active, ok = tl.ActiveVideoClip(3)
	require.True(t, ok)
	assert.Equal(t, "overlay", active.ID)
	_, ok = tl.ActiveVideoClip(8)
	assert.False(t, ok)

	assert.Equal(t, 10.0, tl.MaxEnd())
	assert.Equal(t, 3, tl.ClipCount())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(tl *Timeline)
		wantErr error
	}{
		{"valid", func(tl *Timeline) {}, nil},
		{"zero fps", func(tl *Timeline) { tl.FPS = 0 }, ErrInvalidTimeline},
		{"zero duration", func(tl *Timeline) { tl.Duration = 0 }, ErrInvalidTimeline},
		{"duplicate track id", func(tl *Timeline) { tl.Tracks[1].ID = 102 }, ErrInvalidTimeline},
		{"kind mismatch", func(tl *Timeline) {
			tl.Tracks[1].Clips = []Clip{videoClip("x", 0, 1)}
		}, ErrKindMismatch},
		{"overlap", func(tl *Timeline) {
			tl.Tracks[0].Clips = []Clip{videoClip("x", 0, 2), videoClip("y", 1, 2)}
		}, ErrOverlap},
		{"duplicate clip id", func(tl *Timeline) {
			tl.Tracks[0].Clips = []Clip{videoClip("x", 0, 1), videoClip("x", 2, 1)}
		}, ErrDuplicateClip},
		{"negative start", func(tl *Timeline) {
			tl.Tracks[0].Clips = []Clip{videoClip("x", -1, 2)}
		}, ErrInvalidClip},
		{"zero duration clip", func(tl *Timeline) {
			tl.Tracks[0].Clips = []Clip{videoClip("x", 0, 0)}
		}, ErrInvalidClip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := NewDefault()
			tt.mutate(tl)
			err := tl.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("sorts clips", func(t *testing.T) {
		tl := NewDefault()
		tl.Tracks[0].Clips = []Clip{videoClip("late", 5, 1), videoClip("early", 0, 1)}
		require.NoError(t, tl.Validate())
		assert.Equal(t, "early", tl.Tracks[0].Clips[0].ID)
	})
}

func TestCloneIsDeep(t *testing.T) {
	tl := NewDefault()
	require.NoError(t, tl.InsertClip(102, videoClip("a", 0, 1)))

	cp := tl.Clone()
	require.NoError(t, cp.MoveClip("a", 5, 0))
	cp.Tracks[0].Label = "changed"

	_, c, err := tl.FindClip("a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Start)
	assert.Equal(t, "Base Video", tl.Tracks[0].Label)
}
