package timeline

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorUndoRedo(t *testing.T) {
	ed := NewEditor(NewDefault(), 0)
	states := []*Timeline{ed.Timeline().Clone()}

	place := &PlaceClip{Clip: videoClip("a", 0, 4)}
	cmds := []Command{
		place,
		&PlaceClip{Clip: videoClip("b", 1, 2)}, // reroutes to a new track
		&MoveClip{ClipID: "a", Start: 6},
		&TrimClip{ClipID: "a", Duration: 2},
		&SetTrackMuted{TrackID: 102, Muted: true},
		&RemoveClip{ClipID: "b"},
	}
	for _, cmd := range cmds {
		require.NoError(t, ed.Do(cmd), cmd.Name())
		states = append(states, ed.Timeline().Clone())
	}
	assert.Equal(t, len(cmds), ed.UndoDepth())

	for i := len(cmds) - 1; i >= 0; i-- {
		require.NoError(t, ed.Undo())
		assert.Equal(t, states[i], ed.Timeline(), "after undoing to state %d", i)
	}
	assert.ErrorIs(t, ed.Undo(), ErrNothingToUndo)

	for i := 1; i <= len(cmds); i++ {
		require.NoError(t, ed.Redo())
		assert.Equal(t, states[i], ed.Timeline(), "after redoing to state %d", i)
	}
	assert.ErrorIs(t, ed.Redo(), ErrNothingToRedo)
}

func TestEditorNewCommandClearsRedo(t *testing.T) {
	ed := NewEditor(NewDefault(), 0)
	require.NoError(t, ed.Do(&SetTrackHidden{TrackID: 101, Hidden: true}))
	require.NoError(t, ed.Undo())
	require.True(t, ed.CanRedo())

	require.NoError(t, ed.Do(&SetTrackMuted{TrackID: 102, Muted: true}))
	assert.False(t, ed.CanRedo())
	assert.ErrorIs(t, ed.Redo(), ErrNothingToRedo)
	assert.Equal(t, []string{"set track muted"}, ed.History())
}

func TestEditorFailedCommandIsNotRecorded(t *testing.T) {
	ed := NewEditor(NewDefault(), 0)
	require.NoError(t, ed.Do(&InsertClip{TrackID: 102, Clip: videoClip("a", 0, 5)}))
	before := ed.Timeline().Clone()

	err := ed.Do(&InsertClip{TrackID: 102, Clip: videoClip("b", 2, 2)})
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, before, ed.Timeline())
	assert.Equal(t, 1, ed.UndoDepth())
}

func TestEditorHistoryLimit(t *testing.T) {
	ed := NewEditor(NewDefault(), 3)
	states := []*Timeline{ed.Timeline().Clone()}

	for i := 0; i < 5; i++ {
		require.NoError(t, ed.Do(&AddTrack{Kind: KindAudio}))
		states = append(states, ed.Timeline().Clone())
	}
	assert.Equal(t, 3, ed.UndoDepth())

	for i := 0; i < 3; i++ {
		require.NoError(t, ed.Undo())
	}
	assert.ErrorIs(t, ed.Undo(), ErrNothingToUndo)
	assert.Equal(t, states[2], ed.Timeline(), "the two oldest commands fell out of the log")
}

func TestEditorDefaultLimit(t *testing.T) {
	ed := NewEditor(NewDefault(), -1)
	for i := 0; i < DefaultHistoryLimit+10; i++ {
		require.NoError(t, ed.Do(&SetTrackHidden{TrackID: 100, Hidden: i%2 == 0}))
	}
	assert.Equal(t, DefaultHistoryLimit, ed.UndoDepth())
}

// randomCommand builds an arbitrary edit against the current state. Some of
// them are expected to fail; failures must not be recorded.
func randomCommand(rng *rand.Rand, tl *Timeline, seq int) Command {
	clipIDs := make([]string, 0)
	for _, tr := range tl.Tracks {
		for _, c := range tr.Clips {
			clipIDs = append(clipIDs, c.ID)
		}
	}
	pickClip := func() string {
		if len(clipIDs) == 0 {
			return "missing"
		}
		return clipIDs[rng.Intn(len(clipIDs))]
	}
	pickTrack := func() int {
		return tl.Tracks[rng.Intn(len(tl.Tracks))].ID
	}

	switch rng.Intn(9) {
	case 0, 1:
		kind := Kinds[rng.Intn(len(Kinds))]
		c := Clip{
			ID:         fmt.Sprintf("clip-%d", seq),
			Kind:       kind,
			Start:      float64(rng.Intn(14)),
			Duration:   float64(1 + rng.Intn(4)),
			Properties: DefaultProperties(),
		}
		if kind.IsMedia() {
			c.Src = "uploads/" + c.ID
		}
		return &PlaceClip{Clip: c}
	case 2:
		return &MoveClip{ClipID: pickClip(), Start: rng.Float64() * 16}
	case 3:
		return &MoveClip{ClipID: pickClip(), Start: rng.Float64() * 16, TrackID: pickTrack()}
	case 4:
		return &TrimClip{ClipID: pickClip(), Duration: rng.Float64() * 6}
	case 5:
		return &RemoveClip{ClipID: pickClip()}
	case 6:
		return &AddTrack{Kind: Kinds[rng.Intn(len(Kinds))]}
	case 7:
		return &MoveClipLayer{ClipID: pickClip(), Direction: Direction(rng.Intn(2))}
	default:
		return &SetTrackHidden{TrackID: pickTrack(), Hidden: rng.Intn(2) == 0}
	}
}

func TestEditorRandomHistoryRestoresExactStates(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			ed := NewEditor(NewDefault(), DefaultHistoryLimit)
			states := []*Timeline{ed.Timeline().Clone()}

			for i := 0; i < 40; i++ {
				before := ed.Timeline().Clone()
				if err := ed.Do(randomCommand(rng, ed.Timeline(), i)); err != nil {
					require.Equal(t, before, ed.Timeline(), "failed command changed state")
					continue
				}
				require.NoError(t, ed.Timeline().Clone().Validate(), "invariants broken after step %d", i)
				states = append(states, ed.Timeline().Clone())
			}

			depth := ed.UndoDepth()
			for k := 1; k <= depth; k++ {
				require.NoError(t, ed.Undo())
				require.Equal(t, states[len(states)-1-k], ed.Timeline())
			}
			for k := depth - 1; k >= 0; k-- {
				require.NoError(t, ed.Redo())
				require.Equal(t, states[len(states)-1-k], ed.Timeline())
			}
		})
	}
}
