package timeline

import (
	"fmt"
	"math"
)

// Editor defaults.
const (
	DefaultFPS      = 24
	DefaultDuration = 15.0
)

// Timeline is an ordered stack of tracks. Tracks[0] is the topmost layer.
type Timeline struct {
	FPS      int     `json:"fps"`
	Duration float64 `json:"duration"`
	Tracks   []Track `json:"tracks"`
}

// New returns an empty timeline. Non-positive arguments fall back to the
// editor defaults.
func New(fps int, duration float64) *Timeline {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Timeline{FPS: fps, Duration: duration, Tracks: []Track{}}
}

// NewDefault returns the starting layout of a new editor session.
func NewDefault() *Timeline {
	tl := New(DefaultFPS, DefaultDuration)
	tl.Tracks = []Track{
		NewTrack(102, KindVideo, "Base Video"),
		NewTrack(101, KindImage, "Sprites"),
		NewTrack(100, KindText, "Text Layer"),
	}
	return tl
}

// FrameDuration is the length of one frame in seconds.
func (tl *Timeline) FrameDuration() float64 {
	return 1 / float64(tl.fps())
}

// SnapTime rounds t to the nearest frame boundary.
func (tl *Timeline) SnapTime(t float64) float64 {
	fps := float64(tl.fps())
	return math.Round(t*fps) / fps
}

func (tl *Timeline) fps() int {
	if tl.FPS <= 0 {
		return DefaultFPS
	}
	return tl.FPS
}

// Track returns the track with the given id and its index.
func (tl *Timeline) Track(id int) (*Track, int, error) {
	for i := range tl.Tracks {
		if tl.Tracks[i].ID == id {
			return &tl.Tracks[i], i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %d", ErrTrackNotFound, id)
}

// FindClip returns the track holding the clip and the clip itself.
func (tl *Timeline) FindClip(clipID string) (*Track, Clip, error) {
	for i := range tl.Tracks {
		tr := &tl.Tracks[i]
		if j := tr.IndexOf(clipID); j >= 0 {
			return tr, tr.Clips[j], nil
		}
	}
	return nil, Clip{}, fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
}

// HasClip reports whether any track holds a clip with the given id.
func (tl *Timeline) HasClip(clipID string) bool {
	_, _, err := tl.FindClip(clipID)
	return err == nil
}

// nextTrackID is one more than the largest existing id.
func (tl *Timeline) nextTrackID() int {
	maxID := 0
	for _, t := range tl.Tracks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	return maxID + 1
}

func (tl *Timeline) insertTrack(index int, t Track) {
	tl.Tracks = append(tl.Tracks, Track{})
	copy(tl.Tracks[index+1:], tl.Tracks[index:])
	tl.Tracks[index] = t
}

func (tl *Timeline) removeTrack(id int) (Track, int, error) {
	tr, idx, err := tl.Track(id)
	if err != nil {
		return Track{}, -1, err
	}
	removed := *tr
	tl.Tracks = append(tl.Tracks[:idx], tl.Tracks[idx+1:]...)
	return removed, idx, nil
}

// ClipsAt returns the clips of visible tracks covering time t, ordered from
// the bottom layer to the top.
func (tl *Timeline) ClipsAt(t float64) []Clip {
	var out []Clip
	for i := len(tl.Tracks) - 1; i >= 0; i-- {
		tr := &tl.Tracks[i]
		if tr.Hidden {
			continue
		}
		if c, ok := tr.At(t); ok {
			out = append(out, c)
		}
	}
	return out
}

// ActiveVideoClip returns the video clip that drives playback at time t:
// the one on the bottom-most visible video track.
func (tl *Timeline) ActiveVideoClip(t float64) (Clip, bool) {
	for i := len(tl.Tracks) - 1; i >= 0; i-- {
		tr := &tl.Tracks[i]
		if tr.Hidden || tr.Kind != KindVideo {
			continue
		}
		if c, ok := tr.At(t); ok {
			return c, true
		}
	}
	return Clip{}, false
}

// MaxEnd returns the largest clip end across all tracks.
func (tl *Timeline) MaxEnd() float64 {
	var end float64
	for i := range tl.Tracks {
		end = math.Max(end, tl.Tracks[i].MaxEnd())
	}
	return end
}

// ClipCount returns the number of clips on all tracks.
func (tl *Timeline) ClipCount() int {
	n := 0
	for _, t := range tl.Tracks {
		n += len(t.Clips)
	}
	return n
}

// Clone returns a deep copy of the timeline.
func (tl *Timeline) Clone() *Timeline {
	cp := &Timeline{FPS: tl.FPS, Duration: tl.Duration, Tracks: make([]Track, len(tl.Tracks))}
	for i := range tl.Tracks {
		cp.Tracks[i] = tl.Tracks[i].clone()
	}
	return cp
}

// Validate checks every structural invariant: known kinds, matching clip
// and track kinds, positive durations, unique ids and no overlaps. It also
// sorts each track's clips by start.
func (tl *Timeline) Validate() error {
	if tl.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive", ErrInvalidTimeline)
	}
	if tl.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidTimeline)
	}
	if tl.Tracks == nil {
		tl.Tracks = []Track{}
	}

	trackIDs := make(map[int]struct{}, len(tl.Tracks))
	clipIDs := make(map[string]int)
	for i := range tl.Tracks {
		tr := &tl.Tracks[i]
		if tr.ID <= 0 {
			return fmt.Errorf("%w: track id %d must be positive", ErrInvalidTimeline, tr.ID)
		}
		if _, dup := trackIDs[tr.ID]; dup {
			return fmt.Errorf("%w: duplicate track id %d", ErrInvalidTimeline, tr.ID)
		}
		trackIDs[tr.ID] = struct{}{}

		if err := tr.normalize(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTimeline, err)
		}
		for _, c := range tr.Clips {
			if owner, dup := clipIDs[c.ID]; dup {
				return fmt.Errorf("%w: %w: %s on tracks %d and %d",
					ErrInvalidTimeline, ErrDuplicateClip, c.ID, owner, tr.ID)
			}
			clipIDs[c.ID] = tr.ID
		}
	}
	return nil
}
