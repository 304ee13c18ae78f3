package timeline

import (
	"fmt"
	"math"
)

// Command is an invertible edit. Apply must leave the timeline untouched when
// it returns an error. Revert undoes the most recent successful Apply and is
// only valid against the state that Apply produced.
type Command interface {
	Apply(tl *Timeline) error
	Revert(tl *Timeline) error
	Name() string
}

// Direction selects a neighbouring track for MoveClipLayer.
type Direction int

const (
	// Up moves toward Tracks[0], the topmost layer.
	Up Direction = iota
	// Down moves toward the bottom layer.
	Down
)

// AddTrack creates an empty track of Kind at the top of the stack.
type AddTrack struct {
	Kind Kind
	// Label overrides the default "New <kind> Layer".
	Label string

	created int
}

func (c *AddTrack) Name() string { return "add track" }

// TrackID returns the id assigned by the last Apply.
func (c *AddTrack) TrackID() int { return c.created }

func (c *AddTrack) Apply(tl *Timeline) error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	label := c.Label
	if label == "" {
		label = fmt.Sprintf("New %s Layer", c.Kind)
	}
	c.created = tl.nextTrackID()
	tl.insertTrack(0, NewTrack(c.created, c.Kind, label))
	return nil
}

func (c *AddTrack) Revert(tl *Timeline) error {
	_, _, err := tl.removeTrack(c.created)
	return err
}

// RemoveTrack deletes an empty track.
type RemoveTrack struct {
	TrackID int

	removed Track
	index   int
}

func (c *RemoveTrack) Name() string { return "remove track" }

func (c *RemoveTrack) Apply(tl *Timeline) error {
	tr, _, err := tl.Track(c.TrackID)
	if err != nil {
		return err
	}
	if len(tr.Clips) > 0 {
		return fmt.Errorf("%w: track %d has %d clips", ErrTrackNotEmpty, tr.ID, len(tr.Clips))
	}
	c.removed, c.index, err = tl.removeTrack(c.TrackID)
	return err
}

func (c *RemoveTrack) Revert(tl *Timeline) error {
	tl.insertTrack(c.index, c.removed)
	return nil
}

// PlaceClip adds a clip with smart placement: the start is snapped, then the
// clip goes on the first track of its kind with room. When no such track
// exists a new "<kind> Layer" track is created on top.
type PlaceClip struct {
	Clip Clip

	trackID      int
	createdTrack bool
}

func (c *PlaceClip) Name() string { return "place clip" }

// TrackID returns the track chosen by the last Apply.
func (c *PlaceClip) TrackID() int { return c.trackID }

// CreatedTrack reports whether the last Apply had to add a track.
func (c *PlaceClip) CreatedTrack() bool { return c.createdTrack }

func (c *PlaceClip) Apply(tl *Timeline) error {
	if c.Clip.ID == "" {
		c.Clip.ID = NewClipID()
	}
	if c.Clip.Kind == KindText && c.Clip.Content == "" {
		c.Clip.Content = DefaultTextContent
	}
	clip := c.Clip
	clip.Start = math.Max(0, tl.SnapTime(clip.Start))
	clip.Duration = math.Max(tl.FrameDuration(), clip.Duration)
	if err := clip.Validate(); err != nil {
		return err
	}
	if tl.HasClip(clip.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateClip, clip.ID)
	}

	c.createdTrack = false
	for i := range tl.Tracks {
		tr := &tl.Tracks[i]
		if tr.Kind == clip.Kind && !tr.Collides(clip.Start, clip.Duration, clip.ID) {
			tr.insert(clip)
			c.trackID = tr.ID
			return nil
		}
	}

	tr := NewTrack(tl.nextTrackID(), clip.Kind, fmt.Sprintf("%s Layer", clip.Kind))
	tr.insert(clip)
	tl.insertTrack(0, tr)
	c.trackID = tr.ID
	c.createdTrack = true
	return nil
}

func (c *PlaceClip) Revert(tl *Timeline) error {
	if c.createdTrack {
		_, _, err := tl.removeTrack(c.trackID)
		return err
	}
	tr, _, err := tl.Track(c.trackID)
	if err != nil {
		return err
	}
	if _, ok := tr.remove(c.Clip.ID); !ok {
		return fmt.Errorf("%w: %s", ErrClipNotFound, c.Clip.ID)
	}
	return nil
}

// InsertClip puts a clip on a specific track without rerouting.
type InsertClip struct {
	TrackID int
	Clip    Clip
}

func (c *InsertClip) Name() string { return "insert clip" }

func (c *InsertClip) Apply(tl *Timeline) error {
	if err := c.Clip.Validate(); err != nil {
		return err
	}
	tr, _, err := tl.Track(c.TrackID)
	if err != nil {
		return err
	}
	if tl.HasClip(c.Clip.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateClip, c.Clip.ID)
	}
	if err := tr.canHold(c.Clip); err != nil {
		return err
	}
	tr.insert(c.Clip)
	return nil
}

func (c *InsertClip) Revert(tl *Timeline) error {
	tr, _, err := tl.Track(c.TrackID)
	if err != nil {
		return err
	}
	if _, ok := tr.remove(c.Clip.ID); !ok {
		return fmt.Errorf("%w: %s", ErrClipNotFound, c.Clip.ID)
	}
	return nil
}

// RemoveClip deletes a clip from whichever track holds it.
type RemoveClip struct {
	ClipID string

	removed Clip
	trackID int
}

func (c *RemoveClip) Name() string { return "remove clip" }

func (c *RemoveClip) Apply(tl *Timeline) error {
	tr, clip, err := tl.FindClip(c.ClipID)
	if err != nil {
		return err
	}
	tr.remove(c.ClipID)
	c.removed, c.trackID = clip, tr.ID
	return nil
}

func (c *RemoveClip) Revert(tl *Timeline) error {
	tr, _, err := tl.Track(c.trackID)
	if err != nil {
		return err
	}
	tr.insert(c.removed)
	return nil
}

// moveState records where a clip was before a command relocated or resized it.
type moveState struct {
	prev        Clip
	fromTrackID int
	toTrackID   int
}

func (m *moveState) revert(tl *Timeline) error {
	to, _, err := tl.Track(m.toTrackID)
	if err != nil {
		return err
	}
	if _, ok := to.remove(m.prev.ID); !ok {
		return fmt.Errorf("%w: %s", ErrClipNotFound, m.prev.ID)
	}
	from, _, err := tl.Track(m.fromTrackID)
	if err != nil {
		return err
	}
	from.insert(m.prev)
	return nil
}

// relocate replaces clip prev (currently on from) with next on track to.
func (m *moveState) relocate(from, to *Track, prev, next Clip) error {
	if to.ID != from.ID {
		if err := to.canHold(next); err != nil {
			return err
		}
	} else if other, hit := to.firstCollision(next.Start, next.Duration, next.ID); hit {
		return fmt.Errorf("%w: clip %s collides with %s on track %d", ErrOverlap, next.ID, other.ID, to.ID)
	}
	from.remove(prev.ID)
	to.insert(next)
	m.prev, m.fromTrackID, m.toTrackID = prev, from.ID, to.ID
	return nil
}

// MoveClip drags a clip to a new start, optionally onto another track of the
// same kind. The start is clamped into [0, duration-clip.duration] and then
// snapped to a frame. A TrackID of zero keeps the clip on its current track.
type MoveClip struct {
	ClipID  string
	Start   float64
	TrackID int

	moveState
}

func (c *MoveClip) Name() string { return "move clip" }

func (c *MoveClip) Apply(tl *Timeline) error {
	from, clip, err := tl.FindClip(c.ClipID)
	if err != nil {
		return err
	}
	to := from
	if c.TrackID != 0 && c.TrackID != from.ID {
		if to, _, err = tl.Track(c.TrackID); err != nil {
			return err
		}
	}

	next := clip
	next.Start = tl.snapWithin(c.Start, 0, math.Max(0, tl.Duration-clip.Duration))
	return c.relocate(from, to, clip, next)
}

func (c *MoveClip) Revert(tl *Timeline) error { return c.revert(tl) }

// TrimClip changes a clip's duration. The result is clamped into
// [FrameDuration, duration-start] and snapped to a frame.
type TrimClip struct {
	ClipID   string
	Duration float64

	moveState
}

func (c *TrimClip) Name() string { return "trim clip" }

func (c *TrimClip) Apply(tl *Timeline) error {
	tr, clip, err := tl.FindClip(c.ClipID)
	if err != nil {
		return err
	}
	next := clip
	next.Duration = tl.snapWithin(c.Duration, tl.FrameDuration(), tl.Duration-clip.Start)
	return c.relocate(tr, tr, clip, next)
}

func (c *TrimClip) Revert(tl *Timeline) error { return c.revert(tl) }

// SetClipBounds sets both edges of a clip from the inspector. Both edges
// are snapped and kept inside the timeline, and the duration is at least
// one frame.
type SetClipBounds struct {
	ClipID string
	Start  float64
	End    float64

	moveState
}

func (c *SetClipBounds) Name() string { return "set clip bounds" }

func (c *SetClipBounds) Apply(tl *Timeline) error {
	tr, clip, err := tl.FindClip(c.ClipID)
	if err != nil {
		return err
	}
	next := clip
	frame := tl.FrameDuration()
	next.Start = tl.snapWithin(c.Start, 0, math.Max(0, tl.Duration-frame))
	next.Duration = tl.snapWithin(tl.SnapTime(c.End)-next.Start, frame, tl.Duration-next.Start)
	return c.relocate(tr, tr, clip, next)
}

func (c *SetClipBounds) Revert(tl *Timeline) error { return c.revert(tl) }

// MoveClipLayer moves a clip to the adjacent track above or below, keeping
// its timing. Both tracks must share a kind and the target must be free.
type MoveClipLayer struct {
	ClipID    string
	Direction Direction

	moveState
}

func (c *MoveClipLayer) Name() string { return "move clip layer" }

func (c *MoveClipLayer) Apply(tl *Timeline) error {
	from, clip, err := tl.FindClip(c.ClipID)
	if err != nil {
		return err
	}
	_, idx, _ := tl.Track(from.ID)
	target := idx + 1
	if c.Direction == Up {
		target = idx - 1
	}
	if target < 0 || target >= len(tl.Tracks) {
		return ErrNoAdjacentTrack
	}
	return c.relocate(from, &tl.Tracks[target], clip, clip)
}

func (c *MoveClipLayer) Revert(tl *Timeline) error { return c.revert(tl) }

// UpdateProperties replaces a clip's stage transforms.
type UpdateProperties struct {
	ClipID     string
	Properties Properties

	prev Properties
}

func (c *UpdateProperties) Name() string { return "update properties" }

func (c *UpdateProperties) Apply(tl *Timeline) error {
	tr, clip, err := tl.FindClip(c.ClipID)
	if err != nil {
		return err
	}
	next := clip
	next.Properties = c.Properties
	if err := next.Validate(); err != nil {
		return err
	}
	c.prev = clip.Properties
	tr.Clips[tr.IndexOf(c.ClipID)].Properties = c.Properties
	return nil
}

func (c *UpdateProperties) Revert(tl *Timeline) error {
	tr, _, err := tl.FindClip(c.ClipID)
	if err != nil {
		return err
	}
	tr.Clips[tr.IndexOf(c.ClipID)].Properties = c.prev
	return nil
}

// SetContent edits the text of a text clip.
type SetContent struct {
	ClipID  string
	Content string

	prev string
}

func (c *SetContent) Name() string { return "set content" }

func (c *SetContent) Apply(tl *Timeline) error {
	tr, clip, err := tl.FindClip(c.ClipID)
	if err != nil {
		return err
	}
	if clip.Kind != KindText {
		return fmt.Errorf("%w: %s clip %s has no text content", ErrKindMismatch, clip.Kind, clip.ID)
	}
	c.prev = clip.Content
	tr.Clips[tr.IndexOf(c.ClipID)].Content = c.Content
	return nil
}

func (c *SetContent) Revert(tl *Timeline) error {
	tr, _, err := tl.FindClip(c.ClipID)
	if err != nil {
		return err
	}
	tr.Clips[tr.IndexOf(c.ClipID)].Content = c.prev
	return nil
}

// SetTrackHidden shows or hides a track.
type SetTrackHidden struct {
	TrackID int
	Hidden  bool

	prev bool
}

func (c *SetTrackHidden) Name() string { return "set track hidden" }

func (c *SetTrackHidden) Apply(tl *Timeline) error {
	tr, _, err := tl.Track(c.TrackID)
	if err != nil {
		return err
	}
	c.prev, tr.Hidden = tr.Hidden, c.Hidden
	return nil
}

func (c *SetTrackHidden) Revert(tl *Timeline) error {
	tr, _, err := tl.Track(c.TrackID)
	if err != nil {
		return err
	}
	tr.Hidden = c.prev
	return nil
}

// SetTrackMuted mutes or unmutes a track.
type SetTrackMuted struct {
	TrackID int
	Muted   bool

	prev bool
}

func (c *SetTrackMuted) Name() string { return "set track muted" }

func (c *SetTrackMuted) Apply(tl *Timeline) error {
	tr, _, err := tl.Track(c.TrackID)
	if err != nil {
		return err
	}
	c.prev, tr.Muted = tr.Muted, c.Muted
	return nil
}

func (c *SetTrackMuted) Revert(tl *Timeline) error {
	tr, _, err := tl.Track(c.TrackID)
	if err != nil {
		return err
	}
	tr.Muted = c.prev
	return nil
}

// snapWithin clamps v into [lo, hi] and snaps it to a frame without leaving
// the range. When hi < lo the lower bound wins.
func (tl *Timeline) snapWithin(v, lo, hi float64) float64 {
	fps := float64(tl.fps())
	s := tl.SnapTime(math.Max(lo, math.Min(v, hi)))
	if s > hi {
		s = math.Floor(hi*fps) / fps
	}
	if s < lo {
		s = math.Ceil(lo*fps) / fps
	}
	if s < lo {
		s = lo
	}
	return s
}
