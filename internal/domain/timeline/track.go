package timeline

import (
	"fmt"
	"slices"
	"sort"
)

// Track is a lane of clips of a single kind. Clips are kept sorted by start
// and never overlap, so their ends are sorted as well.
type Track struct {
	ID     int    `json:"id"`
	Kind   Kind   `json:"type"`
	Label  string `json:"label"`
	Hidden bool   `json:"isHidden"`
	Muted  bool   `json:"isMuted"`
	Clips  []Clip `json:"clips"`
}

// NewTrack returns an empty track.
func NewTrack(id int, kind Kind, label string) Track {
	return Track{ID: id, Kind: kind, Label: label, Clips: []Clip{}}
}

// firstEndingAfter returns the index of the first clip whose end is after t.
func (t *Track) firstEndingAfter(at float64) int {
	return sort.Search(len(t.Clips), func(i int) bool {
		return t.Clips[i].End() > at
	})
}

// Collides reports whether a clip occupying [start, start+duration) would
// overlap any clip on the track other than ignoreID.
func (t *Track) Collides(start, duration float64, ignoreID string) bool {
	_, found := t.firstCollision(start, duration, ignoreID)
	return found
}

func (t *Track) firstCollision(start, duration float64, ignoreID string) (Clip, bool) {
	end := start + duration
	for i := t.firstEndingAfter(start); i < len(t.Clips); i++ {
		c := t.Clips[i]
		if c.Start >= end {
			break
		}
		if c.ID == ignoreID {
			continue
		}
		if Overlaps(start, duration, c.Start, c.Duration) {
			return c, true
		}
	}
	return Clip{}, false
}

// IndexOf returns the position of the clip with the given id, or -1.
func (t *Track) IndexOf(clipID string) int {
	for i := range t.Clips {
		if t.Clips[i].ID == clipID {
			return i
		}
	}
	return -1
}

// At returns the clip covering time at, if any.
func (t *Track) At(at float64) (Clip, bool) {
	i := t.firstEndingAfter(at)
	if i < len(t.Clips) && t.Clips[i].Contains(at) {
		return t.Clips[i], true
	}
	return Clip{}, false
}

// canHold checks kind and free space for c, ignoring c's own id.
func (t *Track) canHold(c Clip) error {
	if c.Kind != t.Kind {
		return fmt.Errorf("%w: %s clip on %s track %d", ErrKindMismatch, c.Kind, t.Kind, t.ID)
	}
	if other, hit := t.firstCollision(c.Start, c.Duration, c.ID); hit {
		return fmt.Errorf("%w: clip %s collides with %s on track %d", ErrOverlap, c.ID, other.ID, t.ID)
	}
	return nil
}

// insert places c in start order. Callers must have checked canHold.
func (t *Track) insert(c Clip) {
	i := sort.Search(len(t.Clips), func(i int) bool {
		return t.Clips[i].Start > c.Start
	})
	t.Clips = slices.Insert(t.Clips, i, c)
}

// remove deletes the clip with the given id and returns it.
func (t *Track) remove(clipID string) (Clip, bool) {
	i := t.IndexOf(clipID)
	if i < 0 {
		return Clip{}, false
	}
	c := t.Clips[i]
	t.Clips = slices.Delete(t.Clips, i, i+1)
	return c, true
}

// MaxEnd returns the end of the last clip on the track.
func (t *Track) MaxEnd() float64 {
	if len(t.Clips) == 0 {
		return 0
	}
	return t.Clips[len(t.Clips)-1].End()
}

func (t *Track) clone() Track {
	cp := *t
	cp.Clips = make([]Clip, len(t.Clips))
	copy(cp.Clips, t.Clips)
	return cp
}

// normalize sorts clips and checks the track's invariants.
func (t *Track) normalize() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: track %d: %q", ErrUnknownKind, t.ID, t.Kind)
	}
	if t.Clips == nil {
		t.Clips = []Clip{}
	}
	sort.SliceStable(t.Clips, func(i, j int) bool {
		return t.Clips[i].Start < t.Clips[j].Start
	})
	for i, c := range t.Clips {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("track %d: %w", t.ID, err)
		}
		if c.Kind != t.Kind {
			return fmt.Errorf("%w: %s clip %s on %s track %d", ErrKindMismatch, c.Kind, c.ID, t.Kind, t.ID)
		}
		if i > 0 {
			prev := t.Clips[i-1]
			if Overlaps(prev.Start, prev.Duration, c.Start, c.Duration) {
				return fmt.Errorf("%w: clips %s and %s on track %d", ErrOverlap, prev.ID, c.ID, t.ID)
			}
		}
	}
	return nil
}
