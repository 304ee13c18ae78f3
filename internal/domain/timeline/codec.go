package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses a timeline payload and validates it. Two shapes are
// accepted: a full {"fps","duration","tracks"} object, or the bare track
// array the editor submits on export, in which case fps and duration come
// from the arguments.
func Decode(data []byte, fps int, duration float64) (*Timeline, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidTimeline)
	}

	tl := New(fps, duration)
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &tl.Tracks); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTimeline, err)
		}
	} else {
		if err := json.Unmarshal(trimmed, tl); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTimeline, err)
		}
		if tl.FPS <= 0 {
			tl.FPS = New(fps, 0).FPS
		}
		if tl.Duration <= 0 {
			tl.Duration = New(0, duration).Duration
		}
	}

	if err := tl.Validate(); err != nil {
		return nil, err
	}
	return tl, nil
}

// EncodeTracks renders the track list in the editor's export shape.
func (tl *Timeline) EncodeTracks() (json.RawMessage, error) {
	tracks := tl.Tracks
	if tracks == nil {
		tracks = []Track{}
	}
	return json.Marshal(tracks)
}
