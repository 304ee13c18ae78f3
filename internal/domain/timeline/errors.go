package timeline

import "errors"

// Errors returned by timeline operations. Callers should use errors.Is.
var (
	ErrUnknownKind     = errors.New("unknown clip kind")
	ErrInvalidClip     = errors.New("invalid clip")
	ErrInvalidTimeline = errors.New("invalid timeline")
	ErrTrackNotFound   = errors.New("track not found")
	ErrClipNotFound    = errors.New("clip not found")
	ErrDuplicateClip   = errors.New("clip id already exists")
	ErrKindMismatch    = errors.New("clip kind does not match track")
	ErrOverlap         = errors.New("clip overlaps another clip on the track")
	ErrTrackNotEmpty   = errors.New("track still has clips")
	ErrNoAdjacentTrack = errors.New("no adjacent track in that direction")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToRedo   = errors.New("nothing to redo")
)
