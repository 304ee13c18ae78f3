package timeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultTextContent is the content given to text clips created without any.
const DefaultTextContent = "New Text"

// Properties are the stage transforms of a clip. Position and size are
// percentages of the frame, with X/Y addressing the clip's centre.
type Properties struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation"`
	Color    string  `json:"color"`
	FontSize float64 `json:"fontSize"`
	Volume   float64 `json:"volume"`
}

// DefaultProperties returns the transforms applied to newly added clips.
func DefaultProperties() Properties {
	return Properties{
		X:        50,
		Y:        50,
		Width:    100,
		Height:   100,
		Opacity:  1,
		Rotation: 0,
		Color:    "#FFFFFF",
		FontSize: 60,
		Volume:   1,
	}
}

// UnmarshalJSON fills fields missing from the payload with their defaults.
func (p *Properties) UnmarshalJSON(data []byte) error {
	type plain Properties
	v := plain(DefaultProperties())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Properties(v)
	return nil
}

// IsFullFrame reports whether the clip should cover the whole frame.
func (p Properties) IsFullFrame() bool {
	return p.Width == 100 && p.Height == 100
}

// Clip is a timed element on a track. Kind selects the variant: media kinds
// (video, image, audio) carry Src/RenderSrc, text clips carry Content.
type Clip struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"type"`
	Src        string     `json:"src,omitempty"`
	RenderSrc  string     `json:"renderSrc,omitempty"`
	Content    string     `json:"content,omitempty"`
	Start      float64    `json:"start"`
	Duration   float64    `json:"duration"`
	Layer      int        `json:"layer"`
	Properties Properties `json:"properties"`
}

// UnmarshalJSON gives clips without a properties object the defaults.
func (c *Clip) UnmarshalJSON(data []byte) error {
	type plain Clip
	v := plain{Properties: DefaultProperties()}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Clip(v)
	return nil
}

// NewMediaClip builds a video, image or audio clip with default properties.
func NewMediaClip(kind Kind, src string, start, duration float64) (Clip, error) {
	if !kind.IsMedia() {
		return Clip{}, fmt.Errorf("%w: %s is not a media kind", ErrInvalidClip, kind)
	}
	c := Clip{
		ID:         NewClipID(),
		Kind:       kind,
		Src:        src,
		RenderSrc:  src,
		Start:      start,
		Duration:   duration,
		Properties: DefaultProperties(),
	}
	return c, c.Validate()
}

// NewTextClip builds a text clip. Empty content becomes DefaultTextContent.
func NewTextClip(content string, start, duration float64) (Clip, error) {
	if content == "" {
		content = DefaultTextContent
	}
	c := Clip{
		ID:         NewClipID(),
		Kind:       KindText,
		Content:    content,
		Start:      start,
		Duration:   duration,
		Properties: DefaultProperties(),
	}
	return c, c.Validate()
}

// NewClipID returns a short random identifier in the editor's format.
func NewClipID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// End is the exclusive end time of the clip.
func (c Clip) End() float64 { return c.Start + c.Duration }

// Source is the path the renderer should read, preferring RenderSrc.
func (c Clip) Source() string {
	if c.RenderSrc != "" {
		return c.RenderSrc
	}
	return c.Src
}

// Contains reports whether t falls inside [Start, End).
func (c Clip) Contains(t float64) bool {
	return t >= c.Start && t < c.End()
}

// Validate checks the clip's own fields. Placement rules are enforced by
// Track and Timeline.
func (c Clip) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidClip)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: clip %s: %q", ErrUnknownKind, c.ID, c.Kind)
	}
	if c.Start < 0 {
		return fmt.Errorf("%w: clip %s starts before zero", ErrInvalidClip, c.ID)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: clip %s has non-positive duration", ErrInvalidClip, c.ID)
	}
	if c.Kind.IsMedia() && c.Source() == "" {
		return fmt.Errorf("%w: %s clip %s has no source", ErrInvalidClip, c.Kind, c.ID)
	}
	if c.Properties.Opacity < 0 || c.Properties.Opacity > 1 {
		return fmt.Errorf("%w: clip %s opacity out of range", ErrInvalidClip, c.ID)
	}
	if c.Properties.Volume < 0 {
		return fmt.Errorf("%w: clip %s has negative volume", ErrInvalidClip, c.ID)
	}
	return nil
}

// overlapTolerance absorbs float rounding in start+duration. It is far
// below one frame at any supported frame rate.
const overlapTolerance = 1e-6

// Overlaps reports whether [aStart, aStart+aDur) and [bStart, bStart+bDur)
// intersect. Touching intervals do not overlap, including frame-snapped
// edges whose sums land a rounding error apart.
func Overlaps(aStart, aDur, bStart, bDur float64) bool {
	return bStart+bDur-aStart > overlapTolerance && aStart+aDur-bStart > overlapTolerance
}
