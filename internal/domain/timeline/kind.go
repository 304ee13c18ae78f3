package timeline

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the variants of Clip and the lane type of a Track.
type Kind string

// Supported kinds.
const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// Kinds lists every valid kind in display order.
var Kinds = []Kind{KindVideo, KindImage, KindText, KindAudio}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindVideo, KindImage, KindText, KindAudio:
		return true
	}
	return false
}

// IsMedia reports whether clips of this kind reference an external file.
func (k Kind) IsMedia() bool {
	return k == KindVideo || k == KindImage || k == KindAudio
}

// IsVisual reports whether clips of this kind are drawn on the stage.
func (k Kind) IsVisual() bool {
	return k == KindVideo || k == KindImage || k == KindText
}

// HasAudio reports whether clips of this kind contribute to the mix.
func (k Kind) HasAudio() bool {
	return k == KindVideo || k == KindAudio
}

func (k Kind) String() string { return string(k) }

// UnmarshalJSON rejects unknown kinds at decode time.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownKind, string(data))
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
