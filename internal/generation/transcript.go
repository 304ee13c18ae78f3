package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Segment is one timed piece of a transcript.
type Segment struct {
	Start float64
	Text  string
}

// Transcript is an ordered list of segments. It encodes as a JSON object
// mapping start seconds to text, keeping time order.
type Transcript []Segment

// NewTranscript rounds starts to centiseconds, trims text and sorts by start.
// Later segments with the same rounded start replace earlier ones.
func NewTranscript(segments []Segment) Transcript {
	byStart := make(map[float64]string, len(segments))
	for _, s := range segments {
		byStart[math.Round(s.Start*100)/100] = strings.TrimSpace(s.Text)
	}
	out := make(Transcript, 0, len(byStart))
	for start, text := range byStart {
		out = append(out, Segment{Start: start, Text: text})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// MarshalJSON implements json.Marshaler.
func (t Transcript) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(FormatSeconds(s.Start))
		val, err := json.Marshal(s.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatSeconds renders a timestamp key, always with a fractional part
// ("3.0", "12.48").
func FormatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// TimedPrompt is a visual prompt that starts at At seconds.
type TimedPrompt struct {
	At     float64
	Prompt string
}

// ParseTimedPrompts converts a {"<seconds>": "<prompt>"} object into prompts
// sorted by start. Empty prompts are dropped.
func ParseTimedPrompts(raw map[string]string) ([]TimedPrompt, error) {
	out := make([]TimedPrompt, 0, len(raw))
	for key, prompt := range raw {
		at, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
		if err != nil || at < 0 || math.IsNaN(at) || math.IsInf(at, 0) {
			return nil, fmt.Errorf("%w: bad timestamp %q", ErrInvalidResponse, key)
		}
		if strings.TrimSpace(prompt) == "" {
			continue
		}
		out = append(out, TimedPrompt{At: at, Prompt: prompt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out, nil
}

// FallbackKeywords uses the last word of each segment as its search term.
func FallbackKeywords(transcript Transcript) []TimedPrompt {
	out := make([]TimedPrompt, 0, len(transcript))
	for _, s := range transcript {
		words := strings.Fields(s.Text)
		if len(words) == 0 {
			continue
		}
		term := strings.TrimFunc(words[len(words)-1], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if term == "" {
			continue
		}
		out = append(out, TimedPrompt{At: s.Start, Prompt: term})
	}
	return out
}
