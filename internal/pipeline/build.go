package pipeline

import (
	"errors"
	"sort"

	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/miyog/miyog-engine/internal/generation"
)

// Track layout of AI pipeline renders, top to bottom.
const (
	StockTrackID     = 100
	VisualTrackID    = 101
	NarrationTrackID = 102

	// TailSeconds is how long the last segment stays on screen.
	TailSeconds = 5.0

	narrationClipID = "narration-main"
)

// ErrNoSegments is returned when the pipeline has no visuals to assemble.
var ErrNoSegments = errors.New("no visual segments")

// Segment is a generated visual starting At seconds into the narration.
// Kind is video for generated clips and image for stock fallbacks.
type Segment struct {
	At   float64
	Kind timeline.Kind
	Src  string
}

// segmentClipID names the clip that starts at at. Render assets use the
// same key.
func segmentClipID(at float64) string {
	return "clip-" + generation.FormatSeconds(at)
}

// BuildAITimeline lays segments out back to back: each one lasts until the
// next starts and the last one lasts TailSeconds. The narration, when set,
// spans the whole result. Segments sharing a start keep the first.
func BuildAITimeline(segments []Segment, narrationSrc string, fps int) (*timeline.Timeline, error) {
	sorted := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.Src != "" && s.At >= 0 {
			sorted = append(sorted, s)
		}
	}
	if len(sorted) == 0 {
		return nil, ErrNoSegments
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })

	uniq := sorted[:1]
	for _, s := range sorted[1:] {
		if s.At != uniq[len(uniq)-1].At {
			uniq = append(uniq, s)
		}
	}

	total := uniq[len(uniq)-1].At + TailSeconds
	tl := timeline.New(fps, total)
	stock := timeline.NewTrack(StockTrackID, timeline.KindImage, "Stock Images")
	visuals := timeline.NewTrack(VisualTrackID, timeline.KindVideo, "AI Visuals")

	for i, s := range uniq {
		end := total
		if i+1 < len(uniq) {
			end = uniq[i+1].At
		}
		kind := s.Kind
		if kind == "" {
			kind = timeline.KindVideo
		}
		clip := timeline.Clip{
			ID:         segmentClipID(s.At),
			Kind:       kind,
			Src:        s.Src,
			Start:      s.At,
			Duration:   end - s.At,
			Properties: timeline.DefaultProperties(),
		}
		if kind == timeline.KindImage {
			stock.Clips = append(stock.Clips, clip)
		} else {
			visuals.Clips = append(visuals.Clips, clip)
		}
	}

	if len(stock.Clips) > 0 {
		tl.Tracks = append(tl.Tracks, stock)
	}
	tl.Tracks = append(tl.Tracks, visuals)

	if narrationSrc != "" {
		narration := timeline.NewTrack(NarrationTrackID, timeline.KindAudio, "Narration")
		narration.Clips = append(narration.Clips, timeline.Clip{
			ID:         narrationClipID,
			Kind:       timeline.KindAudio,
			Src:        narrationSrc,
			Start:      0,
			Duration:   total,
			Properties: timeline.DefaultProperties(),
		})
		tl.Tracks = append(tl.Tracks, narration)
	}

	if err := tl.Validate(); err != nil {
		return nil, err
	}
	return tl, nil
}
