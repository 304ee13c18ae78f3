package generation

import (
	"context"
	"io"
)

// Script is a narration script ready for text-to-speech.
type Script struct {
	Text        string `json:"script"`
	Hook        string `json:"hook"`
	Topic       string `json:"topic,omitempty"`
	WordCount   int    `json:"word_count"`
	GeneratedBy string `json:"generated_by,omitempty"`
}

// ScriptGenerator writes a narration script about topic. duration is the
// human label chosen in the UI, for example "30 Seconds".
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, topic, duration string) (*Script, error)
}

// VoiceSynthesizer turns text into speech and writes WAV audio to w.
// promptURL optionally points at a reference voice to clone.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text, promptURL string, w io.Writer) error
}

// Transcriber returns timed segments for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (Transcript, error)
}

// SegmentOptimizer groups a transcript into visual prompts keyed by start time.
type SegmentOptimizer interface {
	Optimize(ctx context.Context, transcript Transcript) ([]TimedPrompt, error)
}

// ClipGenerator renders a short video for prompt and writes MP4 data to w.
type ClipGenerator interface {
	GenerateClip(ctx context.Context, prompt, aspectRatio string, w io.Writer) error
}

// ImageGenerator renders a still image for prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// KeywordExtractor picks a short stock-search term for every transcript
// segment, keyed by the segment start.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, transcript Transcript) ([]TimedPrompt, error)
}
