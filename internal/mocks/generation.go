package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/miyog/miyog-engine/internal/generation"
)

// MockScriptGenerator implements generation.ScriptGenerator for testing
type MockScriptGenerator struct {
	GenerateScriptFn func(ctx context.Context, topic, duration string) (*generation.Script, error)

	// Default response values
	Script *generation.Script
	Err    error

	mu     sync.Mutex
	Topics []string
}

// GenerateScript implements generation.ScriptGenerator
func (m *MockScriptGenerator) GenerateScript(ctx context.Context, topic, duration string) (*generation.Script, error) {
	m.mu.Lock()
	m.Topics = append(m.Topics, topic)
	m.mu.Unlock()

	if m.GenerateScriptFn != nil {
		return m.GenerateScriptFn(ctx, topic, duration)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Script != nil {
		return m.Script, nil
	}
	return generation.NewScript(topic, "A short narration about "+topic+".", "mock"), nil
}

// Calls returns how many scripts were requested.
func (m *MockScriptGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Topics)
}

// MockVoiceSynthesizer implements generation.VoiceSynthesizer for testing
type MockVoiceSynthesizer struct {
	SynthesizeFn func(ctx context.Context, text, promptURL string, w io.Writer) error

	// Audio is written to the destination when SynthesizeFn is nil.
	Audio []byte
	Err   error

	mu    sync.Mutex
	Texts []string
}

// Synthesize implements generation.VoiceSynthesizer
func (m *MockVoiceSynthesizer) Synthesize(ctx context.Context, text, promptURL string, w io.Writer) error {
	m.mu.Lock()
	m.Texts = append(m.Texts, text)
	m.mu.Unlock()

	if m.SynthesizeFn != nil {
		return m.SynthesizeFn(ctx, text, promptURL, w)
	}
	if m.Err != nil {
		return m.Err
	}
	audio := m.Audio
	if audio == nil {
		audio = []byte("RIFF-mock-wav")
	}
	_, err := w.Write(audio)
	return err
}

// MockTranscriber implements generation.Transcriber for testing
type MockTranscriber struct {
	TranscribeFn func(ctx context.Context, audio io.Reader) (generation.Transcript, error)

	Transcript generation.Transcript
	Err        error
}

// Transcribe implements generation.Transcriber
func (m *MockTranscriber) Transcribe(ctx context.Context, audio io.Reader) (generation.Transcript, error) {
	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, audio)
	}
	return m.Transcript, m.Err
}

// MockSegmentOptimizer implements generation.SegmentOptimizer for testing
type MockSegmentOptimizer struct {
	OptimizeFn func(ctx context.Context, transcript generation.Transcript) ([]generation.TimedPrompt, error)

	Prompts []generation.TimedPrompt
	Err     error
}

// Optimize implements generation.SegmentOptimizer
func (m *MockSegmentOptimizer) Optimize(
	ctx context.Context,
	transcript generation.Transcript,
) ([]generation.TimedPrompt, error) {
	if m.OptimizeFn != nil {
		return m.OptimizeFn(ctx, transcript)
	}
	return m.Prompts, m.Err
}

// MockClipGenerator implements generation.ClipGenerator for testing. It is
// safe for concurrent use.
type MockClipGenerator struct {
	GenerateClipFn func(ctx context.Context, prompt, aspectRatio string, w io.Writer) error

	// Clip is written to the destination when GenerateClipFn is nil.
	Clip []byte
	Err  error

	mu      sync.Mutex
	Prompts []string
}

// GenerateClip implements generation.ClipGenerator
func (m *MockClipGenerator) GenerateClip(ctx context.Context, prompt, aspectRatio string, w io.Writer) error {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.GenerateClipFn != nil {
		return m.GenerateClipFn(ctx, prompt, aspectRatio, w)
	}
	if m.Err != nil {
		return m.Err
	}
	clip := m.Clip
	if clip == nil {
		clip = []byte("mp4-" + prompt)
	}
	_, err := w.Write(clip)
	return err
}

// Calls returns how many clips were requested.
func (m *MockClipGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// MockImageGenerator implements generation.ImageGenerator for testing
type MockImageGenerator struct {
	GenerateImageFn func(ctx context.Context, prompt string) ([]byte, error)

	Image []byte
	Err   error
}

// GenerateImage implements generation.ImageGenerator
func (m *MockImageGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if m.GenerateImageFn != nil {
		return m.GenerateImageFn(ctx, prompt)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Image == nil {
		return []byte("\x89PNG-mock"), nil
	}
	return m.Image, nil
}

// MockKeywordExtractor implements generation.KeywordExtractor for testing
type MockKeywordExtractor struct {
	ExtractKeywordsFn func(ctx context.Context, transcript generation.Transcript) ([]generation.TimedPrompt, error)

	Keywords []generation.TimedPrompt
	Err      error
}

// ExtractKeywords implements generation.KeywordExtractor
func (m *MockKeywordExtractor) ExtractKeywords(
	ctx context.Context,
	transcript generation.Transcript,
) ([]generation.TimedPrompt, error) {
	if m.ExtractKeywordsFn != nil {
		return m.ExtractKeywordsFn(ctx, transcript)
	}
	return m.Keywords, m.Err
}

var (
	_ generation.ScriptGenerator  = (*MockScriptGenerator)(nil)
	_ generation.VoiceSynthesizer = (*MockVoiceSynthesizer)(nil)
	_ generation.Transcriber      = (*MockTranscriber)(nil)
	_ generation.SegmentOptimizer = (*MockSegmentOptimizer)(nil)
	_ generation.ClipGenerator    = (*MockClipGenerator)(nil)
	_ generation.ImageGenerator   = (*MockImageGenerator)(nil)
	_ generation.KeywordExtractor = (*MockKeywordExtractor)(nil)
)
