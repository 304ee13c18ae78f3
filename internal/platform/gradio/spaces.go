package gradio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/miyog/miyog-engine/internal/platform/huggingface"
)

// Endpoint names exposed by the pipeline Spaces.
const (
	apiGenerateScript  = "/generate_script"
	apiGenerateTTS     = "/generate_tts"
	apiPredict         = "/predict"
	apiProcessTimeline = "/process_timeline"

	// DefaultAspectRatio is used for generated clips.
	DefaultAspectRatio = "16:9"
)

// SpaceIDs names the Spaces used by the pipeline.
type SpaceIDs struct {
	Script  string
	Voice   string
	Video   string
	Segment string
}

// Spaces adapts the pipeline Spaces to the generation interfaces.
type Spaces struct {
	ids     SpaceIDs
	script  *Client
	voice   *Client
	video   *Client
	segment *Client
}

var (
	_ generation.ScriptGenerator  = (*Spaces)(nil)
	_ generation.VoiceSynthesizer = (*Spaces)(nil)
	_ generation.ClipGenerator    = (*Spaces)(nil)
	_ generation.SegmentOptimizer = (*Spaces)(nil)
)

// NewSpaces builds clients for every Space sharing one transport.
func NewSpaces(ids SpaceIDs, transport *huggingface.Transport, logger *slog.Logger) (*Spaces, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport cannot be nil", generation.ErrInvalidConfig)
	}
	if ids.Script == "" || ids.Voice == "" || ids.Video == "" || ids.Segment == "" {
		return nil, fmt.Errorf("%w: every space id is required", generation.ErrInvalidConfig)
	}
	return &Spaces{
		ids:     ids,
		script:  NewClient(ids.Script, transport, logger),
		voice:   NewClient(ids.Voice, transport, logger),
		video:   NewClient(ids.Video, transport, logger),
		segment: NewClient(ids.Segment, transport, logger),
	}, nil
}

func firstString(outputs []json.RawMessage) (string, error) {
	if len(outputs) == 0 {
		return "", fmt.Errorf("%w: no outputs", generation.ErrInvalidResponse)
	}
	var s string
	if err := json.Unmarshal(outputs[0], &s); err != nil {
		return "", fmt.Errorf("%w: expected text output", generation.ErrInvalidResponse)
	}
	return s, nil
}

// GenerateScript asks the script Space for narration about topic.
func (s *Spaces) GenerateScript(ctx context.Context, topic, duration string) (*generation.Script, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, generation.ErrEmptyPrompt
	}
	outputs, err := s.script.Call(ctx, apiGenerateScript,
		topic, generation.MaxTokensFor(duration), generation.DefaultTemperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}
	raw, err := firstString(outputs)
	if err != nil {
		return nil, err
	}
	return generation.NewScript(topic, raw, "huggingface/"+s.ids.Script), nil
}

// Synthesize reads text aloud, optionally cloning the voice at promptURL.
func (s *Spaces) Synthesize(ctx context.Context, text, promptURL string, w io.Writer) error {
	if strings.TrimSpace(text) == "" {
		return generation.ErrEmptyPrompt
	}
	var prompt any
	if promptURL != "" {
		prompt = FileInput(promptURL)
	}
	outputs, err := s.voice.Call(ctx, apiGenerateTTS, text, prompt)
	if err != nil {
		return fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}
	if len(outputs) == 0 {
		return fmt.Errorf("%w: no audio output", generation.ErrInvalidResponse)
	}
	return s.voice.Download(ctx, outputs[0], w)
}

// GenerateClip renders a short video for prompt.
func (s *Spaces) GenerateClip(ctx context.Context, prompt, aspectRatio string, w io.Writer) error {
	if strings.TrimSpace(prompt) == "" {
		return generation.ErrEmptyPrompt
	}
	if aspectRatio == "" {
		aspectRatio = DefaultAspectRatio
	}
	outputs, err := s.video.Call(ctx, apiPredict, prompt, aspectRatio)
	if err != nil {
		return fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}
	if len(outputs) == 0 {
		return fmt.Errorf("%w: no video output", generation.ErrInvalidResponse)
	}
	return s.video.Download(ctx, outputs[0], w)
}

// Optimize sends the transcript to the segment Space, which answers with a
// JSON object of visual prompts keyed by start time.
func (s *Spaces) Optimize(ctx context.Context, transcript generation.Transcript) ([]generation.TimedPrompt, error) {
	input, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript: %w", err)
	}
	outputs, err := s.segment.Call(ctx, apiProcessTimeline, string(input))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}

	var raw map[string]string
	if len(outputs) > 0 && json.Unmarshal(outputs[0], &raw) == nil {
		return generation.ParseTimedPrompts(raw)
	}
	text, err := firstString(outputs)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: segments are not a json object", generation.ErrInvalidResponse)
	}
	return generation.ParseTimedPrompts(raw)
}
