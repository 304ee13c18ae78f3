package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/miyog/miyog-engine/internal/config"
	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

// DefaultModel is used when the configuration names no model.
const DefaultModel = "gemini-2.5-flash"

// GeminiGenerator writes scripts and picks stock keywords with Gemini.
type GeminiGenerator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// models sends generate-content requests
	models contentGenerator

	// model is the name of the Gemini model to use
	model string

	maxRetries uint64
	baseDelay  time.Duration
}

var (
	_ generation.ScriptGenerator  = (*GeminiGenerator)(nil)
	_ generation.KeywordExtractor = (*GeminiGenerator)(nil)
)

// NewGeminiGenerator creates a generator backed by the Gemini API.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %w", generation.ErrInvalidConfig, err)
	}

	return newGenerator(client.Models, logger, cfg)
}

func newGenerator(models contentGenerator, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: client cannot be nil", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	model := cfg.ModelName
	if model == "" {
		model = DefaultModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	delay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if delay <= 0 {
		delay = 2 * time.Second
	}

	return &GeminiGenerator{
		logger:     logger.With(slog.String("component", "gemini"), slog.String("model", model)),
		models:     models,
		model:      model,
		maxRetries: uint64(maxRetries),
		baseDelay:  delay,
	}, nil
}

// GenerateScript writes narration about topic sized for the duration label.
func (g *GeminiGenerator) GenerateScript(ctx context.Context, topic, duration string) (*generation.Script, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if duration == "" {
		duration = generation.DefaultDuration
	}

	prompt, err := render(scriptTemplate, scriptPromptData{
		Duration:    duration,
		Topic:       topic,
		TargetWords: generation.TargetWords(duration),
	})
	if err != nil {
		return nil, err
	}

	text, err := g.callWithRetry(ctx, prompt, "")
	if err != nil {
		return nil, err
	}

	text = strings.NewReplacer("Hook:", "", "Narrator:", "").Replace(text)
	script := generation.NewScript(topic, text, "models/"+g.model)
	script.Hook = "Let's talk about " + topic
	return script, nil
}

// ExtractKeywords asks for a visual search term per segment. When the model
// fails or answers with something unusable, the last word of each segment
// is used instead.
func (g *GeminiGenerator) ExtractKeywords(ctx context.Context, transcript generation.Transcript) ([]generation.TimedPrompt, error) {
	if len(transcript) == 0 {
		return nil, nil
	}
	log := logger.FromContextOrDefault(ctx, g.logger)

	segments, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript: %w", err)
	}
	prompt, err := render(keywordTemplate, keywordPromptData{Segments: string(segments)})
	if err != nil {
		return nil, err
	}

	text, err := g.callWithRetry(ctx, prompt, "application/json")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("keyword extraction failed, using fallback", slog.String("error", redact.Error(err)))
		return generation.FallbackKeywords(transcript), nil
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		log.Warn("keyword response is not a json object, using fallback")
		return generation.FallbackKeywords(transcript), nil
	}
	keywords, err := generation.ParseTimedPrompts(raw)
	if err != nil || len(keywords) == 0 {
		return generation.FallbackKeywords(transcript), nil
	}
	return keywords, nil
}

// callWithRetry sends prompt and returns the response text. Transport errors
// are retried; blocked or empty responses are not.
func (g *GeminiGenerator) callWithRetry(ctx context.Context, prompt, mimeType string) (string, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.9),
		ResponseMIMEType: mimeType,
	}

	backoff := retry.NewExponential(g.baseDelay)
	backoff = retry.WithJitterPercent(25, backoff)
	backoff = retry.WithMaxRetries(g.maxRetries, backoff)

	attempt := 0
	var text string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("Gemini API call failed",
				slog.Int("attempt", attempt),
				slog.String("error", redact.Error(err)))
			return retry.RetryableError(fmt.Errorf("%w: %w", generation.ErrTransientFailure, err))
		}

		out, err := responseText(resp)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", generation.ErrTransientFailure, err)
		}
		log.Error("Gemini generation failed",
			slog.Int("attempts", attempt),
			slog.String("error", redact.Error(err)))
		return "", err
	}

	log.Debug("Gemini API call successful", slog.Int("attempt", attempt), slog.Int("response_length", len(text)))
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return text, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// stripCodeFence removes a surrounding ``` block if the model added one.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
