package huggingface

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
)

// Inference defaults.
const (
	ImageSteps   = 4
	ImageTimeout = 30 * time.Second
	ASRTimeout   = 5 * time.Minute
)

// ClientConfig selects the router and models.
type ClientConfig struct {
	BaseURL    string
	ImageModel string
	ASRModel   string
}

// Client calls models on the Hugging Face inference router.
type Client struct {
	transport *Transport
	cfg       ClientConfig
	logger    *slog.Logger
}

var (
	_ generation.ImageGenerator = (*Client)(nil)
	_ generation.Transcriber    = (*Client)(nil)
)

// NewClient creates an inference client.
func NewClient(transport *Transport, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" || cfg.ImageModel == "" || cfg.ASRModel == "" {
		return nil, fmt.Errorf("%w: base url and models are required", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		transport: transport,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "huggingface")),
	}, nil
}

func (c *Client) modelURL(model string) string {
	return c.cfg.BaseURL + "/" + model
}

type imageRequest struct {
	Inputs     string          `json:"inputs"`
	Parameters imageParameters `json:"parameters"`
}

type imageParameters struct {
	NumInferenceSteps int `json:"num_inference_steps"`
}

// GenerateImage renders prompt with the configured text-to-image model and
// returns the encoded image bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, generation.ErrEmptyPrompt
	}
	log := logger.FromContextOrDefault(ctx, c.logger)

	body, err := json.Marshal(imageRequest{
		Inputs:     prompt,
		Parameters: imageParameters{NumInferenceSteps: ImageSteps},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ImageTimeout)
	defer cancel()

	log.Info("requesting image", slog.String("model", c.cfg.ImageModel), slog.Int("prompt_length", len(prompt)))

	resp, err := c.transport.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(c.cfg.ImageModel), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		log.Error("image generation failed", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("%w: empty image", generation.ErrInvalidResponse)
	}
	return img, nil
}

type asrRequest struct {
	Inputs     string        `json:"inputs"`
	Parameters asrParameters `json:"parameters"`
}

type asrParameters struct {
	ReturnTimestamps bool `json:"return_timestamps"`
}

type asrResponse struct {
	Text   string `json:"text"`
	Chunks []struct {
		Timestamp []*float64 `json:"timestamp"`
		Text      string     `json:"text"`
	} `json:"chunks"`
}

// Transcribe sends audio to the speech recognition model and returns one
// segment per timestamped chunk. A response without chunks yields a single
// segment at zero.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (generation.Transcript, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	raw, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(raw) == 0 {
		return nil, generation.ErrEmptyPrompt
	}

	body, err := json.Marshal(asrRequest{
		Inputs:     base64.StdEncoding.EncodeToString(raw),
		Parameters: asrParameters{ReturnTimestamps: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcription request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ASRTimeout)
	defer cancel()

	resp, err := c.transport.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(c.cfg.ASRModel), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		log.Error("transcription failed", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out asrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err)
	}

	segments := make([]generation.Segment, 0, len(out.Chunks))
	for _, chunk := range out.Chunks {
		start := 0.0
		if len(chunk.Timestamp) > 0 && chunk.Timestamp[0] != nil {
			start = *chunk.Timestamp[0]
		}
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		segments = append(segments, generation.Segment{Start: start, Text: chunk.Text})
	}
	if len(segments) == 0 && strings.TrimSpace(out.Text) != "" {
		segments = append(segments, generation.Segment{Start: 0, Text: out.Text})
	}

	transcript := generation.NewTranscript(segments)
	log.Info("transcription complete", slog.Int("segments", len(transcript)))
	return transcript, nil
}
