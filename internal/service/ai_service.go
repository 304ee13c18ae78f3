package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/miyog/miyog-engine/internal/metrics"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/platform/pixabay"
	"github.com/miyog/miyog-engine/internal/platform/s3"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/store"
)

// CreditActionImage labels credits spent on generated images.
const CreditActionImage = "image"

// Voice is an entry of the narration voice catalogue.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var voiceCatalogue = []Voice{
	{ID: "af_heart", Name: "Heart (Female, US)"},
	{ID: "af_bella", Name: "Bella (Female, US)"},
	{ID: "af_sarah", Name: "Sarah (Female, US)"},
	{ID: "af_nicole", Name: "Nicole (Female, US)"},
	{ID: "af_sky", Name: "Sky (Female, US)"},
	{ID: "am_adam", Name: "Adam (Male, US)"},
	{ID: "am_michael", Name: "Michael (Male, US)"},
	{ID: "bf_emma", Name: "Emma (Female, UK)"},
	{ID: "bf_isabella", Name: "Isabella (Female, UK)"},
	{ID: "bm_george", Name: "George (Male, UK)"},
	{ID: "bm_lewis", Name: "Lewis (Male, UK)"},
}

// GeneratedImage is the result of a paid image generation.
type GeneratedImage struct {
	URL              string
	Key              string
	RemainingCredits int
}

// GeneratedMedia is a stored generation result.
type GeneratedMedia struct {
	URL string
	Key string
}

// AssetSearcher finds stock media.
type AssetSearcher interface {
	Search(ctx context.Context, query string, page int) ([]pixabay.Asset, error)
}

// AIService exposes the on-demand generation endpoints of the editor.
type AIService interface {
	GenerateScript(ctx context.Context, topic, duration string) (*generation.Script, error)
	GenerateImage(ctx context.Context, userID uuid.UUID, prompt string) (*GeneratedImage, error)
	GenerateVideo(ctx context.Context, userID uuid.UUID, prompt, aspectRatio string) (*GeneratedMedia, error)
	GenerateVoice(ctx context.Context, text, promptURL string) (*GeneratedMedia, error)
	Voices() []Voice
	SearchAssets(ctx context.Context, query string, page int) ([]pixabay.Asset, error)
}

// AIServiceDeps groups the collaborators of the AI service. Assets may be
// nil when stock search is not configured.
type AIServiceDeps struct {
	Tx      TxRunner
	Users   store.UserStore
	Storage s3.Storage
	Scripts generation.ScriptGenerator
	Images  generation.ImageGenerator
	Clips   generation.ClipGenerator
	Voice   generation.VoiceSynthesizer
	Assets  AssetSearcher
	Metrics *metrics.Metrics
}

type aiServiceImpl struct {
	deps   AIServiceDeps
	logger *slog.Logger
}

var _ AIService = (*aiServiceImpl)(nil)

// NewAIService creates a new AIService.
func NewAIService(deps AIServiceDeps, logger *slog.Logger) (AIService, error) {
	switch {
	case deps.Tx == nil:
		return nil, errors.New("tx runner cannot be nil")
	case deps.Users == nil:
		return nil, errors.New("user store cannot be nil")
	case deps.Storage == nil:
		return nil, errors.New("storage cannot be nil")
	case deps.Scripts == nil, deps.Images == nil, deps.Clips == nil, deps.Voice == nil:
		return nil, errors.New("generators cannot be nil")
	}
	return &aiServiceImpl{
		deps:   deps,
		logger: logger.With("component", "ai_service"),
	}, nil
}

func (s *aiServiceImpl) GenerateScript(ctx context.Context, topic, duration string) (*generation.Script, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidInput)
	}
	if strings.TrimSpace(duration) == "" {
		duration = generation.DefaultDuration
	}

	script, err := s.deps.Scripts.GenerateScript(ctx, topic, duration)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("script generation failed",
			slog.String("error", redact.Error(err)),
			slog.String("duration", duration))
		return nil, NewServiceError("ai", "generate_script", err)
	}
	return script, nil
}

// GenerateImage charges domain.ImageCost up front and refunds it when the
// image cannot be produced or stored.
func (s *aiServiceImpl) GenerateImage(ctx context.Context, userID uuid.UUID, prompt string) (*GeneratedImage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}

	var remaining int
	err := s.deps.Tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		remaining, err = s.deps.Users.WithTx(tx).DebitCredits(ctx, userID, domain.ImageCost)
		return err
	})
	if err != nil {
		return nil, mapError("ai", "generate_image", err)
	}

	result, err := s.produceImage(ctx, userID, prompt)
	if err != nil {
		log.Error("image generation failed, refunding", slog.String("error", redact.Error(err)))
		if _, refundErr := s.deps.Users.AddCredits(context.WithoutCancel(ctx), userID, domain.ImageCost); refundErr != nil {
			log.Error("failed to refund image credits", slog.String("error", redact.Error(refundErr)))
		}
		return nil, NewServiceError("ai", "generate_image", err)
	}
	s.deps.Metrics.AddCreditsDebited(CreditActionImage, domain.ImageCost)

	result.RemainingCredits = remaining
	return result, nil
}

func (s *aiServiceImpl) produceImage(ctx context.Context, userID uuid.UUID, prompt string) (*GeneratedImage, error) {
	data, err := s.deps.Images.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	key, err := s.deps.Storage.Upload(ctx, s3.GeneratedImageKey(userID), bytes.NewReader(data), "image/png")
	if err != nil {
		return nil, err
	}
	url, err := s.deps.Storage.SignedURL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &GeneratedImage{URL: url, Key: key}, nil
}

func (s *aiServiceImpl) GenerateVideo(
	ctx context.Context,
	userID uuid.UUID,
	prompt, aspectRatio string,
) (*GeneratedMedia, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	var buf bytes.Buffer
	if err := s.deps.Clips.GenerateClip(ctx, prompt, aspectRatio, &buf); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("video generation failed",
			slog.String("error", redact.Error(err)))
		return nil, NewServiceError("ai", "generate_video", err)
	}
	return s.store(ctx, "generate_video", s3.GeneratedVideoKey(userID), &buf, "video/mp4")
}

func (s *aiServiceImpl) GenerateVoice(ctx context.Context, text, promptURL string) (*GeneratedMedia, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	var buf bytes.Buffer
	if err := s.deps.Voice.Synthesize(ctx, text, promptURL, &buf); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("voice synthesis failed",
			slog.String("error", redact.Error(err)))
		return nil, NewServiceError("ai", "generate_voice", err)
	}
	return s.store(ctx, "generate_voice", s3.VoiceKey(), &buf, "audio/wav")
}

func (s *aiServiceImpl) store(ctx context.Context, op, key string, body *bytes.Buffer, contentType string) (*GeneratedMedia, error) {
	key, err := s.deps.Storage.Upload(ctx, key, body, contentType)
	if err != nil {
		return nil, NewServiceError("ai", op, err)
	}
	url, err := s.deps.Storage.SignedURL(ctx, key)
	if err != nil {
		return nil, NewServiceError("ai", op, err)
	}
	return &GeneratedMedia{URL: url, Key: key}, nil
}

func (s *aiServiceImpl) Voices() []Voice {
	return append([]Voice(nil), voiceCatalogue...)
}

func (s *aiServiceImpl) SearchAssets(ctx context.Context, query string, page int) ([]pixabay.Asset, error) {
	if s.deps.Assets == nil {
		return nil, pixabay.ErrNotConfigured
	}
	assets, err := s.deps.Assets.Search(ctx, query, page)
	if err != nil {
		if !errors.Is(err, pixabay.ErrNotConfigured) {
			logger.FromContextOrDefault(ctx, s.logger).Warn("asset search failed",
				slog.String("error", redact.Error(err)))
		}
		return nil, err
	}
	return assets, nil
}
