package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/miyog/miyog-engine/internal/config"
	"github.com/miyog/miyog-engine/internal/events"
	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/miyog/miyog-engine/internal/pipeline"
	"github.com/miyog/miyog-engine/internal/platform/ffmpeg"
	"github.com/miyog/miyog-engine/internal/platform/gemini"
	"github.com/miyog/miyog-engine/internal/platform/gradio"
	"github.com/miyog/miyog-engine/internal/platform/huggingface"
	"github.com/miyog/miyog-engine/internal/platform/pixabay"
	"github.com/miyog/miyog-engine/internal/platform/s3"
)

// providers are the external generation and search backends.
type providers struct {
	spaces    *gradio.Spaces
	inference *huggingface.Client
	stock     *pixabay.Client
	// scripts is the Script Space unless llm.provider selects Gemini.
	scripts generation.ScriptGenerator
	// keywords is nil without a Gemini key; the pipeline then falls back to
	// transcript words.
	keywords generation.KeywordExtractor
}

func newProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*providers, error) {
	hf := cfg.HuggingFace
	transport := huggingface.NewTransport(hf.Token,
		huggingface.WithLimiter(huggingface.NewLimiter(hf.RequestsPerSec)),
		huggingface.WithMaxRetries(hf.MaxRetries),
		huggingface.WithLogger(logger),
	)

	spaces, err := gradio.NewSpaces(gradio.SpaceIDs{
		Script:  hf.ScriptSpaceID,
		Voice:   hf.VoiceSpaceID,
		Video:   hf.VideoSpaceID,
		Segment: hf.SegmentSpaceID,
	}, transport, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gradio spaces: %w", err)
	}

	inference, err := huggingface.NewClient(transport, huggingface.ClientConfig{
		BaseURL:    hf.InferenceBaseURL,
		ImageModel: hf.ImageModel,
		ASRModel:   hf.ASRModel,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inference client: %w", err)
	}

	p := &providers{
		spaces:    spaces,
		inference: inference,
		stock:     pixabay.NewClient(cfg.Pixabay, nil, logger),
		scripts:   spaces,
	}

	if cfg.LLM.GeminiAPIKey != "" {
		g, err := gemini.NewGeminiGenerator(ctx, logger, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini: %w", err)
		}
		p.keywords = g
		if cfg.LLM.Provider == "gemini" {
			p.scripts = g
		}
	}
	logger.Info("generation providers initialized",
		"script_provider", cfg.LLM.Provider,
		"keywords_enabled", p.keywords != nil,
		"stock_enabled", p.stock.Configured())
	return p, nil
}

// newPipelineWorker assembles the render worker.
func newPipelineWorker(
	cfg *config.Config,
	tasks pipeline.TaskStore,
	storage s3.Storage,
	p *providers,
	progress events.ProgressPublisher,
	logger *slog.Logger,
) (*pipeline.Worker, error) {
	ffprobe := cfg.Runtime.FFprobePath
	deps := pipeline.Deps{
		Tasks:       tasks,
		Storage:     storage,
		Scripts:     p.scripts,
		Voice:       p.spaces,
		Transcriber: p.inference,
		Optimizer:   p.spaces,
		Clips:       p.spaces,
		Keywords:    p.keywords,
		Renderer:    ffmpeg.NewRunner(cfg.Runtime.FFmpegPath, logger),
		Probe: func(ctx context.Context, path string) (ffmpeg.ProbeResult, error) {
			return ffmpeg.Probe(ctx, ffprobe, path)
		},
		Progress: progress,
	}
	if p.stock.Configured() {
		deps.Stock = p.stock
	}
	return pipeline.NewWorker(deps, pipeline.Config{
		RuntimeDir:         cfg.Runtime.Dir,
		FontFile:           cfg.Runtime.FontFile,
		SegmentConcurrency: cfg.HuggingFace.SegmentConcurrency,
	}, logger)
}
