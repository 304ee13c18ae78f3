package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/miyog/miyog-engine/internal/platform/ffmpeg"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/platform/s3"
)

// renderTimeline exports an editor timeline and returns the storage key of
// the result.
func (w *Worker) renderTimeline(ctx context.Context, t *domain.VideoTask, dir string, rep *reporter) (string, error) {
	tl, err := timeline.Decode(t.Timeline, t.FPS, t.Duration)
	if err != nil {
		return "", fmt.Errorf("decode timeline: %w", err)
	}
	rep.Set(ctx, 5)

	assets := w.fetchAssets(ctx, tl, dir, func(done, total int) {
		rep.Span(ctx, 5, 49, done, total)
	})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rep.Set(ctx, 50)

	width, height := domain.RenderSize(t.Resolution)
	output := filepath.Join(dir, "export.mp4")
	if err := w.render(ctx, tl, assets, ffmpeg.Options{
		Width:      width,
		Height:     height,
		FPS:        tl.FPS,
		Duration:   t.Duration,
		Background: t.BackgroundColor,
		Vignette:   t.VignetteIntensity,
		FontFile:   w.cfg.FontFile,
		WorkDir:    dir,
		Output:     output,
	}, func(f float64) {
		rep.Fraction(ctx, 50, 89, f)
	}); err != nil {
		return "", err
	}
	rep.Set(ctx, 90)

	key := s3.ExportKey()
	if _, err := w.deps.Storage.UploadFile(ctx, key, output); err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}
	return key, nil
}

// render composes tl against the fetched assets and runs ffmpeg.
func (w *Worker) render(
	ctx context.Context,
	tl *timeline.Timeline,
	assets map[string]ffmpeg.Asset,
	opts ffmpeg.Options,
	progress ffmpeg.ProgressFunc,
) error {
	cmd, err := ffmpeg.Compose(tl, assets, opts)
	if err != nil {
		return fmt.Errorf("compose render: %w", err)
	}
	logger.FromContextOrDefault(ctx, w.logger).Info("rendering video",
		slog.Int("width", opts.Width),
		slog.Int("height", opts.Height),
		slog.Float64("duration_seconds", cmd.Duration),
		slog.Int("assets", len(assets)),
		slog.Bool("has_audio", cmd.HasAudio))

	if err := w.deps.Renderer.Run(ctx, cmd, progress); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
