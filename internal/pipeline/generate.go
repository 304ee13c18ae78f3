package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/miyog/miyog-engine/internal/platform/ffmpeg"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/platform/s3"
	"github.com/miyog/miyog-engine/internal/redact"
	"golang.org/x/sync/errgroup"
)

// ClipAspectRatio is requested for every generated segment clip.
const ClipAspectRatio = "16:9"

var (
	// ErrEmptyTranscript is returned when transcription yields no segments.
	ErrEmptyTranscript = errors.New("transcription returned no segments")
	// ErrEmptyScript is returned when there is nothing to narrate.
	ErrEmptyScript = errors.New("script is empty")
)

// narration is the voice track of an AI render.
type narration struct {
	path string
	src  string
}

// generate runs the AI pipeline for t and returns the storage key of the
// final render.
func (w *Worker) generate(ctx context.Context, t *domain.VideoTask, dir string, rep *reporter) (string, error) {
	log := logger.FromContextOrDefault(ctx, w.logger)
	rep.Set(ctx, 5)

	voice, err := w.narrate(ctx, t, dir, rep)
	if err != nil {
		return "", err
	}
	rep.Set(ctx, 25)

	transcript, err := w.transcribe(ctx, voice.path)
	if err != nil {
		return "", err
	}
	rep.Set(ctx, 40)

	prompts, err := w.deps.Optimizer.Optimize(ctx, transcript)
	if err != nil {
		return "", fmt.Errorf("optimize segments: %w", err)
	}
	if len(prompts) == 0 {
		return "", ErrNoSegments
	}
	log.Info("segments planned", slog.Int("segments", len(prompts)))

	segments, assets := w.generateSegments(ctx, prompts, transcript, dir, rep)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rep.Set(ctx, 75)

	tl, err := BuildAITimeline(segments, voice.src, t.FPS)
	if err != nil {
		return "", fmt.Errorf("build timeline: %w", err)
	}
	assets[narrationClipID] = w.localAsset(ctx, voice.path, timeline.KindAudio)
	rep.Set(ctx, 76)

	width, height := aiRenderSize(t.Resolution)
	output := filepath.Join(dir, "final.mp4")
	if err := w.render(ctx, tl, assets, ffmpeg.Options{
		Width:      width,
		Height:     height,
		FPS:        tl.FPS,
		Background: t.BackgroundColor,
		Vignette:   t.VignetteIntensity,
		FontFile:   w.cfg.FontFile,
		WorkDir:    dir,
		Output:     output,
	}, func(f float64) {
		rep.Fraction(ctx, 76, 95, f)
	}); err != nil {
		return "", err
	}

	key := s3.FinalKey()
	if _, err := w.deps.Storage.UploadFile(ctx, key, output); err != nil {
		return "", fmt.Errorf("upload render: %w", err)
	}
	return key, nil
}

// narrate produces the voice track. An uploaded audio track is used as is;
// otherwise the script is generated when missing and synthesised.
func (w *Worker) narrate(ctx context.Context, t *domain.VideoTask, dir string, rep *reporter) (narration, error) {
	if src := t.Files.AudioTrack; src != "" {
		path, err := w.localize(ctx, src, filepath.Join(dir, "narration"+assetExt(src, timeline.KindAudio)))
		if err != nil {
			return narration{}, fmt.Errorf("fetch audio track: %w", err)
		}
		rep.Set(ctx, 10)
		return narration{path: path, src: src}, nil
	}

	script := strings.TrimSpace(t.Script)
	if script == "" {
		topic := strings.TrimSpace(t.Title)
		if topic == "" {
			topic = strings.TrimSpace(t.Description)
		}
		generated, err := w.deps.Scripts.GenerateScript(ctx, topic, durationLabel(t.Duration))
		if err != nil {
			return narration{}, fmt.Errorf("generate script: %w", err)
		}
		script = strings.TrimSpace(generated.Text)
		if script == "" {
			return narration{}, ErrEmptyScript
		}
		if err := w.deps.Tasks.SetScript(ctx, t.ID, script); err != nil {
			return narration{}, fmt.Errorf("save script: %w", err)
		}
	}
	rep.Set(ctx, 10)

	path := filepath.Join(dir, "narration.wav")
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return narration{}, fmt.Errorf("create narration file: %w", err)
	}
	if err := w.deps.Voice.Synthesize(ctx, script, "", f); err != nil {
		_ = f.Close()
		return narration{}, fmt.Errorf("synthesize voice: %w", err)
	}
	if err := f.Close(); err != nil {
		return narration{}, fmt.Errorf("write narration: %w", err)
	}

	key := s3.VoiceKey()
	if _, err := w.deps.Storage.UploadFile(ctx, key, path); err != nil {
		return narration{}, fmt.Errorf("upload voice: %w", err)
	}
	return narration{path: path, src: key}, nil
}

func (w *Worker) transcribe(ctx context.Context, path string) (generation.Transcript, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("open narration: %w", err)
	}
	defer func() { _ = f.Close() }()

	transcript, err := w.deps.Transcriber.Transcribe(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	if len(transcript) == 0 {
		return nil, ErrEmptyTranscript
	}
	return transcript, nil
}

// generateSegments renders a clip per prompt with bounded concurrency.
// A failed clip is replaced by a stock image when a stock source is
// configured and dropped otherwise.
func (w *Worker) generateSegments(
	ctx context.Context,
	prompts []generation.TimedPrompt,
	transcript generation.Transcript,
	dir string,
	rep *reporter,
) ([]Segment, map[string]ffmpeg.Asset) {
	log := logger.FromContextOrDefault(ctx, w.logger)
	prompts = uniqueStarts(prompts)

	var (
		mu       sync.Mutex
		done     int
		segments []Segment
		assets   = make(map[string]ffmpeg.Asset)
	)
	keywords := sync.OnceValue(func() []generation.TimedPrompt {
		return w.keywords(ctx, transcript)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.SegmentConcurrency)
	for i, p := range prompts {
		g.Go(func() error {
			seg, asset, err := w.generateSegment(gctx, i, p, dir)
			if err != nil {
				log.Warn("segment clip failed",
					slog.Float64("at", p.At),
					slog.String("error", redact.Error(err)))
				seg, asset, err = w.stockSegment(gctx, i, p.At, keywords, dir)
				if err != nil {
					log.Warn("dropping segment",
						slog.Float64("at", p.At),
						slog.String("error", redact.Error(err)))
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				segments = append(segments, seg)
				assets[segmentClipID(seg.At)] = asset
			}
			done++
			rep.Span(ctx, 40, 75, done, len(prompts))
			return nil
		})
	}
	_ = g.Wait()

	return segments, assets
}

// uniqueStarts keeps the first prompt for each start time. Assets are keyed
// by start, so a duplicate would race its twin for the same clip.
func uniqueStarts(prompts []generation.TimedPrompt) []generation.TimedPrompt {
	seen := make(map[string]bool, len(prompts))
	out := make([]generation.TimedPrompt, 0, len(prompts))
	for _, p := range prompts {
		id := segmentClipID(p.At)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, p)
	}
	return out
}

func (w *Worker) generateSegment(ctx context.Context, i int, p generation.TimedPrompt, dir string) (Segment, ffmpeg.Asset, error) {
	path := filepath.Join(dir, fmt.Sprintf("segment_%d.mp4", i))
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return Segment{}, ffmpeg.Asset{}, err
	}
	if err := w.deps.Clips.GenerateClip(ctx, p.Prompt, ClipAspectRatio, f); err != nil {
		_ = f.Close()
		return Segment{}, ffmpeg.Asset{}, err
	}
	if err := f.Close(); err != nil {
		return Segment{}, ffmpeg.Asset{}, err
	}

	key := s3.SegmentKey()
	if _, err := w.deps.Storage.UploadFile(ctx, key, path); err != nil {
		return Segment{}, ffmpeg.Asset{}, fmt.Errorf("upload segment: %w", err)
	}
	return Segment{At: p.At, Kind: timeline.KindVideo, Src: key}, w.localAsset(ctx, path, timeline.KindVideo), nil
}

// stockSegment finds a stock image for the narration around at.
func (w *Worker) stockSegment(
	ctx context.Context,
	i int,
	at float64,
	keywords func() []generation.TimedPrompt,
	dir string,
) (Segment, ffmpeg.Asset, error) {
	if w.deps.Stock == nil {
		return Segment{}, ffmpeg.Asset{}, errors.New("no stock image source configured")
	}
	query := keywordAt(keywords(), at)
	if query == "" {
		return Segment{}, ffmpeg.Asset{}, errors.New("no keyword for segment")
	}
	url, err := w.deps.Stock.FirstImage(ctx, query)
	if err != nil {
		return Segment{}, ffmpeg.Asset{}, fmt.Errorf("stock search %q: %w", query, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("stock_%d%s", i, assetExt(url, timeline.KindImage)))
	if err := w.download(ctx, url, path); err != nil {
		return Segment{}, ffmpeg.Asset{}, err
	}
	return Segment{At: at, Kind: timeline.KindImage, Src: url}, ffmpeg.Asset{Path: path}, nil
}

// keywords asks the extractor for search terms, falling back to the last
// word of every transcript segment.
func (w *Worker) keywords(ctx context.Context, transcript generation.Transcript) []generation.TimedPrompt {
	if w.deps.Keywords != nil {
		kw, err := w.deps.Keywords.ExtractKeywords(ctx, transcript)
		if err == nil && len(kw) > 0 {
			sorted := slices.Clone(kw)
			sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
			return sorted
		}
		if err != nil {
			logger.FromContextOrDefault(ctx, w.logger).Warn("keyword extraction failed",
				slog.String("error", redact.Error(err)))
		}
	}
	return generation.FallbackKeywords(transcript)
}

// localAsset probes a file produced during the run.
func (w *Worker) localAsset(ctx context.Context, path string, kind timeline.Kind) ffmpeg.Asset {
	asset := ffmpeg.Asset{Path: path, HasAudio: kind == timeline.KindAudio}
	probe, err := w.deps.Probe(ctx, path)
	if err != nil {
		return asset
	}
	asset.Duration = probe.DurationSeconds()
	asset.HasAudio = probe.HasAudio()
	return asset
}

// keywordAt returns the term of the last keyword starting at or before at,
// or the first keyword when all start later.
func keywordAt(keywords []generation.TimedPrompt, at float64) string {
	if len(keywords) == 0 {
		return ""
	}
	term := keywords[0].Prompt
	for _, k := range keywords {
		if k.At > at {
			break
		}
		term = k.Prompt
	}
	return strings.TrimSpace(term)
}

// durationLabel renders a task duration the way the script providers expect.
func durationLabel(seconds float64) string {
	if seconds <= 0 {
		return generation.DefaultDuration
	}
	return fmt.Sprintf("%d Seconds", int(seconds))
}

// aiRenderSize renders portrait and unset resolutions as landscape 1920x1080,
// matching the clips the video space produces.
func aiRenderSize(resolution string) (int, int) {
	if r := strings.TrimSpace(resolution); r == "" || r == domain.DefaultResolution {
		return domain.DefaultRenderWidth, domain.DefaultRenderHeight
	}
	return domain.RenderSize(resolution)
}
