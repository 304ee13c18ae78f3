package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/miyog/miyog-engine/internal/platform/ffmpeg"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"golang.org/x/sync/errgroup"
)

// TempPathPrefix is the URL prefix under which the API serves files from the
// runtime directory. Sources using it are read from disk.
const TempPathPrefix = "/api/video/temp/"

// ErrDownloadFailed is returned when a remote asset cannot be fetched.
var ErrDownloadFailed = errors.New("asset download failed")

// fetchAssets makes every media source referenced by the visible tracks of tl
// available under dir and returns them keyed by clip id. Each distinct
// source is fetched once. Sources that cannot be fetched are logged and left
// out, so the renderer skips their clips.
func (w *Worker) fetchAssets(
	ctx context.Context,
	tl *timeline.Timeline,
	dir string,
	progress func(done, total int),
) map[string]ffmpeg.Asset {
	log := logger.FromContextOrDefault(ctx, w.logger)

	bySource := make(map[string][]timeline.Clip)
	var order []string
	for _, tr := range tl.Tracks {
		if tr.Hidden || (tr.Muted && tr.Kind == timeline.KindAudio) {
			continue
		}
		for _, c := range tr.Clips {
			src := c.Source()
			if !c.Kind.IsMedia() || src == "" {
				continue
			}
			if strings.HasPrefix(src, "blob:") {
				log.Warn("skipping browser-local source", slog.String("clip_id", c.ID))
				continue
			}
			if _, seen := bySource[src]; !seen {
				order = append(order, src)
			}
			bySource[src] = append(bySource[src], c)
		}
	}

	var (
		mu     sync.Mutex
		done   int
		assets = make(map[string]ffmpeg.Asset)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.AssetConcurrency)
	for i, src := range order {
		clips := bySource[src]
		kind := clips[0].Kind
		g.Go(func() error {
			asset, err := w.fetchAsset(gctx, src, kind, filepath.Join(dir, fmt.Sprintf("asset_%d%s", i, assetExt(src, kind))))

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				log.Warn("failed to fetch asset",
					slog.String("clip_id", clips[0].ID),
					slog.String("error", redact.Error(err)))
			} else {
				for _, c := range clips {
					assets[c.ID] = asset
				}
			}
			if progress != nil {
				progress(done, len(order))
			}
			return nil
		})
	}
	_ = g.Wait()

	return assets
}

// fetchAsset resolves one source to a local file and probes it.
func (w *Worker) fetchAsset(ctx context.Context, src string, kind timeline.Kind, dest string) (ffmpeg.Asset, error) {
	local, err := w.localize(ctx, src, dest)
	if err != nil {
		return ffmpeg.Asset{}, err
	}

	asset := ffmpeg.Asset{Path: local}
	if kind == timeline.KindImage {
		return asset, nil
	}
	probe, err := w.deps.Probe(ctx, local)
	if err != nil {
		// Unprobed audio is still mixed; unprobed video is shown silent.
		logger.FromContextOrDefault(ctx, w.logger).Warn("failed to probe asset",
			slog.String("error", redact.Error(err)))
		asset.HasAudio = kind == timeline.KindAudio
		return asset, nil
	}
	asset.Duration = probe.DurationSeconds()
	asset.HasAudio = probe.HasAudio()
	return asset, nil
}

// localize returns a local path holding src, downloading it to dest when it
// is not already on disk.
func (w *Worker) localize(ctx context.Context, src, dest string) (string, error) {
	switch {
	case strings.HasPrefix(src, TempPathPrefix):
		name := path.Clean("/" + strings.TrimPrefix(src, TempPathPrefix))
		local := filepath.Join(w.cfg.RuntimeDir, filepath.FromSlash(name))
		if _, err := os.Stat(local); err != nil {
			return "", fmt.Errorf("temp asset: %w", err)
		}
		return local, nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return dest, w.download(ctx, src, dest)
	default:
		key := strings.TrimPrefix(src, "/")
		if err := w.deps.Storage.Download(ctx, key, dest); err != nil {
			return "", fmt.Errorf("storage asset: %w", err)
		}
		return dest, nil
	}
}

// download writes the body of a GET to rawURL into dest.
func (w *Worker) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	resp, err := w.deps.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	f, err := os.Create(dest) //nolint:gosec
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	return f.Close()
}

// assetExt keeps the source's extension so ffmpeg can detect the format,
// falling back to a default per kind.
func assetExt(src string, kind timeline.Kind) string {
	p := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		p = u.Path
	}
	if ext := strings.ToLower(path.Ext(p)); ext != "" && len(ext) <= 6 {
		return ext
	}
	switch kind {
	case timeline.KindImage:
		return ".png"
	case timeline.KindAudio:
		return ".wav"
	default:
		return ".mp4"
	}
}
