package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/miyog/miyog-engine/internal/platform/logger"
)

// ErrRenderFailed is returned when ffmpeg exits unsuccessfully.
var ErrRenderFailed = errors.New("ffmpeg render failed")

const stderrTail = 4096

// ProgressFunc receives the encoded share of the output, from 0 to 1.
type ProgressFunc func(fraction float64)

// Runner executes composed commands with the ffmpeg binary.
type Runner struct {
	binary string
	logger *slog.Logger
}

// NewRunner creates a Runner. An empty binary means "ffmpeg" on PATH.
func NewRunner(binary string, logger *slog.Logger) *Runner {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{
		binary: binary,
		logger: logger.With(slog.String("component", "ffmpeg_runner")),
	}
}

// Run executes cmd. progress, when set, is called as ffmpeg reports the
// encoded position; a final call with 1 follows a clean exit.
func (r *Runner) Run(ctx context.Context, cmd *Command, progress ProgressFunc) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	args := append([]string{"-progress", "pipe:1", "-nostats"}, cmd.Args...)
	proc := commandContext(ctx, r.binary, args...) //nolint:gosec
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	tail := &tailBuffer{limit: stderrTail}
	proc.Stderr = tail

	started := time.Now()
	log.Debug("starting ffmpeg",
		slog.Int("arg_count", len(args)),
		slog.Float64("duration_seconds", cmd.Duration))
	if err := proc.Start(); err != nil {
		return fmt.Errorf("%w: start: %w", ErrRenderFailed, err)
	}

	last := -1.0
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || progress == nil || cmd.Duration <= 0 {
			continue
		}
		switch key {
		// out_time_ms is reported in microseconds, like out_time_us.
		case "out_time_us", "out_time_ms":
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil || us < 0 {
				continue
			}
			fraction := min(1, float64(us)/1e6/cmd.Duration)
			if fraction > last {
				last = fraction
				progress(fraction)
			}
		}
	}
	scanErr := scanner.Err()

	if err := proc.Wait(); err != nil {
		return fmt.Errorf("%w: %w: %s", ErrRenderFailed, err, strings.TrimSpace(tail.String()))
	}
	if scanErr != nil {
		return fmt.Errorf("read ffmpeg progress: %w", scanErr)
	}
	if progress != nil && last < 1 {
		progress(1)
	}

	log.Info("ffmpeg finished",
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
