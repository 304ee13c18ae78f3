package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// ErrProbeFailed is returned when ffprobe cannot inspect a file.
var ErrProbeFailed = errors.New("ffprobe failed")

// Stream describes one stream reported by ffprobe.
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

// Format describes the container reported by ffprobe.
type Format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// ProbeResult is the decoded ffprobe JSON output.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// DurationSeconds returns the container duration, falling back to the
// longest stream when the container reports none.
func (r ProbeResult) DurationSeconds() float64 {
	if d := parseSeconds(r.Format.Duration); d > 0 {
		return d
	}
	var longest float64
	for _, s := range r.Streams {
		if d := parseSeconds(s.Duration); d > longest {
			longest = d
		}
	}
	return longest
}

// HasAudio reports whether the file carries at least one audio stream.
func (r ProbeResult) HasAudio() bool {
	for _, s := range r.Streams {
		if s.CodecType == "audio" {
			return true
		}
	}
	return false
}

// VideoSize returns the dimensions of the first video stream.
func (r ProbeResult) VideoSize() (int, int, bool) {
	for _, s := range r.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, true
		}
	}
	return 0, 0, false
}

// Probe runs ffprobe against path.
func Probe(ctx context.Context, binary, path string) (ProbeResult, error) {
	if binary == "" {
		binary = "ffprobe"
	}
	args := []string{
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	}
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("%w: %s: %w: %s", ErrProbeFailed, path, err, strings.TrimSpace(stderr.String()))
	}

	var result ProbeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return ProbeResult{}, fmt.Errorf("%w: parse output: %w", ErrProbeFailed, err)
	}
	return result, nil
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
