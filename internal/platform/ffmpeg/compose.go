package ffmpeg

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/miyog/miyog-engine/internal/domain/timeline"
)

// Rendering defaults.
const (
	DefaultBackground = "#000000"
	DefaultFont       = "Liberation Sans"
	DefaultPreset     = "ultrafast"

	// captionWidth is the share of the frame width a text clip may span
	// before it wraps.
	captionWidth = 0.8
	// glyphAspect approximates the advance of one glyph relative to the font size.
	glyphAspect = 0.55
)

var (
	// ErrEmptyTimeline is returned when there is nothing with a positive
	// duration to render.
	ErrEmptyTimeline = errors.New("timeline has nothing to render")

	// ErrInvalidOptions is returned for unusable output settings.
	ErrInvalidOptions = errors.New("invalid render options")
)

// Asset is the local file a media clip resolves to. Duration is zero when
// unknown.
type Asset struct {
	Path     string
	Duration float64
	HasAudio bool
}

// Options controls the output of Compose.
type Options struct {
	Width  int
	Height int
	FPS    int
	// Duration of the output. Non-positive values use the end of the last clip.
	Duration   float64
	Background string
	// Vignette darkens the frame edges, 0 to 100.
	Vignette int
	FontFile string
	// WorkDir receives the text files read by drawtext.
	WorkDir string
	Output  string
}

// Command is a composed ffmpeg invocation.
type Command struct {
	Args     []string
	Graph    string
	Duration float64
	HasAudio bool
}

type composer struct {
	opts     Options
	duration float64
	inputs   []string
	nInputs  int
	filters  []string
	audio    []string
	videoIn  map[string]int
	labels   int
}

// Compose builds the ffmpeg command rendering tl. assets maps clip ids to
// local files; media clips without an entry are left out. Track 0 is the
// topmost layer, so tracks are overlaid from the last one up.
func Compose(tl *timeline.Timeline, assets map[string]Asset, opts Options) (*Command, error) {
	if tl == nil {
		return nil, ErrEmptyTimeline
	}
	opts, err := normalize(opts)
	if err != nil {
		return nil, err
	}

	duration := opts.Duration
	if duration <= 0 {
		duration = tl.MaxEnd()
	}
	if duration <= 0 {
		return nil, ErrEmptyTimeline
	}

	c := &composer{opts: opts, duration: duration, videoIn: make(map[string]int)}

	current := "base"
	c.filters = append(c.filters, fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%s[%s]",
		color(opts.Background, "black"), opts.Width, opts.Height, opts.FPS, num(duration), current))

	for i := len(tl.Tracks) - 1; i >= 0; i-- {
		track := tl.Tracks[i]
		if track.Hidden || !track.Kind.IsVisual() {
			continue
		}
		for _, clip := range track.Clips {
			if clip.Start >= duration || clip.Duration <= 0 {
				continue
			}
			switch clip.Kind {
			case timeline.KindText:
				current, err = c.drawText(current, clip)
				if err != nil {
					return nil, err
				}
			case timeline.KindVideo, timeline.KindImage:
				asset, ok := assets[clip.ID]
				if !ok || asset.Path == "" {
					continue
				}
				current = c.overlay(current, clip, asset)
			}
		}
	}

	if opts.Vignette > 0 {
		out := c.next("v")
		angle := math.Pi / 2 * float64(opts.Vignette) / 100
		c.filters = append(c.filters, fmt.Sprintf("[%s]vignette=angle=%s[%s]", current, num(angle), out))
		current = out
	}
	c.filters = append(c.filters, fmt.Sprintf("[%s]format=yuv420p[vout]", current))

	for _, track := range tl.Tracks {
		if track.Hidden || track.Muted || !track.Kind.HasAudio() {
			continue
		}
		for _, clip := range track.Clips {
			if clip.Start >= duration || clip.Duration <= 0 {
				continue
			}
			asset, ok := assets[clip.ID]
			if !ok || asset.Path == "" || !asset.HasAudio {
				continue
			}
			c.mixIn(clip, asset)
		}
	}

	hasAudio := len(c.audio) > 0
	switch len(c.audio) {
	case 0:
	case 1:
		c.filters = append(c.filters, fmt.Sprintf("[%s]anull[aout]", c.audio[0]))
	default:
		var in strings.Builder
		for _, l := range c.audio {
			in.WriteString("[" + l + "]")
		}
		c.filters = append(c.filters, fmt.Sprintf("%samix=inputs=%d:duration=longest:normalize=0[aout]",
			in.String(), len(c.audio)))
	}

	graph := strings.Join(c.filters, ";")
	args := []string{"-hide_banner", "-y"}
	args = append(args, c.inputs...)
	args = append(args, "-filter_complex", graph, "-map", "[vout]")
	if hasAudio {
		args = append(args, "-map", "[aout]")
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", DefaultPreset,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(opts.FPS),
	)
	if hasAudio {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	}
	args = append(args, "-t", num(duration), "-movflags", "+faststart", opts.Output)

	return &Command{Args: args, Graph: graph, Duration: duration, HasAudio: hasAudio}, nil
}

func normalize(opts Options) (Options, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return opts, fmt.Errorf("%w: size %dx%d", ErrInvalidOptions, opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return opts, fmt.Errorf("%w: fps %d", ErrInvalidOptions, opts.FPS)
	}
	if opts.Output == "" {
		return opts, fmt.Errorf("%w: output path required", ErrInvalidOptions)
	}
	// libx264 with yuv420p needs even dimensions.
	opts.Width -= opts.Width % 2
	opts.Height -= opts.Height % 2
	if opts.Width == 0 || opts.Height == 0 {
		return opts, fmt.Errorf("%w: size too small", ErrInvalidOptions)
	}
	if opts.Background == "" {
		opts.Background = DefaultBackground
	}
	opts.Vignette = max(0, min(100, opts.Vignette))
	return opts, nil
}

func (c *composer) next(prefix string) string {
	c.labels++
	return prefix + strconv.Itoa(c.labels)
}

func (c *composer) addInput(args ...string) int {
	c.inputs = append(c.inputs, args...)
	idx := c.nInputs
	c.nInputs++
	return idx
}

// clipEnd clamps a clip to the output duration.
func (c *composer) clipEnd(clip timeline.Clip) float64 {
	return math.Min(clip.End(), c.duration)
}

func (c *composer) overlay(base string, clip timeline.Clip, asset Asset) string {
	end := c.clipEnd(clip)
	length := end - clip.Start
	props := clip.Properties

	var idx int
	if clip.Kind == timeline.KindVideo {
		// Loop short sources; trim cuts them back to the clip length.
		idx = c.addInput("-stream_loop", "-1", "-i", asset.Path)
		c.videoIn[clip.ID] = idx
	} else {
		idx = c.addInput("-loop", "1", "-framerate", strconv.Itoa(c.opts.FPS), "-t", num(length), "-i", asset.Path)
	}

	chain := []string{
		"trim=duration=" + num(length),
		fmt.Sprintf("setpts=PTS-STARTPTS+%s/TB", num(clip.Start)),
		"fps=" + strconv.Itoa(c.opts.FPS),
	}
	if props.IsFullFrame() {
		chain = append(chain,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", c.opts.Width, c.opts.Height),
			fmt.Sprintf("crop=%d:%d", c.opts.Width, c.opts.Height))
	} else {
		chain = append(chain, fmt.Sprintf("scale=%d:-2", scaledWidth(c.opts.Width, props.Width)))
	}
	chain = append(chain, "format=rgba")
	if props.Opacity < 1 {
		chain = append(chain, "colorchannelmixer=aa="+num(math.Max(0, props.Opacity)))
	}
	if props.Rotation != 0 {
		angle := num(props.Rotation) + "*PI/180"
		chain = append(chain, fmt.Sprintf("rotate=%s:c=none:ow=rotw(%s):oh=roth(%s)", angle, angle, angle))
	}

	layer := c.next("l")
	c.filters = append(c.filters, fmt.Sprintf("[%d:v]%s[%s]", idx, strings.Join(chain, ","), layer))

	out := c.next("v")
	c.filters = append(c.filters, fmt.Sprintf(
		"[%s][%s]overlay=x=main_w*%s/100-overlay_w/2:y=main_h*%s/100-overlay_h/2:enable='between(t,%s,%s)':eof_action=pass[%s]",
		base, layer, num(props.X), num(props.Y), num(clip.Start), num(end), out))
	return out
}

func (c *composer) drawText(base string, clip timeline.Clip) (string, error) {
	if strings.TrimSpace(clip.Content) == "" {
		return base, nil
	}
	if c.opts.WorkDir == "" {
		return "", fmt.Errorf("%w: work directory required for text clips", ErrInvalidOptions)
	}
	props := clip.Properties
	fontSize := props.FontSize
	if fontSize <= 0 {
		fontSize = timeline.DefaultProperties().FontSize
	}

	out := c.next("v")
	path := filepath.Join(c.opts.WorkDir, "text_"+out+".txt")
	maxChars := int(float64(c.opts.Width) * captionWidth / (fontSize * glyphAspect))
	if err := os.WriteFile(path, []byte(wrapText(clip.Content, maxChars)), 0o600); err != nil {
		return "", fmt.Errorf("write text for clip %s: %w", clip.ID, err)
	}

	font := "font=" + quote(DefaultFont)
	if c.opts.FontFile != "" {
		font = "fontfile=" + quote(c.opts.FontFile)
	}
	opacity := math.Max(0, math.Min(1, props.Opacity))

	c.filters = append(c.filters, fmt.Sprintf(
		"[%s]drawtext=%s:textfile=%s:expansion=none:fontsize=%s:fontcolor=%s@%s:line_spacing=10:"+
			"x=w*%s/100-text_w/2:y=h*%s/100-text_h/2:enable='between(t,%s,%s)'[%s]",
		base, font, quote(path), num(fontSize), color(props.Color, "white"), num(opacity),
		num(props.X), num(props.Y), num(clip.Start), num(c.clipEnd(clip)), out))
	return out, nil
}

// mixIn adds a delayed, volume-adjusted copy of the clip's audio to the mix.
// Audio files play once, cut at the end of the clip; video sound follows
// the looped picture.
func (c *composer) mixIn(clip timeline.Clip, asset Asset) {
	length := c.clipEnd(clip) - clip.Start
	idx, ok := c.videoIn[clip.ID]
	if !ok {
		idx = c.addInput("-i", asset.Path)
		if asset.Duration > 0 {
			length = math.Min(length, asset.Duration)
		}
	}

	volume := clip.Properties.Volume
	if volume < 0 {
		volume = 0
	}
	delay := int64(math.Round(clip.Start * 1000))

	out := c.next("a")
	c.filters = append(c.filters, fmt.Sprintf(
		"[%d:a]atrim=end=%s,asetpts=PTS-STARTPTS,volume=%s,adelay=%d:all=1[%s]",
		idx, num(length), num(volume), delay, out))
	c.audio = append(c.audio, out)
}

func scaledWidth(frame int, percent float64) int {
	if percent <= 0 {
		percent = 100
	}
	w := int(math.Round(float64(frame) * percent / 100))
	w -= w % 2
	return max(2, w)
}

// wrapText breaks s into lines of at most maxChars characters on word
// boundaries. Words longer than a line are kept whole.
func wrapText(s string, maxChars int) string {
	words := strings.Fields(s)
	if maxChars <= 0 || len(words) == 0 {
		return strings.TrimSpace(s)
	}
	var lines []string
	var line strings.Builder
	for _, w := range words {
		if line.Len() > 0 && line.Len()+1+len([]rune(w)) > maxChars {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(w)
	}
	lines = append(lines, line.String())
	return strings.Join(lines, "\n")
}

// color converts "#RRGGBB" to ffmpeg's 0xRRGGBB form. Plain colour names
// pass through; anything else becomes fallback.
func color(s, fallback string) string {
	s = strings.TrimSpace(s)
	if len(s) == 7 && s[0] == '#' {
		if _, err := strconv.ParseUint(s[1:], 16, 32); err == nil {
			return "0x" + strings.ToUpper(s[1:])
		}
		return fallback
	}
	if s == "" {
		return fallback
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return fallback
		}
	}
	return s
}

// quote wraps a filter option value in single quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// num formats seconds and factors with millisecond precision.
func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*1000)/1000, 'f', -1, 64)
}
