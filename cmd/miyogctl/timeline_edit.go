package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/spf13/cobra"
)

const editUsage = `Each edit is one argument:
  place <kind> <start> <duration> <src|text...>
  move <clip> <start> [track]
  trim <clip> <duration>
  bounds <clip> <start> <end>
  layer <clip> up|down
  text <clip> <text...>
  remove <clip>
  undo
  redo`

var errBadEdit = errors.New("invalid edit")

func newTimelineEditCommand(ctx *commandContext) *cobra.Command {
	var (
		tf     timelineFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "edit <file|-> <edit>...",
		Short: "Apply editor operations to a timeline file",
		Long:  "Apply editor operations in order and write the resulting timeline as JSON.\n\n" + editUsage,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadTimeline(args[0], cmd.InOrStdin(), tf.fps, tf.duration)
			if err != nil {
				return err
			}

			ed := timeline.NewEditor(tl, timeline.DefaultHistoryLimit)
			for i, edit := range args[1:] {
				if err := applyEdit(ed, edit); err != nil {
					return fmt.Errorf("edit %d %q: %w", i+1, edit, err)
				}
			}
			if err := ed.Timeline().Validate(); err != nil {
				return err
			}

			if err := writeTimeline(cmd.OutOrStdout(), output, ed.Timeline()); err != nil {
				return err
			}
			if !ctx.jsonOutput() {
				writeLine(cmd.ErrOrStderr(), "%s", renderTimeline(ed.Timeline()))
				writeLine(cmd.ErrOrStderr(), "Applied %d edits, %d undoable", len(args)-1, ed.UndoDepth())
			}
			return nil
		},
	}
	tf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the timeline to this path instead of stdout")
	return cmd
}

func writeTimeline(stdout io.Writer, path string, tl *timeline.Timeline) error {
	if path == "" || path == "-" {
		return writeJSON(stdout, tl)
	}
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeJSON(f, tl); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// applyEdit parses one edit and runs it through ed.
func applyEdit(ed *timeline.Editor, edit string) error {
	fields := strings.Fields(edit)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty", errBadEdit)
	}
	op, rest := fields[0], fields[1:]

	switch op {
	case "undo":
		return ed.Undo()
	case "redo":
		return ed.Redo()
	}

	cmd, err := parseEdit(op, rest)
	if err != nil {
		return err
	}
	return ed.Do(cmd)
}

func parseEdit(op string, args []string) (timeline.Command, error) {
	switch op {
	case "place":
		if len(args) < 4 {
			return nil, fmt.Errorf("%w: place needs kind, start, duration and source", errBadEdit)
		}
		kind, err := timeline.ParseKind(args[0])
		if err != nil {
			return nil, err
		}
		times, err := parseSeconds(args[1:3])
		if err != nil {
			return nil, err
		}
		clip := timeline.Clip{
			Kind:       kind,
			Start:      times[0],
			Duration:   times[1],
			Properties: timeline.DefaultProperties(),
		}
		if kind == timeline.KindText {
			clip.Content = strings.Join(args[3:], " ")
		} else {
			clip.Src = args[3]
		}
		return &timeline.PlaceClip{Clip: clip}, nil

	case "move":
		if len(args) != 2 && len(args) != 3 {
			return nil, fmt.Errorf("%w: move needs clip, start and an optional track", errBadEdit)
		}
		times, err := parseSeconds(args[1:2])
		if err != nil {
			return nil, err
		}
		cmd := &timeline.MoveClip{ClipID: args[0], Start: times[0]}
		if len(args) == 3 {
			if cmd.TrackID, err = strconv.Atoi(args[2]); err != nil {
				return nil, fmt.Errorf("%w: track %q", errBadEdit, args[2])
			}
		}
		return cmd, nil

	case "trim":
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: trim needs clip and duration", errBadEdit)
		}
		times, err := parseSeconds(args[1:])
		if err != nil {
			return nil, err
		}
		return &timeline.TrimClip{ClipID: args[0], Duration: times[0]}, nil

	case "bounds":
		if len(args) != 3 {
			return nil, fmt.Errorf("%w: bounds needs clip, start and end", errBadEdit)
		}
		times, err := parseSeconds(args[1:])
		if err != nil {
			return nil, err
		}
		return &timeline.SetClipBounds{ClipID: args[0], Start: times[0], End: times[1]}, nil

	case "layer":
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: layer needs clip and up or down", errBadEdit)
		}
		dir := timeline.Up
		switch args[1] {
		case "up":
		case "down":
			dir = timeline.Down
		default:
			return nil, fmt.Errorf("%w: direction %q", errBadEdit, args[1])
		}
		return &timeline.MoveClipLayer{ClipID: args[0], Direction: dir}, nil

	case "text":
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: text needs clip and content", errBadEdit)
		}
		return &timeline.SetContent{ClipID: args[0], Content: strings.Join(args[1:], " ")}, nil

	case "remove":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: remove needs a clip", errBadEdit)
		}
		return &timeline.RemoveClip{ClipID: args[0]}, nil
	}
	return nil, fmt.Errorf("%w: unknown operation %q", errBadEdit, op)
}

func parseSeconds(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number of seconds", errBadEdit, a)
		}
		out[i] = v
	}
	return out, nil
}
