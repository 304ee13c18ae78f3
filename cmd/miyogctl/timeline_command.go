package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/miyog/miyog-engine/internal/client"
	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/spf13/cobra"
)

func newTimelineCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Validate, edit and render editor timelines",
	}
	cmd.AddCommand(newTimelineValidateCommand(ctx))
	cmd.AddCommand(newTimelineEditCommand(ctx))
	cmd.AddCommand(newTimelineSubmitCommand(ctx))
	return cmd
}

type timelineFlags struct {
	fps      int
	duration float64
}

func (f *timelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.fps, "fps", timeline.DefaultFPS, "Frame rate when the file omits one")
	cmd.Flags().Float64Var(&f.duration, "duration", timeline.DefaultDuration, "Duration in seconds when the file omits one")
}

func newTimelineValidateCommand(ctx *commandContext) *cobra.Command {
	var tf timelineFlags

	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a timeline file for overlaps and invalid clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadTimeline(args[0], cmd.InOrStdin(), tf.fps, tf.duration)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), tl)
			}
			writeLine(cmd.OutOrStdout(), "%s", renderTimeline(tl))
			writeLine(cmd.OutOrStdout(), "Timeline OK: %d tracks, %d clips, %s s at %d fps",
				len(tl.Tracks), tl.ClipCount(), strconv.FormatFloat(tl.Duration, 'f', -1, 64), tl.FPS)
			return nil
		},
	}
	tf.register(cmd)
	return cmd
}

func renderTimeline(tl *timeline.Timeline) string {
	rows := make([][]string, 0, len(tl.Tracks))
	for _, tr := range tl.Tracks {
		var flags []string
		if tr.Hidden {
			flags = append(flags, "hidden")
		}
		if tr.Muted {
			flags = append(flags, "muted")
		}
		rows = append(rows, []string{
			strconv.Itoa(tr.ID),
			tr.Kind.String(),
			tr.Label,
			strconv.Itoa(len(tr.Clips)),
			strconv.FormatFloat(tr.MaxEnd(), 'f', 2, 64),
			strings.Join(flags, ","),
		})
	}
	return renderTable(
		[]string{"Track", "Kind", "Label", "Clips", "End (s)", "Flags"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func newTimelineSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		tf         timelineFlags
		title      string
		resolution string
		projectID  int64
		watch      bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "submit <file|->",
		Short: "Queue a render of a timeline (costs credits)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadTimeline(args[0], cmd.InOrStdin(), tf.fps, tf.duration)
			if err != nil {
				return err
			}
			payload, err := json.Marshal(tl)
			if err != nil {
				return fmt.Errorf("encode timeline: %w", err)
			}

			req := client.TaskRequest{
				Title:      title,
				Resolution: resolution,
				FPS:        tl.FPS,
				Duration:   tl.Duration,
				Timeline:   payload,
			}
			if projectID > 0 {
				req.ProjectID = &projectID
			}

			return ctx.withClient(func(api *client.Client) error {
				queued, err := api.GenerateTask(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() && !watch {
					return writeJSON(cmd.OutOrStdout(), queued)
				}
				writeLine(cmd.OutOrStdout(), "Queued task %d (%d credits left)", queued.TaskID, queued.RemainingCredits)
				if !watch {
					return nil
				}
				return watchTask(cmd, ctx, api, queued.TaskID, client.DefaultPollInterval, output)
			})
		},
	}
	tf.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&resolution, "resolution", "", "Output resolution, e.g. 1920x1080")
	cmd.Flags().Int64Var(&projectID, "project", 0, "Attach the task to this project")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the render finishes")
	cmd.Flags().StringVarP(&output, "output", "o", "", "With --watch, download the video to this path")
	return cmd
}
