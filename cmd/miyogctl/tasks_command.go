package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/miyog/miyog-engine/internal/client"
	"github.com/spf13/cobra"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect video tasks",
	}
	cmd.AddCommand(newTasksListCommand(ctx))
	cmd.AddCommand(newTasksWatchCommand(ctx))
	return cmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				tasks, err := api.ListTasks(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), tasks)
				}
				if len(tasks) == 0 {
					writeLine(cmd.OutOrStdout(), "No tasks")
					return nil
				}
				writeLine(cmd.OutOrStdout(), "%s", renderTasks(tasks))
				return nil
			})
		},
	}
}

func renderTasks(tasks []client.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			t.Status,
			t.Stage,
			strconv.Itoa(t.Progress) + "%",
			t.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Status", "Stage", "Progress", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func newTasksWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		interval time.Duration
		output   string
	)

	cmd := &cobra.Command{
		Use:   "watch <task-id>",
		Short: "Poll a task until it completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			return ctx.withClient(func(api *client.Client) error {
				return watchTask(cmd, ctx, api, id, interval, output)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultPollInterval, "Delay between status checks")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Download the finished video to this path")
	return cmd
}

// watchTask polls id, printing each status change, and optionally downloads
// the render.
func watchTask(cmd *cobra.Command, ctx *commandContext, api *client.Client, id int64, interval time.Duration, output string) error {
	out := cmd.OutOrStdout()
	poller := client.NewPoller(api, ctx.logger)
	poller.Interval = interval

	var last string
	poller.OnUpdate = func(t *client.Task) {
		line := fmt.Sprintf("[%3d%%] %s", t.Progress, t.Status)
		if t.Stage != "" {
			line += " - " + t.Stage
		}
		if line != last {
			writeLine(out, "%s", line)
			last = line
		}
	}

	task, err := poller.Poll(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, client.ErrTaskFailed) {
			return fmt.Errorf("task %d: %w", id, err)
		}
		return err
	}
	writeLine(out, "Video: %s", task.VideoURL)

	if output == "" {
		return nil
	}
	if task.VideoURL == "" {
		return fmt.Errorf("task %d completed without a video url", id)
	}
	return downloadTo(cmd, api, task.VideoURL, output)
}

func downloadTo(cmd *cobra.Command, api *client.Client, url, path string) error {
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := api.Download(cmd.Context(), url, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	writeLine(cmd.OutOrStdout(), "Saved %s (%s)", path, humanBytes(n))
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// readAllLimited reads at most limit bytes from r.
func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("input exceeds %s", humanBytes(limit))
	}
	return data, nil
}
