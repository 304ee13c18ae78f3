package main

import (
	"strings"

	"github.com/miyog/miyog-engine/internal/client"
	"github.com/spf13/cobra"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	var duration string

	cmd := &cobra.Command{
		Use:   "script <topic...>",
		Short: "Generate a narration script for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				s, err := api.GenerateScript(cmd.Context(), strings.Join(args, " "), duration)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), s)
				}
				writeLine(cmd.OutOrStdout(), "%s", s.Script)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&duration, "duration", "", `Target length, e.g. "30 Seconds"`)
	return cmd
}
