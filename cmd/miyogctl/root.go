package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "miyogctl",
		Short:         "Command-line client for the miyog video API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.String(keyAPIURL, defaultAPIURL, "Base URL of the API")
	flags.String(keyToken, "", "Bearer token (or mint one with --user and the auth secret)")
	flags.String(keyUser, "", "User id to mint a development token for")
	flags.String(keySecret, "", "Shared JWT secret used to mint development tokens")
	flags.Bool(keyJSON, false, "Print JSON instead of tables")
	flags.Bool(keyDebug, false, "Log API calls to stderr")

	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newMeCommand(ctx))
	rootCmd.AddCommand(newProjectsCommand(ctx))
	rootCmd.AddCommand(newTasksCommand(ctx))
	rootCmd.AddCommand(newTimelineCommand(ctx))
	rootCmd.AddCommand(newScriptCommand(ctx))

	return rootCmd
}
