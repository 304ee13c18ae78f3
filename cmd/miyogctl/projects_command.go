package main

import (
	"strconv"

	"github.com/miyog/miyog-engine/internal/client"
	"github.com/spf13/cobra"
)

func newMeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated user and credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				user, err := api.Me(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), user)
				}
				writeLine(cmd.OutOrStdout(), "%s", renderTable(
					[]string{"ID", "Email", "Credits"},
					[][]string{{user.ID.String(), user.Email, strconv.Itoa(user.Credits)}},
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}
	cmd.AddCommand(newProjectsListCommand(ctx))
	cmd.AddCommand(newProjectsCreateCommand(ctx))
	return cmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				projects, err := api.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), projects)
				}
				if len(projects) == 0 {
					writeLine(cmd.OutOrStdout(), "No projects")
					return nil
				}
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					rows = append(rows, []string{
						strconv.FormatInt(p.ID, 10),
						p.Emoji,
						p.Title,
						p.Platform,
						p.CreatedAt.Format("2006-01-02 15:04"),
					})
				}
				writeLine(cmd.OutOrStdout(), "%s", renderTable(
					[]string{"ID", "", "Title", "Platform", "Created"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
}

func newProjectsCreateCommand(ctx *commandContext) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(api *client.Client) error {
				p, err := api.CreateProject(cmd.Context(), client.ProjectInput{Title: args[0], Description: description})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), p)
				}
				writeLine(cmd.OutOrStdout(), "Created project %d: %s", p.ID, p.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	return cmd
}
