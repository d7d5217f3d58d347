package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rpggio/phaseline/internal/app"
	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/sqlite"
)

func (c *cli) activityCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "activity", Short: "Inspect the activity log"}
	cmd.AddCommand(c.activityTailCmd())
	return cmd
}

func (c *cli) activityTailCmd() *cobra.Command {
	var (
		projectID    string
		stepID       string
		activityType string
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent activity, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := activity.ListActivityOptions{ProjectID: projectID, Limit: limit}
			if stepID != "" {
				opts.StepID = &stepID
			}
			if activityType != "" {
				t := activity.ActivityType(activityType)
				opts.ActivityType = &t
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				entries, err := a.Activity.GetRecentActivity(ctx, c.tenant(), opts)
				if err != nil {
					return err
				}
				if c.json() {
					return c.printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(c.out)
				tw.AppendHeader(table.Row{"When", "Project", "Type", "Actor", "Summary"})
				for _, e := range entries {
					tw.AppendRow(table.Row{e.CreatedAt.Format(time.DateTime), e.ProjectID, e.ActivityType, e.Actor, e.Summary})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "filter by project")
	cmd.Flags().StringVar(&stepID, "step", "", "filter by step")
	cmd.Flags().StringVar(&activityType, "type", "", "filter by activity type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries")
	return cmd
}

func (c *cli) apiKeyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "apikey", Short: "Manage API keys for the HTTP server"}
	var description string
	add := &cobra.Command{
		Use:   "add TOKEN",
		Short: "Authorize TOKEN for the --tenant tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := sqlite.NewAPIKeyRepository(a.DB).Add(ctx, args[0], c.tenant(), description); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "api key added for tenant %s\n", c.tenant())
				return nil
			})
		},
	}
	add.Flags().StringVar(&description, "description", "", "note stored with the key")
	cmd.AddCommand(add)
	return cmd
}
