package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rpggio/phaseline/internal/app"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/project"
)

func (c *cli) projectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Manage projects"}
	cmd.AddCommand(c.projectCreateCmd())
	cmd.AddCommand(c.projectListCmd())
	cmd.AddCommand(c.projectArchiveCmd())
	return cmd
}

func (c *cli) projectCreateCmd() *cobra.Command {
	var req project.CreateRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project and instantiate its checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Actor = c.actor()
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Projects.Create(ctx, c.tenant(), req)
				if err != nil {
					return err
				}
				if c.json() {
					return c.printJSON(res)
				}
				fmt.Fprintf(c.out, "created project %s (%s, template v%d)\n",
					res.Project.ID, res.Project.ProjectType, res.Checklist.Checklist.TemplateVersion)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.ID, "id", "", "project id (generated when empty)")
	cmd.Flags().StringVar(&req.Name, "name", "", "project name")
	cmd.Flags().StringVar(&req.ProjectType, "type", "", "project type")
	cmd.Flags().StringVar(&req.Description, "description", "", "description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (c *cli) projectListCmd() *cobra.Command {
	var opts project.ListOptions
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Status = project.Status(status)
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Projects.List(ctx, c.tenant(), opts)
				if err != nil {
					return err
				}
				if c.json() {
					return c.printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(c.out)
				tw.AppendHeader(table.Row{"ID", "Name", "Type", "Status", "Template", "Checklist version"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.ProjectType, p.Status, p.TemplateVersion, p.ChecklistVersion})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectType, "type", "", "filter by project type")
	cmd.Flags().StringVar(&status, "status", "", "active or archived")
	return cmd
}

func (c *cli) projectArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive PROJECT_ID",
		Short: "Archive a project and freeze its checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				proj, err := a.Projects.Archive(ctx, c.tenant(), args[0], c.actor())
				if err != nil {
					return err
				}
				if c.json() {
					return c.printJSON(proj)
				}
				fmt.Fprintf(c.out, "archived project %s\n", proj.ID)
				return nil
			})
		},
	}
}

func (c *cli) checklistCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "checklist", Short: "Inspect and instantiate checklists"}
	cmd.AddCommand(c.checklistInitCmd())
	cmd.AddCommand(c.checklistShowCmd())
	return cmd
}

func (c *cli) checklistInitCmd() *cobra.Command {
	var projectType string
	cmd := &cobra.Command{
		Use:   "init PROJECT_ID",
		Short: "Instantiate a checklist for an externally managed project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				view, err := a.Checklists.Instantiate(ctx, c.tenant(), args[0], projectType, c.actor())
				if err != nil {
					return err
				}
				return c.printView(view)
			})
		},
	}
	cmd.Flags().StringVar(&projectType, "type", "", "project type")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (c *cli) checklistShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show PROJECT_ID",
		Short: "Show a checklist with progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				view, err := a.Checklists.Get(ctx, c.tenant(), args[0])
				if err != nil {
					return err
				}
				return c.printView(view)
			})
		},
	}
}

func (c *cli) stepCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "step", Short: "Change step status"}
	cmd.AddCommand(c.stepSetCmd())
	return cmd
}

func (c *cli) stepSetCmd() *cobra.Command {
	var expected int64
	cmd := &cobra.Command{
		Use:   "set PROJECT_ID PHASE_ID STEP_ID STATUS",
		Short: "Set a step's status",
		Long: `Set a step's status. STATUS is one of pending, in_progress, completed,
skipped or blocked. Without --expected-version the checklist's current
version is used, which gives up protection against concurrent edits.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				version := expected
				if version == 0 {
					current, err := a.Checklists.Get(ctx, c.tenant(), args[0])
					if err != nil {
						return err
					}
					version = current.Checklist.Version
				}
				view, err := a.Checklists.UpdateStepStatus(ctx, c.tenant(), checklist.UpdateStepRequest{
					ProjectID:       args[0],
					PhaseID:         args[1],
					StepID:          args[2],
					Status:          checklist.StepStatus(args[3]),
					ExpectedVersion: version,
					Actor:           c.actor(),
				})
				if err != nil {
					return err
				}
				return c.printView(view)
			})
		},
	}
	cmd.Flags().Int64Var(&expected, "expected-version", 0, "checklist version the change is based on")
	return cmd
}

func (c *cli) printView(view *checklist.View) error {
	if c.json() {
		return c.printJSON(view)
	}
	cl := view.Checklist
	fmt.Fprintf(c.out, "%s  %s v%d  version %d  %d%% complete (%d/%d steps)\n",
		cl.ProjectID, cl.ProjectType, cl.TemplateVersion, cl.Version,
		view.Stats.OverallPercent, view.Stats.CompletedCount, view.Stats.TotalCount)
	if cl.Archived {
		fmt.Fprintln(c.out, "archived")
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.AppendHeader(table.Row{"Phase", "Phase status", "Step", "Status", "Required", "Depends on"})
	for i, phase := range cl.Phases {
		label := phase.ID
		if i < len(view.Stats.PerPhase) {
			label = fmt.Sprintf("%s (%d%%)", phase.ID, view.Stats.PerPhase[i].Percent)
		}
		for j, step := range phase.Steps {
			phaseCol, statusCol := "", ""
			if j == 0 {
				phaseCol, statusCol = label, string(phase.Status)
			}
			tw.AppendRow(table.Row{phaseCol, statusCol, step.ID, step.Status, step.Required, joinIDs(step.DependsOn)})
		}
		tw.AppendSeparator()
	}
	tw.Render()
	return nil
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ", ")
}
