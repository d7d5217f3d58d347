package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rpggio/phaseline/internal/app"
	"github.com/rpggio/phaseline/internal/domain/template"
)

func (c *cli) templateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "template", Short: "Manage checklist templates"}
	cmd.AddCommand(c.templateRegisterCmd())
	cmd.AddCommand(c.templateListCmd())
	cmd.AddCommand(c.templateShowCmd())
	cmd.AddCommand(c.templateSeedCmd())
	cmd.AddCommand(c.templateStateCmd("activate", true))
	cmd.AddCommand(c.templateStateCmd("deactivate", false))
	cmd.AddCommand(c.templateDuplicateCmd())
	cmd.AddCommand(c.templateExportCmd())
	return cmd
}

func (c *cli) templateRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register FILE",
		Short: "Register a YAML template definition as the next version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := template.LoadDefinitionFile(args[0])
			if err != nil {
				return err
			}
			if req.CreatedBy == "" {
				req.CreatedBy = c.actor()
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tmpl, err := a.Templates.Register(ctx, c.tenant(), req)
				if err != nil {
					return err
				}
				if c.json() {
					return c.printJSON(tmpl)
				}
				fmt.Fprintf(c.out, "registered %s v%d (%d phases, %d steps)\n",
					tmpl.ProjectType, tmpl.Version, len(tmpl.Phases), tmpl.StepCount())
				return nil
			})
		},
	}
}

func (c *cli) templateListCmd() *cobra.Command {
	var opts template.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Templates.List(ctx, c.tenant(), opts)
				if err != nil {
					return err
				}
				if c.json() {
					return c.printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(c.out)
				tw.AppendHeader(table.Row{"Project type", "Version", "Name", "Phases", "Steps", "Active", "Used", "Last used"})
				for _, t := range items {
					lastUsed := "-"
					if t.LastUsedAt != nil {
						lastUsed = t.LastUsedAt.Format(time.DateOnly)
					}
					tw.AppendRow(table.Row{t.ProjectType, t.Version, t.Name, t.PhaseCount, t.StepCount, t.IsActive, t.UsageCount, lastUsed})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectType, "type", "", "filter by project type")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "full text search")
	cmd.Flags().BoolVar(&opts.ActiveOnly, "active", false, "only active templates")
	cmd.Flags().BoolVar(&opts.LatestOnly, "latest", false, "only the newest version per project type")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows")
	return cmd
}

func (c *cli) templateShowCmd() *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "show PROJECT_TYPE",
		Short: "Show a template's phases and steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tmpl, err := a.Templates.Get(ctx, c.tenant(), args[0], version)
				if err != nil {
					return err
				}
				if c.json() {
					return c.printJSON(tmpl)
				}
				fmt.Fprintf(c.out, "%s v%d: %s\n", tmpl.ProjectType, tmpl.Version, tmpl.Name)
				tw := table.NewWriter()
				tw.SetOutputMirror(c.out)
				tw.AppendHeader(table.Row{"Phase", "Step", "Name", "Required", "Depends on"})
				for _, phase := range tmpl.Phases {
					for _, step := range phase.Steps {
						tw.AppendRow(table.Row{phase.ID, step.ID, step.Name, step.Required, joinIDs(step.DependsOn)})
					}
					tw.AppendSeparator()
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "template version (default latest)")
	return cmd
}

func (c *cli) templateSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed DIR",
		Short: "Register every template in DIR whose project type has none yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.SeedTemplates(ctx, c.tenant(), args[0])
				fmt.Fprintf(c.out, "seeded %d templates\n", n)
				return err
			})
		},
	}
}

func (c *cli) templateStateCmd(verb string, active bool) *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   verb + " PROJECT_TYPE",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " template versions for instantiation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Templates.SetActive(ctx, c.tenant(), template.SetActiveRequest{
					ProjectType: args[0],
					Version:     version,
					Active:      active,
					Actor:       c.actor(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%sd %d version(s) of %s\n", verb, n, args[0])
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "single version (default every version)")
	return cmd
}

func (c *cli) templateDuplicateCmd() *cobra.Command {
	var (
		version int
		name    string
	)
	cmd := &cobra.Command{
		Use:   "duplicate SOURCE_TYPE NEW_TYPE",
		Short: "Copy a template as version 1 of a new project type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tmpl, err := a.Templates.Duplicate(ctx, c.tenant(), template.DuplicateRequest{
					SourceType:    args[0],
					SourceVersion: version,
					ProjectType:   args[1],
					Name:          name,
					Actor:         c.actor(),
				})
				if err != nil {
					return err
				}
				if c.json() {
					return c.printJSON(tmpl)
				}
				fmt.Fprintf(c.out, "registered %s v%d from %s\n", tmpl.ProjectType, tmpl.Version, args[0])
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "source version (default latest)")
	cmd.Flags().StringVar(&name, "name", "", "display name of the copy")
	return cmd
}

func (c *cli) templateExportCmd() *cobra.Command {
	var (
		version int
		output  string
	)
	cmd := &cobra.Command{
		Use:   "export PROJECT_TYPE",
		Short: "Write a template version as a YAML definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tmpl, err := a.Templates.Get(ctx, c.tenant(), args[0], version)
				if err != nil {
					return err
				}
				data, err := template.MarshalDefinition(tmpl)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = c.out.Write(data)
					return err
				}
				return os.WriteFile(output, data, 0o644)
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "template version (default latest)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}
