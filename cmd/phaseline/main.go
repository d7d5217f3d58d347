// Command phaseline manages templates, projects and checklists directly
// against the local database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rpggio/phaseline/internal/app"
	"github.com/rpggio/phaseline/internal/config"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cli struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out, errOut: errOut}
	c.v.SetEnvPrefix("PHASELINE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "phaseline",
		Short: "Phase and checklist tracking for equipment projects",
		Long: `Phaseline tracks manufacturing projects through ordered phases of checklist steps.
Templates define the phases for a project type, every project gets its own
checklist copied from the newest active template, and step changes go through the
same validation as the API: legal transitions, satisfied dependencies,
unlocked phases and an expected checklist version.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.String("db-path", "", "database file (default from config)")
	flags.String("gating-mode", "", "phase gating: strict or advisory")
	flags.String("tenant", app.DefaultTenant, "tenant id")
	flags.String("actor", "cli", "actor recorded in activity")
	flags.Bool("json", false, "output JSON")
	flags.Bool("verbose", false, "log at debug level")
	for _, name := range []string{"db-path", "gating-mode", "tenant", "actor", "json", "verbose"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(c.templateCmd())
	root.AddCommand(c.projectCmd())
	root.AddCommand(c.checklistCmd())
	root.AddCommand(c.stepCmd())
	root.AddCommand(c.activityCmd())
	root.AddCommand(c.apiKeyCmd())
	return root
}

func (c *cli) config() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if path := c.v.GetString("db-path"); path != "" {
		cfg.DB.Path = path
	}
	if mode := c.v.GetString("gating-mode"); mode != "" {
		cfg.Gating.Mode = mode
	}
	return cfg, cfg.Validate()
}

// withApp opens the database, runs fn and flushes pending events before
// closing.
func (c *cli) withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if c.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.errOut, &slog.HandlerOptions{Level: level}))

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	busCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Run(busCtx)
	}()
	defer func() {
		stop()
		<-done
	}()

	return fn(ctx, a)
}

func (c *cli) tenant() string { return c.v.GetString("tenant") }
func (c *cli) actor() string  { return c.v.GetString("actor") }
func (c *cli) json() bool     { return c.v.GetBool("json") }

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
