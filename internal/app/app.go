// Package app assembles the storage layer, domain services and event bus
// shared by the server binary, the CLI and integration tests.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpggio/phaseline/internal/config"
	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/project"
	"github.com/rpggio/phaseline/internal/domain/template"
	"github.com/rpggio/phaseline/internal/events"
	"github.com/rpggio/phaseline/internal/sqlite"
)

// DefaultTenant is used when authentication is disabled.
const DefaultTenant = "default"

// App holds the wired services.
type App struct {
	DB         *sqlite.DB
	Templates  *template.Service
	Projects   *project.Service
	Checklists *checklist.Service
	Activity   *activity.Service
	Bus        *events.Bus

	logger *slog.Logger
}

// New opens the database at cfg.DB.Path, applies migrations and builds every
// service. Webhooks from cfg.Events are subscribed to the bus, but nothing is
// delivered until Run is called.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	gating, err := checklist.ParseGatingMode(cfg.Gating.Mode)
	if err != nil {
		return nil, err
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, err
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	bus := events.NewBus(cfg.Events.Buffer, logger)
	bus.Subscribe("log", nil, events.LogHandler(logger))
	for _, hook := range cfg.Events.Webhooks {
		bus.Subscribe("webhook:"+hook.URL, hook.Events, events.NewWebhook(hook.URL, nil))
	}

	templateRepo := sqlite.NewTemplateRepository(db)
	checklistRepo := sqlite.NewChecklistRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	templateSvc := template.NewService(templateRepo, activityRepo, logger)
	checklistSvc, err := checklist.NewService(checklistRepo, templateSvc, activityRepo, checklist.Options{
		Gating:         gating,
		StatsCacheSize: cfg.Stats.CacheSize,
		Publisher:      bus,
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	projectSvc := project.NewService(projectRepo, templateSvc, checklistSvc, activityRepo, logger)
	activitySvc := activity.NewService(activityRepo, logger)

	return &App{
		DB:         db,
		Templates:  templateSvc,
		Projects:   projectSvc,
		Checklists: checklistSvc,
		Activity:   activitySvc,
		Bus:        bus,
		logger:     logger,
	}, nil
}

// Run delivers events until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.Bus.Run(ctx)
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

// SeedTemplates registers every YAML template in dir for tenantID whose
// project type has no template yet. It returns the number newly registered.
func (a *App) SeedTemplates(ctx context.Context, tenantID, dir string) (int, error) {
	if strings.TrimSpace(dir) == "" {
		return 0, nil
	}
	reqs, err := template.LoadDefinitionDir(dir)
	if err != nil {
		return 0, err
	}

	registered := 0
	var errs []error
	for _, req := range reqs {
		if req.CreatedBy == "" {
			req.CreatedBy = "seed"
		}
		tmpl, created, err := a.Templates.EnsureRegistered(ctx, tenantID, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("seed %s: %w", req.ProjectType, err))
			continue
		}
		if created {
			registered++
			a.logger.Info("template seeded", "project_type", tmpl.ProjectType, "version", tmpl.Version)
		}
	}
	return registered, errors.Join(errs...)
}

func ensureDBDir(path string) error {
	if path == "" || path == ":memory:" || strings.Contains(path, "mode=memory") {
		return nil
	}
	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
