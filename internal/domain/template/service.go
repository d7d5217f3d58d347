package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/repository"
)

// Service is the checklist template registry.
type Service struct {
	templates  Repository
	activities ActivityRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new template registry service.
func NewService(templates Repository, activities ActivityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		templates:  templates,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterRequest describes a template registration. It doubles as the YAML
// template file format.
type RegisterRequest struct {
	ProjectType       string            `json:"project_type" yaml:"project_type"`
	Name              string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description       string            `json:"description,omitempty" yaml:"description,omitempty"`
	EstimatedDuration string            `json:"estimated_duration,omitempty" yaml:"estimated_duration,omitempty"`
	Phases            []PhaseDefinition `json:"phases" yaml:"phases"`
	CreatedBy         string            `json:"created_by,omitempty" yaml:"created_by,omitempty"`
}

// Register validates a definition and publishes it as the next version for
// its project type. Validation failures block registration entirely.
func (s *Service) Register(ctx context.Context, tenantID string, req RegisterRequest) (*Template, error) {
	if strings.TrimSpace(req.ProjectType) == "" {
		return nil, ErrInvalidInput
	}
	if err := ValidateDefinition(req.Phases); err != nil {
		s.logger.Warn("template rejected", "project_type", req.ProjectType, "error", err)
		return nil, err
	}

	version := 1
	latest, err := s.templates.GetLatest(ctx, tenantID, req.ProjectType)
	switch {
	case err == nil:
		version = latest.Version + 1
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("loading latest template: %w", err)
	}

	name := req.Name
	if strings.TrimSpace(name) == "" {
		name = req.ProjectType
	}

	tmpl := &Template{
		TenantID:          tenantID,
		ProjectType:       req.ProjectType,
		Version:           version,
		Name:              name,
		Description:       req.Description,
		EstimatedDuration: req.EstimatedDuration,
		IsActive:          true,
		Phases:            Normalize(req.Phases),
		CreatedBy:         req.CreatedBy,
		CreatedAt:         s.now().UTC(),
	}

	if err := s.templates.Create(ctx, tenantID, tmpl); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrTemplateConflict
		}
		return nil, fmt.Errorf("creating template: %w", err)
	}

	if s.activities != nil {
		_ = s.activities.Log(ctx, tenantID, &activity.ActivityEntry{
			ActivityType: activity.TypeTemplateRegistered,
			Actor:        req.CreatedBy,
			Summary:      fmt.Sprintf("registered template %s v%d", tmpl.ProjectType, tmpl.Version),
		})
	}
	s.logger.Info("template registered", "tenant_id", tenantID, "project_type", tmpl.ProjectType, "version", tmpl.Version)

	return tmpl, nil
}

// EnsureRegistered registers req only when its project type has no template
// yet, returning the existing latest version otherwise.
func (s *Service) EnsureRegistered(ctx context.Context, tenantID string, req RegisterRequest) (*Template, bool, error) {
	latest, err := s.templates.GetLatest(ctx, tenantID, req.ProjectType)
	if err == nil {
		return latest, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("loading latest template: %w", err)
	}
	tmpl, err := s.Register(ctx, tenantID, req)
	if err != nil {
		return nil, false, err
	}
	return tmpl, true, nil
}

// Get returns a template version; version 0 selects the latest.
func (s *Service) Get(ctx context.Context, tenantID, projectType string, version int) (*Template, error) {
	var (
		tmpl *Template
		err  error
	)
	if version <= 0 {
		tmpl, err = s.templates.GetLatest(ctx, tenantID, projectType)
	} else {
		tmpl, err = s.templates.Get(ctx, tenantID, projectType, version)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("getting template: %w", err)
	}
	return tmpl, nil
}

// List returns template summaries, using full-text search when a query is set.
func (s *Service) List(ctx context.Context, tenantID string, opts ListOptions) ([]TemplateSummary, error) {
	if strings.TrimSpace(opts.Query) != "" {
		return s.templates.Search(ctx, tenantID, opts.Query, opts)
	}
	return s.templates.List(ctx, tenantID, opts)
}

// Resolve returns the newest active version of a project type. It is the
// lookup used for instantiation; Get with version 0 still returns the newest version
// regardless of state.
func (s *Service) Resolve(ctx context.Context, tenantID, projectType string) (*Template, error) {
	tmpl, err := s.templates.GetLatestActive(ctx, tenantID, projectType)
	if err == nil {
		return tmpl, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("resolving template: %w", err)
	}
	if _, err := s.templates.GetLatest(ctx, tenantID, projectType); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateInactive, projectType)
	}
	return nil, ErrTemplateNotFound
}

// SetActiveRequest activates or deactivates template versions.
type SetActiveRequest struct {
	ProjectType string `json:"project_type"`
	// Version 0 applies to every version of the project type.
	Version int    `json:"version,omitempty"`
	Active  bool   `json:"active"`
	Actor   string `json:"actor,omitempty"`
}

// SetActive toggles whether versions may be instantiated. Existing
// checklists are unaffected. It is idempotent.
func (s *Service) SetActive(ctx context.Context, tenantID string, req SetActiveRequest) (int, error) {
	if strings.TrimSpace(req.ProjectType) == "" || req.Version < 0 {
		return 0, ErrInvalidInput
	}
	n, err := s.templates.SetActive(ctx, tenantID, req.ProjectType, req.Version, req.Active)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrTemplateNotFound
		}
		return 0, fmt.Errorf("updating template state: %w", err)
	}

	activityType, verb := activity.TypeTemplateDeactivated, "deactivated"
	if req.Active {
		activityType, verb = activity.TypeTemplateActivated, "activated"
	}
	target := req.ProjectType
	if req.Version > 0 {
		target = fmt.Sprintf("%s v%d", req.ProjectType, req.Version)
	}
	if s.activities != nil {
		_ = s.activities.Log(ctx, tenantID, &activity.ActivityEntry{
			ActivityType: activityType,
			Actor:        req.Actor,
			Summary:      fmt.Sprintf("%s template %s", verb, target),
		})
	}
	s.logger.Info("template "+verb, "tenant_id", tenantID, "project_type", req.ProjectType, "version", req.Version, "versions", n)
	return n, nil
}

// DuplicateRequest copies a template version under a new project type.
type DuplicateRequest struct {
	SourceType    string `json:"source_type"`
	SourceVersion int    `json:"source_version,omitempty"`
	ProjectType   string `json:"project_type"`
	Name          string `json:"name,omitempty"`
	Actor         string `json:"actor,omitempty"`
}

// Duplicate registers a copy of a template as version 1 of a project type
// that has no templates yet.
func (s *Service) Duplicate(ctx context.Context, tenantID string, req DuplicateRequest) (*Template, error) {
	if strings.TrimSpace(req.SourceType) == "" || strings.TrimSpace(req.ProjectType) == "" ||
		req.SourceType == req.ProjectType {
		return nil, ErrInvalidInput
	}
	src, err := s.Get(ctx, tenantID, req.SourceType, req.SourceVersion)
	if err != nil {
		return nil, err
	}

	_, err = s.templates.GetLatest(ctx, tenantID, req.ProjectType)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrProjectTypeExists, req.ProjectType)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("loading latest template: %w", err)
	}

	name := req.Name
	if strings.TrimSpace(name) == "" {
		name = src.Name + " (copy)"
	}
	return s.Register(ctx, tenantID, RegisterRequest{
		ProjectType:       req.ProjectType,
		Name:              name,
		Description:       src.Description,
		EstimatedDuration: src.EstimatedDuration,
		Phases:            src.Phases,
		CreatedBy:         req.Actor,
	})
}
