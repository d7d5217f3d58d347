package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/repository"
)

// Service handles project operations.
type Service struct {
	repo       Repository
	templates  TemplateSource
	checklists Checklists
	activities ActivityRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new project service.
func NewService(repo Repository, templates TemplateSource, checklists Checklists, activities ActivityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:       repo,
		templates:  templates,
		checklists: checklists,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	ProjectType string `json:"project_type"`
	Description string `json:"description,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

// CreateResult is a new project and the checklist instantiated for it.
type CreateResult struct {
	Project   *Project        `json:"project"`
	Checklist *checklist.View `json:"checklist"`
}

// Create creates a project and instantiates its checklist from the template
// active for the project type. The template is resolved first so an unknown
// type creates nothing, and the project row is removed again when the
// checklist cannot be instantiated.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*CreateResult, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.ProjectType) == "" {
		return nil, ErrInvalidInput
	}

	tmpl, err := s.templates.Resolve(ctx, tenantID, req.ProjectType)
	if err != nil {
		return nil, err
	}

	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	proj := &Project{
		ID:          id,
		TenantID:    tenantID,
		Name:        req.Name,
		ProjectType: req.ProjectType,
		Description: req.Description,
		Status:      StatusActive,
		CreatedBy:   req.Actor,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, tenantID, proj); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrProjectExists
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	view, err := s.checklists.InstantiateFromTemplate(ctx, tenantID, proj.ID, tmpl, req.Actor)
	if err != nil {
		s.logger.Error("checklist instantiation failed", "project_id", proj.ID, "error", err)
		if delErr := s.repo.Delete(ctx, tenantID, proj.ID); delErr != nil {
			s.logger.Error("removing project after failed instantiation", "project_id", proj.ID, "error", delErr)
		}
		return nil, fmt.Errorf("instantiating checklist: %w", err)
	}

	if s.activities != nil {
		_ = s.activities.Log(ctx, tenantID, &activity.ActivityEntry{
			ProjectID:    proj.ID,
			ActivityType: activity.TypeProjectCreated,
			Actor:        req.Actor,
			Summary:      fmt.Sprintf("created project %s (%s)", proj.Name, proj.ProjectType),
		})
	}

	s.logger.Info("project created", "tenant_id", tenantID, "project_id", proj.ID, "project_type", proj.ProjectType)
	return &CreateResult{Project: proj, Checklist: view}, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// List returns project summaries.
func (s *Service) List(ctx context.Context, tenantID string, opts ListOptions) ([]ProjectSummary, error) {
	if opts.Status != "" && opts.Status != StatusActive && opts.Status != StatusArchived {
		return nil, ErrInvalidInput
	}
	return s.repo.List(ctx, tenantID, opts)
}

// Archive archives a project together with its checklist. Projects are never
// deleted.
func (s *Service) Archive(ctx context.Context, tenantID, id, actor string) (*Project, error) {
	proj, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if proj.Status != StatusArchived {
		now := s.now().UTC()
		if err := s.repo.Archive(ctx, tenantID, id, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, fmt.Errorf("archiving project: %w", err)
		}
		proj.Status = StatusArchived
		proj.ArchivedAt = &now

		if s.activities != nil {
			_ = s.activities.Log(ctx, tenantID, &activity.ActivityEntry{
				ProjectID:    proj.ID,
				ActivityType: activity.TypeProjectArchived,
				Actor:        actor,
				Summary:      fmt.Sprintf("archived project %s", proj.Name),
			})
		}
	}

	if _, err := s.checklists.Archive(ctx, tenantID, id, actor); err != nil && !errors.Is(err, checklist.ErrChecklistNotFound) {
		return nil, fmt.Errorf("archiving checklist: %w", err)
	}

	s.logger.Info("project archived", "tenant_id", tenantID, "project_id", id)
	return proj, nil
}
