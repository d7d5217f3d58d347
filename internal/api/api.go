// Package api exposes the checklist services as a REST API under /v1.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/project"
	"github.com/rpggio/phaseline/internal/domain/template"
)

// BasePath prefixes every route.
const BasePath = "/v1"

// TemplateService defines template registry operations needed by the API.
type TemplateService interface {
	Register(ctx context.Context, tenantID string, req template.RegisterRequest) (*template.Template, error)
	Get(ctx context.Context, tenantID, projectType string, version int) (*template.Template, error)
	List(ctx context.Context, tenantID string, opts template.ListOptions) ([]template.TemplateSummary, error)
	SetActive(ctx context.Context, tenantID string, req template.SetActiveRequest) (int, error)
	Duplicate(ctx context.Context, tenantID string, req template.DuplicateRequest) (*template.Template, error)
}

// ProjectService defines project operations needed by the API.
type ProjectService interface {
	Create(ctx context.Context, tenantID string, req project.CreateRequest) (*project.CreateResult, error)
	List(ctx context.Context, tenantID string, opts project.ListOptions) ([]project.ProjectSummary, error)
	Archive(ctx context.Context, tenantID, id, actor string) (*project.Project, error)
}

// ChecklistService defines checklist operations needed by the API.
type ChecklistService interface {
	Instantiate(ctx context.Context, tenantID, projectID, projectType, actor string) (*checklist.View, error)
	Get(ctx context.Context, tenantID, projectID string) (*checklist.View, error)
	UpdateStepStatus(ctx context.Context, tenantID string, req checklist.UpdateStepRequest) (*checklist.View, error)
}

// ActivityService defines activity operations needed by the API.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Config wires the API to services.
type Config struct {
	Templates  TemplateService
	Projects   ProjectService
	Checklists ChecklistService
	Activity   ActivityService
	// Tenant resolves the tenant of a request. Nil means DefaultTenant for
	// every request.
	Tenant        func(ctx context.Context) (string, bool)
	DefaultTenant string
	Version       string
	Logger        *slog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"version_conflict"`
	Message string         `json:"message" example:"version conflict: expected version 3, current 4"`
	Details map[string]any `json:"details,omitempty"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

type server struct {
	cfg    Config
	logger *slog.Logger
}

// Register mounts the API routes on router.
func Register(router chi.Router, cfg Config) huma.API {
	if cfg.DefaultTenant == "" {
		cfg.DefaultTenant = "default"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, errorDetails(errs))
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, errorDetails(errs))
	}

	hcfg := huma.DefaultConfig("Phaseline API", cfg.Version)
	hcfg.OpenAPIPath = BasePath + "/openapi"
	hcfg.DocsPath = BasePath + "/docs"
	hcfg.SchemasPath = BasePath + "/schemas"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, BasePath)

	s := &server{cfg: cfg, logger: logger}
	s.registerTemplates(group)
	s.registerProjects(group)
	s.registerChecklists(group)
	s.registerActivity(group)
	return api
}

func (s *server) tenant(ctx context.Context) string {
	if s.cfg.Tenant != nil {
		if tenantID, ok := s.cfg.Tenant(ctx); ok && tenantID != "" {
			return tenantID
		}
	}
	return s.cfg.DefaultTenant
}

func errorDetails(errs []error) map[string]any {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return map[string]any{"errors": msgs}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func (s *server) handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}

	var (
		graphErr    *template.GraphError
		depErr      *checklist.DependencyError
		lockedErr   *checklist.PhaseLockedError
		transErr    *checklist.TransitionError
		conflictErr *checklist.VersionConflictError
	)
	msg := err.Error()
	switch {
	case errors.As(err, &conflictErr):
		return newAPIError(http.StatusConflict, "version_conflict", msg, conflictDetails(conflictErr))
	case errors.As(err, &depErr):
		return newAPIError(http.StatusUnprocessableEntity, "dependency_not_satisfied", msg, map[string]any{
			"step_id": depErr.StepID,
			"unmet":   depErr.Unmet,
		})
	case errors.As(err, &lockedErr):
		return newAPIError(http.StatusUnprocessableEntity, "phase_locked", msg, map[string]any{
			"phase_id":          lockedErr.PhaseID,
			"blocking_phase_id": lockedErr.BlockingPhaseID,
		})
	case errors.As(err, &transErr):
		return newAPIError(http.StatusUnprocessableEntity, "illegal_transition", msg, map[string]any{
			"from":    transErr.From,
			"to":      transErr.To,
			"allowed": checklist.AllowedTransitions(transErr.From),
		})
	case errors.As(err, &graphErr):
		return newAPIError(http.StatusUnprocessableEntity, "invalid_template_graph", msg, map[string]any{
			"from":   graphErr.Edge.From,
			"to":     graphErr.Edge.To,
			"reason": graphErr.Reason,
		})
	case errors.Is(err, template.ErrInvalidTemplateGraph):
		return newAPIError(http.StatusUnprocessableEntity, "invalid_template_graph", msg, nil)
	case errors.Is(err, template.ErrInvalidTemplate):
		return newAPIError(http.StatusUnprocessableEntity, "invalid_template", msg, nil)
	case errors.Is(err, template.ErrTemplateNotFound):
		return newAPIError(http.StatusNotFound, "template_not_found", msg, nil)
	case errors.Is(err, project.ErrProjectNotFound):
		return newAPIError(http.StatusNotFound, "project_not_found", msg, nil)
	case errors.Is(err, checklist.ErrChecklistNotFound):
		return newAPIError(http.StatusNotFound, "checklist_not_found", msg, nil)
	case errors.Is(err, checklist.ErrStepNotFound):
		return newAPIError(http.StatusNotFound, "step_not_found", msg, nil)
	case errors.Is(err, checklist.ErrAlreadyInstantiated):
		return newAPIError(http.StatusConflict, "already_instantiated", msg, nil)
	case errors.Is(err, project.ErrProjectExists):
		return newAPIError(http.StatusConflict, "project_exists", msg, nil)
	case errors.Is(err, template.ErrTemplateInactive):
		return newAPIError(http.StatusConflict, "template_inactive", msg, nil)
	case errors.Is(err, template.ErrProjectTypeExists):
		return newAPIError(http.StatusConflict, "project_type_exists", msg, nil)
	case errors.Is(err, template.ErrTemplateConflict):
		return newAPIError(http.StatusConflict, "template_conflict", msg, nil)
	case errors.Is(err, checklist.ErrChecklistArchived):
		return newAPIError(http.StatusConflict, "checklist_archived", msg, nil)
	case errors.Is(err, checklist.ErrInvalidInput),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, template.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		s.logger.Error("request failed", "error", err)
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func conflictDetails(err *checklist.VersionConflictError) map[string]any {
	details := map[string]any{"expected_version": err.Expected}
	if err.Current > 0 {
		details["current_version"] = err.Current
	}
	return details
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}
