package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/project"
	"github.com/rpggio/phaseline/internal/domain/template"
)

// DuplicateTemplateRequest is the body of the template duplicate POST.
type DuplicateTemplateRequest struct {
	ProjectType   string `json:"project_type" minLength:"1" doc:"New project type; must have no templates yet"`
	SourceVersion int    `json:"source_version,omitempty" minimum:"0" doc:"Version to copy, latest when omitted"`
	Name          string `json:"name,omitempty"`
}

// TemplateStateResponse reports an activation change.
type TemplateStateResponse struct {
	ProjectType string `json:"project_type"`
	Active      bool   `json:"active"`
	Versions    int    `json:"versions" doc:"Number of versions matched"`
}

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	ID          string `json:"id,omitempty" doc:"Project id, generated when omitted"`
	Name        string `json:"name" minLength:"1"`
	ProjectType string `json:"project_type" minLength:"1"`
	Description string `json:"description,omitempty"`
}

// InstantiateRequest is the body of POST /checklists.
type InstantiateRequest struct {
	ProjectID   string `json:"project_id" minLength:"1"`
	ProjectType string `json:"project_type" minLength:"1"`
}

// UpdateStepRequest is the body of the step status PATCH.
type UpdateStepRequest struct {
	Status          checklist.StepStatus `json:"status" enum:"pending,in_progress,completed,skipped,blocked"`
	ExpectedVersion int64                `json:"expected_version" minimum:"1"`
}

func (s *server) registerTemplates(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-template",
		Method:        http.MethodPost,
		Path:          "/templates",
		Summary:       "Register template version",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Actor string                   `header:"X-Actor-Id"`
		Body  template.RegisterRequest `json:"body"`
	}) (*struct {
		Body *template.Template `json:"body"`
	}, error) {
		req := input.Body
		if req.CreatedBy == "" {
			req.CreatedBy = input.Actor
		}
		tmpl, err := s.cfg.Templates.Register(ctx, s.tenant(ctx), req)
		if err != nil {
			return nil, s.handleError(err)
		}
		return &struct {
			Body *template.Template `json:"body"`
		}{Body: tmpl}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-templates",
		Method:      http.MethodGet,
		Path:        "/templates",
		Summary:     "List templates",
	}, func(ctx context.Context, input *struct {
		ProjectType string `query:"project_type"`
		Query       string `query:"q" doc:"Full text search"`
		ActiveOnly  bool   `query:"active_only"`
		LatestOnly  bool   `query:"latest_only"`
		Limit       int    `query:"limit" minimum:"0"`
		Offset      int    `query:"offset" minimum:"0"`
	}) (*struct {
		Body []template.TemplateSummary `json:"body"`
	}, error) {
		list, err := s.cfg.Templates.List(ctx, s.tenant(ctx), template.ListOptions{
			ProjectType: input.ProjectType,
			Query:       input.Query,
			ActiveOnly:  input.ActiveOnly,
			LatestOnly:  input.LatestOnly,
			Limit:       input.Limit,
			Offset:      input.Offset,
		})
		if err != nil {
			return nil, s.handleError(err)
		}
		if list == nil {
			list = []template.TemplateSummary{}
		}
		return &struct {
			Body []template.TemplateSummary `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-template",
		Method:      http.MethodGet,
		Path:        "/templates/{project_type}",
		Summary:     "Get template",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectType string `path:"project_type"`
		Version     int    `query:"version" minimum:"0" doc:"Version, latest when omitted"`
	}) (*struct {
		Body *template.Template `json:"body"`
	}, error) {
		tmpl, err := s.cfg.Templates.Get(ctx, s.tenant(ctx), input.ProjectType, input.Version)
		if err != nil {
			return nil, s.handleError(err)
		}
		return &struct {
			Body *template.Template `json:"body"`
		}{Body: tmpl}, nil
	})

	s.registerTemplateState(api, "activate-template", "activate", true)
	s.registerTemplateState(api, "deactivate-template", "deactivate", false)

	huma.Register(api, huma.Operation{
		OperationID:   "duplicate-template",
		Method:        http.MethodPost,
		Path:          "/templates/{project_type}/duplicate",
		Summary:       "Copy a template as a new project type",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Actor       string                   `header:"X-Actor-Id"`
		ProjectType string                   `path:"project_type"`
		Body        DuplicateTemplateRequest `json:"body"`
	}) (*struct {
		Body *template.Template `json:"body"`
	}, error) {
		tmpl, err := s.cfg.Templates.Duplicate(ctx, s.tenant(ctx), template.DuplicateRequest{
			SourceType:    input.ProjectType,
			SourceVersion: input.Body.SourceVersion,
			ProjectType:   input.Body.ProjectType,
			Name:          input.Body.Name,
			Actor:         input.Actor,
		})
		if err != nil {
			return nil, s.handleError(err)
		}
		return &struct {
			Body *template.Template `json:"body"`
		}{Body: tmpl}, nil
	})
}

func (s *server) registerTemplateState(api huma.API, operationID, action string, active bool) {
	huma.Register(api, huma.Operation{
		OperationID: operationID,
		Method:      http.MethodPost,
		Path:        "/templates/{project_type}/" + action,
		Summary:     strings.ToUpper(action[:1]) + action[1:] + " template versions",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Actor       string `header:"X-Actor-Id"`
		ProjectType string `path:"project_type"`
		Version     int    `query:"version" minimum:"0" doc:"Version, every version when omitted"`
	}) (*struct {
		Body TemplateStateResponse `json:"body"`
	}, error) {
		n, err := s.cfg.Templates.SetActive(ctx, s.tenant(ctx), template.SetActiveRequest{
			ProjectType: input.ProjectType,
			Version:     input.Version,
			Active:      active,
			Actor:       input.Actor,
		})
		if err != nil {
			return nil, s.handleError(err)
		}
		return &struct {
			Body TemplateStateResponse `json:"body"`
		}{Body: TemplateStateResponse{ProjectType: input.ProjectType, Active: active, Versions: n}}, nil
	})
}

func (s *server) registerProjects(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project and instantiate its checklist",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Actor string               `header:"X-Actor-Id"`
		Body  CreateProjectRequest `json:"body"`
	}) (*struct {
		Body *project.CreateResult `json:"body"`
	}, error) {
		res, err := s.cfg.Projects.Create(ctx, s.tenant(ctx), project.CreateRequest{
			ID:          input.Body.ID,
			Name:        input.Body.Name,
			ProjectType: input.Body.ProjectType,
			Description: input.Body.Description,
			Actor:       input.Actor,
		})
		if err != nil {
			return nil, s.handleError(err)
		}
		return &struct {
			Body *project.CreateResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectType string `query:"project_type"`
		Status      string `query:"status" doc:"active or archived"`
		Limit       int    `query:"limit" minimum:"0"`
		Offset      int    `query:"offset" minimum:"0"`
	}) (*struct {
		Body []project.ProjectSummary `json:"body"`
	}, error) {
		list, err := s.cfg.Projects.List(ctx, s.tenant(ctx), project.ListOptions{
			ProjectType: input.ProjectType,
			Status:      project.Status(input.Status),
			Limit:       input.Limit,
			Offset:      input.Offset,
		})
		if err != nil {
			return nil, s.handleError(err)
		}
		if list == nil {
			list = []project.ProjectSummary{}
		}
		return &struct {
			Body []project.ProjectSummary `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/archive",
		Summary:     "Archive project",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Actor     string `header:"X-Actor-Id"`
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body *project.Project `json:"body"`
	}, error) {
		proj, err := s.cfg.Projects.Archive(ctx, s.tenant(ctx), input.ProjectID, input.Actor)
		if err != nil {
			return nil, s.handleError(err)
		}
		return &struct {
			Body *project.Project `json:"body"`
		}{Body: proj}, nil
	})
}

func (s *server) registerChecklists(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "instantiate-checklist",
		Method:        http.MethodPost,
		Path:          "/checklists",
		Summary:       "Instantiate checklist",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Actor string             `header:"X-Actor-Id"`
		Body  InstantiateRequest `json:"body"`
	}) (*struct {
		Body *checklist.View `json:"body"`
	}, error) {
		view, err := s.cfg.Checklists.Instantiate(ctx, s.tenant(ctx), input.Body.ProjectID, input.Body.ProjectType, input.Actor)
		if err != nil {
			return nil, s.handleError(err)
		}
		return &struct {
			Body *checklist.View `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-checklist",
		Method:      http.MethodGet,
		Path:        "/checklists/{project_id}",
		Summary:     "Get checklist with progress",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body *checklist.View `json:"body"`
	}, error) {
		view, err := s.cfg.Checklists.Get(ctx, s.tenant(ctx), input.ProjectID)
		if err != nil {
			return nil, s.handleError(err)
		}
		return &struct {
			Body *checklist.View `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-step-status",
		Method:      http.MethodPatch,
		Path:        "/checklists/{project_id}/phases/{phase_id}/steps/{step_id}",
		Summary:     "Update step status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		Actor     string            `header:"X-Actor-Id"`
		ProjectID string            `path:"project_id"`
		PhaseID   string            `path:"phase_id"`
		StepID    string            `path:"step_id"`
		Body      UpdateStepRequest `json:"body"`
	}) (*struct {
		Body *checklist.View `json:"body"`
	}, error) {
		view, err := s.cfg.Checklists.UpdateStepStatus(ctx, s.tenant(ctx), checklist.UpdateStepRequest{
			ProjectID:       input.ProjectID,
			PhaseID:         input.PhaseID,
			StepID:          input.StepID,
			Status:          input.Body.Status,
			ExpectedVersion: input.Body.ExpectedVersion,
			Actor:           input.Actor,
		})
		if err != nil {
			return nil, s.handleError(err)
		}
		return &struct {
			Body *checklist.View `json:"body"`
		}{Body: view}, nil
	})
}

func (s *server) registerActivity(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "Recent activity, newest first",
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
		StepID    string `query:"step_id"`
		Type      string `query:"type"`
		Limit     int    `query:"limit" minimum:"0"`
		Offset    int    `query:"offset" minimum:"0"`
	}) (*struct {
		Body []activity.ActivityEntry `json:"body"`
	}, error) {
		opts := activity.ListActivityOptions{
			ProjectID: input.ProjectID,
			Limit:     input.Limit,
			Offset:    input.Offset,
		}
		if input.StepID != "" {
			opts.StepID = &input.StepID
		}
		if input.Type != "" {
			t := activity.ActivityType(input.Type)
			opts.ActivityType = &t
		}
		entries, err := s.cfg.Activity.GetRecentActivity(ctx, s.tenant(ctx), opts)
		if err != nil {
			return nil, s.handleError(err)
		}
		if entries == nil {
			entries = []activity.ActivityEntry{}
		}
		return &struct {
			Body []activity.ActivityEntry `json:"body"`
		}{Body: entries}, nil
	})
}
