package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/project"
	"github.com/rpggio/phaseline/internal/domain/template"
)

type toolHandlers struct {
	services Services
}

func registerTools(server *sdkmcp.Server, services Services) {
	h := &toolHandlers{services: services}

	// Templates
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "register_template",
		Description: "Register a new version of a checklist template for a project type",
	}, h.registerTemplate)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_template",
		Description: "Get a template by project type, latest version unless a version is given",
	}, h.getTemplate)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_templates",
		Description: "List templates, optionally filtered by project type or search text",
	}, h.listTemplates)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_template_active",
		Description: "Activate or deactivate a template version, or every version when version is omitted; inactive templates cannot be instantiated",
	}, h.setTemplateActive)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "duplicate_template",
		Description: "Copy a template version as version 1 of a new project type",
	}, h.duplicateTemplate)

	// Projects
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_project",
		Description: "Create a project and instantiate its checklist from the newest active template",
	}, h.createProject)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List projects with their checklist versions",
	}, h.listProjects)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "archive_project",
		Description: "Archive a project and make its checklist read-only",
	}, h.archiveProject)

	// Checklists
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "instantiate_checklist",
		Description: "Create the checklist for a project id from the newest active template of a project type",
	}, h.instantiateChecklist)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_checklist",
		Description: "Get a project's checklist, its version and progress stats",
	}, h.getChecklist)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_step_status",
		Description: "Change a step's status; expected_version must equal the checklist's current version",
	}, h.updateStepStatus)

	// Activity
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_recent_activity",
		Description: "Get recent activity entries, newest first",
	}, h.getRecentActivity)
}

// Tool input types

type StepInput struct {
	ID                string   `json:"id" jsonschema:"Step id, unique within the template"`
	Name              string   `json:"name" jsonschema:"Step display name"`
	Description       string   `json:"description,omitempty"`
	Duration          string   `json:"duration,omitempty" jsonschema:"Expected duration, e.g. 2 weeks"`
	Deliverables      []string `json:"deliverables,omitempty"`
	PaymentPercentage float64  `json:"payment_percentage,omitempty" jsonschema:"Share of the contract paid on completion"`
	ApprovalRequired  bool     `json:"approval_required,omitempty"`
	Critical          bool     `json:"critical,omitempty" jsonschema:"Marks a critical milestone"`
	Required          bool     `json:"required,omitempty" jsonschema:"Must be done before the phase completes"`
	DependsOn         []string `json:"depends_on,omitempty" jsonschema:"Step ids in the same or an earlier phase"`
}

type PhaseInput struct {
	ID                string      `json:"id" jsonschema:"Phase id, unique within the template"`
	Name              string      `json:"name" jsonschema:"Phase display name"`
	ThresholdFraction float64     `json:"threshold_fraction,omitempty" jsonschema:"Fraction of steps (0..1) that must be done"`
	ThresholdStepIDs  []string    `json:"threshold_step_ids,omitempty" jsonschema:"Step ids that must be done"`
	Steps             []StepInput `json:"steps" jsonschema:"Ordered steps"`
}

type RegisterTemplateInput struct {
	ProjectType       string       `json:"project_type" jsonschema:"Project type key, e.g. commercial_kitchen"`
	Name              string       `json:"name,omitempty"`
	Description       string       `json:"description,omitempty"`
	EstimatedDuration string       `json:"estimated_duration,omitempty"`
	Phases            []PhaseInput `json:"phases" jsonschema:"Ordered phases"`
	Actor             string       `json:"actor,omitempty" jsonschema:"Who is registering"`
}

type GetTemplateInput struct {
	ProjectType string `json:"project_type" jsonschema:"Project type key"`
	Version     int    `json:"version,omitempty" jsonschema:"Template version (omit for latest)"`
}

type ListTemplatesInput struct {
	ProjectType string `json:"project_type,omitempty"`
	Query       string `json:"query,omitempty" jsonschema:"Full text search over names, phases and steps"`
	ActiveOnly  bool   `json:"active_only,omitempty" jsonschema:"Only templates marked active"`
	LatestOnly  bool   `json:"latest_only,omitempty" jsonschema:"Only the newest version of each project type"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

type SetTemplateActiveInput struct {
	ProjectType string `json:"project_type" jsonschema:"Project type key"`
	Version     int    `json:"version,omitempty" jsonschema:"Template version (omit for every version)"`
	Active      bool   `json:"active" jsonschema:"true to activate, false to deactivate"`
	Actor       string `json:"actor,omitempty"`
}

type DuplicateTemplateInput struct {
	SourceType    string `json:"source_type" jsonschema:"Project type to copy from"`
	SourceVersion int    `json:"source_version,omitempty" jsonschema:"Version to copy (omit for latest)"`
	ProjectType   string `json:"project_type" jsonschema:"New project type key; must have no templates yet"`
	Name          string `json:"name,omitempty"`
	Actor         string `json:"actor,omitempty"`
}

type CreateProjectInput struct {
	ID          string `json:"id,omitempty" jsonschema:"Project id (generated when omitted)"`
	Name        string `json:"name" jsonschema:"Project display name"`
	ProjectType string `json:"project_type" jsonschema:"Project type key with a registered template"`
	Description string `json:"description,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

type ListProjectsInput struct {
	ProjectType string `json:"project_type,omitempty"`
	Status      string `json:"status,omitempty" jsonschema:"active or archived"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

type ArchiveProjectInput struct {
	ProjectID string `json:"project_id"`
	Actor     string `json:"actor,omitempty"`
}

type InstantiateChecklistInput struct {
	ProjectID   string `json:"project_id"`
	ProjectType string `json:"project_type"`
	Actor       string `json:"actor,omitempty"`
}

type GetChecklistInput struct {
	ProjectID string `json:"project_id"`
}

type UpdateStepStatusInput struct {
	ProjectID       string `json:"project_id"`
	PhaseID         string `json:"phase_id"`
	StepID          string `json:"step_id"`
	Status          string `json:"status" jsonschema:"pending, in_progress, completed, skipped or blocked"`
	ExpectedVersion int64  `json:"expected_version" jsonschema:"Checklist version last read"`
	Actor           string `json:"actor,omitempty"`
}

type GetRecentActivityInput struct {
	ProjectID string `json:"project_id,omitempty"`
	StepID    string `json:"step_id,omitempty"`
	Type      string `json:"type,omitempty" jsonschema:"Activity type filter, e.g. step_status_changed"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// Tool output types

type SetTemplateActiveOutput struct {
	ProjectType string `json:"project_type"`
	Active      bool   `json:"active"`
	Versions    int    `json:"versions"`
}

type TemplateListOutput struct {
	Templates []template.TemplateSummary `json:"templates"`
}

type ProjectListOutput struct {
	Projects []project.ProjectSummary `json:"projects"`
}

type ActivityOutput struct {
	Entries []activity.ActivityEntry `json:"entries"`
}

func (p PhaseInput) definition() template.PhaseDefinition {
	def := template.PhaseDefinition{
		ID:   p.ID,
		Name: p.Name,
		Threshold: template.Threshold{
			Fraction: p.ThresholdFraction,
			StepIDs:  p.ThresholdStepIDs,
		},
		Steps: make([]template.StepDefinition, 0, len(p.Steps)),
	}
	for _, s := range p.Steps {
		def.Steps = append(def.Steps, template.StepDefinition{
			ID:                s.ID,
			Name:              s.Name,
			Description:       s.Description,
			Duration:          s.Duration,
			Deliverables:      s.Deliverables,
			PaymentPercentage: s.PaymentPercentage,
			ApprovalRequired:  s.ApprovalRequired,
			Critical:          s.Critical,
			Required:          s.Required,
			DependsOn:         s.DependsOn,
		})
	}
	return def
}

func (h *toolHandlers) registerTemplate(ctx context.Context, _ *sdkmcp.CallToolRequest, input RegisterTemplateInput) (*sdkmcp.CallToolResult, any, error) {
	req := template.RegisterRequest{
		ProjectType:       input.ProjectType,
		Name:              input.Name,
		Description:       input.Description,
		EstimatedDuration: input.EstimatedDuration,
		CreatedBy:         actorOr(ctx, input.Actor),
	}
	for _, phase := range input.Phases {
		req.Phases = append(req.Phases, phase.definition())
	}

	tmpl, err := h.services.Templates.Register(ctx, getTenantID(ctx), req)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return nil, tmpl, nil
}

func (h *toolHandlers) getTemplate(ctx context.Context, _ *sdkmcp.CallToolRequest, input GetTemplateInput) (*sdkmcp.CallToolResult, any, error) {
	tmpl, err := h.services.Templates.Get(ctx, getTenantID(ctx), input.ProjectType, input.Version)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return nil, tmpl, nil
}

func (h *toolHandlers) listTemplates(ctx context.Context, _ *sdkmcp.CallToolRequest, input ListTemplatesInput) (*sdkmcp.CallToolResult, any, error) {
	list, err := h.services.Templates.List(ctx, getTenantID(ctx), template.ListOptions{
		ProjectType: input.ProjectType,
		Query:       input.Query,
		ActiveOnly:  input.ActiveOnly,
		LatestOnly:  input.LatestOnly,
		Limit:       input.Limit,
		Offset:      input.Offset,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	if list == nil {
		list = []template.TemplateSummary{}
	}
	return nil, TemplateListOutput{Templates: list}, nil
}

func (h *toolHandlers) setTemplateActive(ctx context.Context, _ *sdkmcp.CallToolRequest, input SetTemplateActiveInput) (*sdkmcp.CallToolResult, any, error) {
	n, err := h.services.Templates.SetActive(ctx, getTenantID(ctx), template.SetActiveRequest{
		ProjectType: input.ProjectType,
		Version:     input.Version,
		Active:      input.Active,
		Actor:       actorOr(ctx, input.Actor),
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return nil, SetTemplateActiveOutput{ProjectType: input.ProjectType, Active: input.Active, Versions: n}, nil
}

func (h *toolHandlers) duplicateTemplate(ctx context.Context, _ *sdkmcp.CallToolRequest, input DuplicateTemplateInput) (*sdkmcp.CallToolResult, any, error) {
	tmpl, err := h.services.Templates.Duplicate(ctx, getTenantID(ctx), template.DuplicateRequest{
		SourceType:    input.SourceType,
		SourceVersion: input.SourceVersion,
		ProjectType:   input.ProjectType,
		Name:          input.Name,
		Actor:         actorOr(ctx, input.Actor),
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return nil, tmpl, nil
}

func (h *toolHandlers) createProject(ctx context.Context, _ *sdkmcp.CallToolRequest, input CreateProjectInput) (*sdkmcp.CallToolResult, any, error) {
	res, err := h.services.Projects.Create(ctx, getTenantID(ctx), project.CreateRequest{
		ID:          input.ID,
		Name:        input.Name,
		ProjectType: input.ProjectType,
		Description: input.Description,
		Actor:       actorOr(ctx, input.Actor),
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return nil, res, nil
}

func (h *toolHandlers) listProjects(ctx context.Context, _ *sdkmcp.CallToolRequest, input ListProjectsInput) (*sdkmcp.CallToolResult, any, error) {
	list, err := h.services.Projects.List(ctx, getTenantID(ctx), project.ListOptions{
		ProjectType: input.ProjectType,
		Status:      project.Status(input.Status),
		Limit:       input.Limit,
		Offset:      input.Offset,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	if list == nil {
		list = []project.ProjectSummary{}
	}
	return nil, ProjectListOutput{Projects: list}, nil
}

func (h *toolHandlers) archiveProject(ctx context.Context, _ *sdkmcp.CallToolRequest, input ArchiveProjectInput) (*sdkmcp.CallToolResult, any, error) {
	proj, err := h.services.Projects.Archive(ctx, getTenantID(ctx), input.ProjectID, actorOr(ctx, input.Actor))
	if err != nil {
		return errorResult(err), nil, nil
	}
	return nil, proj, nil
}

func (h *toolHandlers) instantiateChecklist(ctx context.Context, _ *sdkmcp.CallToolRequest, input InstantiateChecklistInput) (*sdkmcp.CallToolResult, any, error) {
	view, err := h.services.Checklists.Instantiate(ctx, getTenantID(ctx), input.ProjectID, input.ProjectType, actorOr(ctx, input.Actor))
	if err != nil {
		return errorResult(err), nil, nil
	}
	return nil, view, nil
}

func (h *toolHandlers) getChecklist(ctx context.Context, _ *sdkmcp.CallToolRequest, input GetChecklistInput) (*sdkmcp.CallToolResult, any, error) {
	view, err := h.services.Checklists.Get(ctx, getTenantID(ctx), input.ProjectID)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return nil, view, nil
}

func (h *toolHandlers) updateStepStatus(ctx context.Context, _ *sdkmcp.CallToolRequest, input UpdateStepStatusInput) (*sdkmcp.CallToolResult, any, error) {
	view, err := h.services.Checklists.UpdateStepStatus(ctx, getTenantID(ctx), checklist.UpdateStepRequest{
		ProjectID:       input.ProjectID,
		PhaseID:         input.PhaseID,
		StepID:          input.StepID,
		Status:          checklist.StepStatus(input.Status),
		ExpectedVersion: input.ExpectedVersion,
		Actor:           actorOr(ctx, input.Actor),
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return nil, view, nil
}

func (h *toolHandlers) getRecentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, input GetRecentActivityInput) (*sdkmcp.CallToolResult, any, error) {
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

	entries, err := h.services.Activity.GetRecentActivity(ctx, getTenantID(ctx), opts)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	return nil, ActivityOutput{Entries: entries}, nil
}
