package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/project"
	"github.com/rpggio/phaseline/internal/domain/template"
)

// TemplateService defines template registry operations needed by MCP.
type TemplateService interface {
	Register(ctx context.Context, tenantID string, req template.RegisterRequest) (*template.Template, error)
	Get(ctx context.Context, tenantID, projectType string, version int) (*template.Template, error)
	List(ctx context.Context, tenantID string, opts template.ListOptions) ([]template.TemplateSummary, error)
	SetActive(ctx context.Context, tenantID string, req template.SetActiveRequest) (int, error)
	Duplicate(ctx context.Context, tenantID string, req template.DuplicateRequest) (*template.Template, error)
}

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Create(ctx context.Context, tenantID string, req project.CreateRequest) (*project.CreateResult, error)
	List(ctx context.Context, tenantID string, opts project.ListOptions) ([]project.ProjectSummary, error)
	Archive(ctx context.Context, tenantID, id, actor string) (*project.Project, error)
}

// ChecklistService defines checklist operations needed by MCP.
type ChecklistService interface {
	Instantiate(ctx context.Context, tenantID, projectID, projectType, actor string) (*checklist.View, error)
	Get(ctx context.Context, tenantID, projectID string) (*checklist.View, error)
	UpdateStepStatus(ctx context.Context, tenantID string, req checklist.UpdateStepRequest) (*checklist.View, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Templates  TemplateService
	Projects   ProjectService
	Checklists ChecklistService
	Activity   ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      TenantResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	DefaultTenant string
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.DefaultTenant == "" {
		cfg.DefaultTenant = "default"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "phaseline",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is local only and never authenticates.
	identify := noAuthMiddleware(cfg.DefaultTenant)
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		identify = authMiddleware(cfg.Resolver)
	}
	// The first middleware runs outermost, so traffic logs carry the caller.
	server.AddReceivingMiddleware(identify, trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
