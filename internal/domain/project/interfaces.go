package project

import (
	"context"
	"time"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/template"
)

// Repository provides persistence for projects.
type Repository interface {
	Create(ctx context.Context, tenantID string, proj *Project) error
	Get(ctx context.Context, tenantID, id string) (*Project, error)
	List(ctx context.Context, tenantID string, opts ListOptions) ([]ProjectSummary, error)
	Archive(ctx context.Context, tenantID, id string, archivedAt time.Time) error
	Delete(ctx context.Context, tenantID, id string) error
}

// TemplateSource resolves the newest active template of a project type.
type TemplateSource interface {
	Resolve(ctx context.Context, tenantID, projectType string) (*template.Template, error)
}

// Checklists instantiates and archives project checklists.
type Checklists interface {
	InstantiateFromTemplate(ctx context.Context, tenantID, projectID string, tmpl *template.Template, actor string) (*checklist.View, error)
	Archive(ctx context.Context, tenantID, projectID, actor string) (*checklist.View, error)
}

// ActivityRepository logs project activities.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}
