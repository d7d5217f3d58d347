package checklist

import (
	"context"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/template"
)

// Repository provides persistence for checklists. Save is a compare-and-swap:
// it must fail with repository.ErrConflict unless the stored version equals
// expectedVersion.
type Repository interface {
	Create(ctx context.Context, tenantID string, cl *ProjectChecklist) error
	GetByProject(ctx context.Context, tenantID, projectID string) (*ProjectChecklist, error)
	Save(ctx context.Context, tenantID string, cl *ProjectChecklist, expectedVersion int64) error
}

// TemplateSource resolves the newest active template of a project type.
type TemplateSource interface {
	Resolve(ctx context.Context, tenantID, projectType string) (*template.Template, error)
}

// ActivityRepository logs checklist activities.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}
