package template

import (
	"context"

	"github.com/rpggio/phaseline/internal/domain/activity"
)

// Repository provides persistence for templates.
type Repository interface {
	Create(ctx context.Context, tenantID string, tmpl *Template) error
	Get(ctx context.Context, tenantID, projectType string, version int) (*Template, error)
	GetLatest(ctx context.Context, tenantID, projectType string) (*Template, error)
	GetLatestActive(ctx context.Context, tenantID, projectType string) (*Template, error)
	// SetActive flips is_active on one version, or on every version when
	// version is 0, and returns the number of versions matched.
	SetActive(ctx context.Context, tenantID, projectType string, version int, active bool) (int, error)
	List(ctx context.Context, tenantID string, opts ListOptions) ([]TemplateSummary, error)
	Search(ctx context.Context, tenantID, query string, opts ListOptions) ([]TemplateSummary, error)
}

// ActivityRepository logs registry activities.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}
