package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/project"
	"github.com/rpggio/phaseline/internal/domain/template"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, tenantID string, proj *project.Project) error {
	args := m.Called(ctx, tenantID, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, tenantID, id string) (*project.Project, error) {
	args := m.Called(ctx, tenantID, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context, tenantID string, opts project.ListOptions) ([]project.ProjectSummary, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]project.ProjectSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Archive(ctx context.Context, tenantID, id string, archivedAt time.Time) error {
	args := m.Called(ctx, tenantID, id, archivedAt)
	return args.Error(0)
}

func (m *ProjectRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// TemplateRepository is a mock for template.Repository.
type TemplateRepository struct {
	mock.Mock
}

func (m *TemplateRepository) Create(ctx context.Context, tenantID string, tmpl *template.Template) error {
	args := m.Called(ctx, tenantID, tmpl)
	return args.Error(0)
}

func (m *TemplateRepository) Get(ctx context.Context, tenantID, projectType string, version int) (*template.Template, error) {
	args := m.Called(ctx, tenantID, projectType, version)
	if tmpl, ok := args.Get(0).(*template.Template); ok {
		return tmpl, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TemplateRepository) GetLatest(ctx context.Context, tenantID, projectType string) (*template.Template, error) {
	args := m.Called(ctx, tenantID, projectType)
	if tmpl, ok := args.Get(0).(*template.Template); ok {
		return tmpl, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TemplateRepository) GetLatestActive(ctx context.Context, tenantID, projectType string) (*template.Template, error) {
	args := m.Called(ctx, tenantID, projectType)
	if tmpl, ok := args.Get(0).(*template.Template); ok {
		return tmpl, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TemplateRepository) SetActive(ctx context.Context, tenantID, projectType string, version int, active bool) (int, error) {
	args := m.Called(ctx, tenantID, projectType, version, active)
	return args.Int(0), args.Error(1)
}

func (m *TemplateRepository) List(ctx context.Context, tenantID string, opts template.ListOptions) ([]template.TemplateSummary, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]template.TemplateSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TemplateRepository) Search(ctx context.Context, tenantID, query string, opts template.ListOptions) ([]template.TemplateSummary, error) {
	args := m.Called(ctx, tenantID, query, opts)
	if list, ok := args.Get(0).([]template.TemplateSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// TemplateSource is a mock for the template lookups made by checklist and
// project services.
type TemplateSource struct {
	mock.Mock
}

func (m *TemplateSource) Resolve(ctx context.Context, tenantID, projectType string) (*template.Template, error) {
	args := m.Called(ctx, tenantID, projectType)
	if tmpl, ok := args.Get(0).(*template.Template); ok {
		return tmpl, args.Error(1)
	}
	return nil, args.Error(1)
}

// ChecklistRepository is a mock for checklist.Repository.
type ChecklistRepository struct {
	mock.Mock
}

func (m *ChecklistRepository) Create(ctx context.Context, tenantID string, cl *checklist.ProjectChecklist) error {
	args := m.Called(ctx, tenantID, cl)
	return args.Error(0)
}

func (m *ChecklistRepository) GetByProject(ctx context.Context, tenantID, projectID string) (*checklist.ProjectChecklist, error) {
	args := m.Called(ctx, tenantID, projectID)
	if cl, ok := args.Get(0).(*checklist.ProjectChecklist); ok {
		return cl, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChecklistRepository) Save(ctx context.Context, tenantID string, cl *checklist.ProjectChecklist, expectedVersion int64) error {
	args := m.Called(ctx, tenantID, cl, expectedVersion)
	return args.Error(0)
}

// Checklists is a mock for project.Checklists.
type Checklists struct {
	mock.Mock
}

func (m *Checklists) InstantiateFromTemplate(ctx context.Context, tenantID, projectID string, tmpl *template.Template, actor string) (*checklist.View, error) {
	args := m.Called(ctx, tenantID, projectID, tmpl, actor)
	if view, ok := args.Get(0).(*checklist.View); ok {
		return view, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Checklists) Archive(ctx context.Context, tenantID, projectID, actor string) (*checklist.View, error) {
	args := m.Called(ctx, tenantID, projectID, actor)
	if view, ok := args.Get(0).(*checklist.View); ok {
		return view, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Publisher is a mock for checklist.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, evt checklist.Event) {
	m.Called(ctx, evt)
}
