package project_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/project"
	"github.com/rpggio/phaseline/internal/domain/template"
	"github.com/rpggio/phaseline/internal/repository"
	"github.com/rpggio/phaseline/internal/repository/mocks"
)

func TestProjectService_CreateInstantiatesChecklist(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"
	tmpl := &template.Template{ProjectType: "cold_room", Version: 2}

	repo := &mocks.ProjectRepository{}
	templates := &mocks.TemplateSource{}
	checklists := &mocks.Checklists{}
	activities := &mocks.ActivityRepository{}

	templates.On("Resolve", ctx, tenantID, "cold_room").Return(tmpl, nil)
	repo.On("Create", ctx, tenantID, mock.AnythingOfType("*project.Project")).Return(nil)
	activities.On("Log", ctx, tenantID, mock.Anything).Return(nil)
	checklists.On("InstantiateFromTemplate", ctx, tenantID, mock.AnythingOfType("string"), tmpl, "alice").
		Return(&checklist.View{Checklist: &checklist.ProjectChecklist{Version: 1}}, nil)

	svc := project.NewService(repo, templates, checklists, activities, nil)
	res, err := svc.Create(ctx, tenantID, project.CreateRequest{Name: "Hotel cold room", ProjectType: "cold_room", Actor: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Project.ID)
	require.Equal(t, project.StatusActive, res.Project.Status)
	require.Equal(t, int64(1), res.Checklist.Checklist.Version)
	checklists.AssertExpectations(t)
}

func TestProjectService_CreateUnknownType(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"

	repo := &mocks.ProjectRepository{}
	templates := &mocks.TemplateSource{}
	templates.On("Resolve", ctx, tenantID, "submarine").Return(nil, template.ErrTemplateNotFound)

	svc := project.NewService(repo, templates, &mocks.Checklists{}, nil, nil)
	_, err := svc.Create(ctx, tenantID, project.CreateRequest{Name: "Sub", ProjectType: "submarine"})
	require.ErrorIs(t, err, template.ErrTemplateNotFound)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"

	repo := &mocks.ProjectRepository{}
	svc := project.NewService(repo, &mocks.TemplateSource{}, &mocks.Checklists{}, nil, nil)
	_, err := svc.Create(ctx, tenantID, project.CreateRequest{Name: "", ProjectType: "cold_room"})
	require.ErrorIs(t, err, project.ErrInvalidInput)
	_, err = svc.Create(ctx, tenantID, project.CreateRequest{Name: "x"})
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestProjectService_CreateDuplicateID(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"

	repo := &mocks.ProjectRepository{}
	templates := &mocks.TemplateSource{}
	templates.On("Resolve", ctx, tenantID, "cold_room").Return(&template.Template{ProjectType: "cold_room", Version: 1}, nil)
	repo.On("Create", ctx, tenantID, mock.Anything).Return(repository.ErrConflict)

	svc := project.NewService(repo, templates, &mocks.Checklists{}, nil, nil)
	_, err := svc.Create(ctx, tenantID, project.CreateRequest{ID: "p1", Name: "x", ProjectType: "cold_room"})
	require.ErrorIs(t, err, project.ErrProjectExists)
}

func TestProjectService_CreateRemovesProjectWhenInstantiationFails(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"
	tmpl := &template.Template{ProjectType: "cold_room", Version: 1}

	repo := &mocks.ProjectRepository{}
	templates := &mocks.TemplateSource{}
	checklists := &mocks.Checklists{}
	activities := &mocks.ActivityRepository{}

	templates.On("Resolve", ctx, tenantID, "cold_room").Return(tmpl, nil)
	repo.On("Create", ctx, tenantID, mock.AnythingOfType("*project.Project")).Return(nil)
	repo.On("Delete", ctx, tenantID, "p1").Return(nil)
	checklists.On("InstantiateFromTemplate", ctx, tenantID, "p1", tmpl, "alice").
		Return(nil, checklist.ErrAlreadyInstantiated)

	svc := project.NewService(repo, templates, checklists, activities, nil)
	_, err := svc.Create(ctx, tenantID, project.CreateRequest{ID: "p1", Name: "x", ProjectType: "cold_room", Actor: "alice"})
	require.ErrorIs(t, err, checklist.ErrAlreadyInstantiated)
	repo.AssertCalled(t, "Delete", ctx, tenantID, "p1")
	activities.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_ArchiveArchivesChecklist(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"

	repo := &mocks.ProjectRepository{}
	checklists := &mocks.Checklists{}
	repo.On("Get", ctx, tenantID, "p1").Return(&project.Project{ID: "p1", Name: "x", Status: project.StatusActive}, nil)
	repo.On("Archive", ctx, tenantID, "p1", mock.Anything).Return(nil)
	checklists.On("Archive", ctx, tenantID, "p1", "alice").Return(&checklist.View{}, nil)

	svc := project.NewService(repo, &mocks.TemplateSource{}, checklists, nil, nil)
	proj, err := svc.Archive(ctx, tenantID, "p1", "alice")
	require.NoError(t, err)
	require.Equal(t, project.StatusArchived, proj.Status)
	require.NotNil(t, proj.ArchivedAt)
	checklists.AssertExpectations(t)
}

func TestProjectService_ArchiveWithoutChecklist(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"

	repo := &mocks.ProjectRepository{}
	checklists := &mocks.Checklists{}
	repo.On("Get", ctx, tenantID, "p1").Return(&project.Project{ID: "p1", Status: project.StatusArchived}, nil)
	checklists.On("Archive", ctx, tenantID, "p1", "").Return(nil, checklist.ErrChecklistNotFound)

	svc := project.NewService(repo, &mocks.TemplateSource{}, checklists, nil, nil)
	_, err := svc.Archive(ctx, tenantID, "p1", "")
	require.NoError(t, err)
	repo.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "tenant1", "missing").Return(nil, repository.ErrNotFound)

	svc := project.NewService(repo, &mocks.TemplateSource{}, &mocks.Checklists{}, nil, nil)
	_, err := svc.Get(ctx, "tenant1", "missing")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestProjectService_ListRejectsUnknownStatus(t *testing.T) {
	svc := project.NewService(&mocks.ProjectRepository{}, &mocks.TemplateSource{}, &mocks.Checklists{}, nil, nil)
	_, err := svc.List(context.Background(), "tenant1", project.ListOptions{Status: "deleted"})
	require.ErrorIs(t, err, project.ErrInvalidInput)
}
