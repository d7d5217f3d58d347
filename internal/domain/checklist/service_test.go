package checklist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/template"
	"github.com/rpggio/phaseline/internal/repository"
	"github.com/rpggio/phaseline/internal/repository/mocks"
)

const tenantID = "tenant1"

type fixture struct {
	repo       *mocks.ChecklistRepository
	templates  *mocks.TemplateSource
	activities *mocks.ActivityRepository
	publisher  *mocks.Publisher
	svc        *checklist.Service
}

func newFixture(t *testing.T, mode checklist.GatingMode) *fixture {
	t.Helper()
	f := &fixture{
		repo:       &mocks.ChecklistRepository{},
		templates:  &mocks.TemplateSource{},
		activities: &mocks.ActivityRepository{},
		publisher:  &mocks.Publisher{},
	}
	f.activities.On("Log", mock.Anything, tenantID, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return()

	svc, err := checklist.NewService(f.repo, f.templates, f.activities, checklist.Options{
		Gating:    mode,
		Publisher: f.publisher,
	}, nil)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) loggedTypes() []activity.ActivityType {
	var types []activity.ActivityType
	for _, call := range f.activities.Calls {
		if call.Method == "Log" {
			types = append(types, call.Arguments.Get(2).(*activity.ActivityEntry).ActivityType)
		}
	}
	return types
}

func (f *fixture) publishedEvents() []checklist.Event {
	var events []checklist.Event
	for _, call := range f.publisher.Calls {
		events = append(events, call.Arguments.Get(1).(checklist.Event))
	}
	return events
}

func updateReq(stepPhase, stepID string, status checklist.StepStatus, version int64) checklist.UpdateStepRequest {
	return checklist.UpdateStepRequest{
		ProjectID:       "proj1",
		PhaseID:         stepPhase,
		StepID:          stepID,
		Status:          status,
		ExpectedVersion: version,
		Actor:           "alice",
	}
}

func TestNewService_RejectsUnknownGating(t *testing.T) {
	_, err := checklist.NewService(&mocks.ChecklistRepository{}, &mocks.TemplateSource{}, nil, checklist.Options{Gating: "lenient"}, nil)
	require.ErrorIs(t, err, checklist.ErrInvalidInput)

	svc, err := checklist.NewService(&mocks.ChecklistRepository{}, &mocks.TemplateSource{}, nil, checklist.Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, checklist.GatingStrict, svc.Gating())
}

func TestChecklistService_Instantiate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	f.templates.On("Resolve", ctx, tenantID, "commercial_kitchen").Return(fixtureTemplate(), nil)
	f.repo.On("Create", ctx, tenantID, mock.AnythingOfType("*checklist.ProjectChecklist")).Return(nil)

	view, err := f.svc.Instantiate(ctx, tenantID, "proj1", "commercial_kitchen", "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), view.Checklist.Version)
	require.Equal(t, "proj1", view.Checklist.ProjectID)
	require.Zero(t, view.Stats.OverallPercent)
	require.Len(t, view.Stats.PerPhase, 2)
	require.Equal(t, []activity.ActivityType{activity.TypeChecklistInstantiated}, f.loggedTypes())
}

func TestChecklistService_InstantiateTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	f.templates.On("Resolve", ctx, tenantID, "commercial_kitchen").Return(fixtureTemplate(), nil)
	f.repo.On("Create", ctx, tenantID, mock.Anything).Return(repository.ErrConflict)

	_, err := f.svc.Instantiate(ctx, tenantID, "proj1", "commercial_kitchen", "alice")
	require.ErrorIs(t, err, checklist.ErrAlreadyInstantiated)
}

func TestChecklistService_InstantiateUnknownType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	f.templates.On("Resolve", ctx, tenantID, "submarine").Return(nil, template.ErrTemplateNotFound)

	_, err := f.svc.Instantiate(ctx, tenantID, "proj1", "submarine", "alice")
	require.ErrorIs(t, err, template.ErrTemplateNotFound)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestChecklistService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)
	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(nil, repository.ErrNotFound)

	_, err := f.svc.Get(ctx, tenantID, "proj1")
	require.ErrorIs(t, err, checklist.ErrChecklistNotFound)
}

func TestChecklistService_UpdateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mode    checklist.GatingMode
		prepare func(t *testing.T, cl *checklist.ProjectChecklist)
		req     checklist.UpdateStepRequest
		wantErr error
		check   func(t *testing.T, err error)
	}{
		{
			name:    "stale version",
			req:     updateReq("design", "s1", checklist.StatusInProgress, 7),
			wantErr: checklist.ErrVersionConflict,
			check: func(t *testing.T, err error) {
				var vc *checklist.VersionConflictError
				require.True(t, errors.As(err, &vc))
				require.Equal(t, int64(7), vc.Expected)
				require.Equal(t, int64(1), vc.Current)
			},
		},
		{
			name:    "unknown step",
			req:     updateReq("design", "s9", checklist.StatusInProgress, 1),
			wantErr: checklist.ErrStepNotFound,
		},
		{
			name:    "step in another phase",
			req:     updateReq("design", "s3", checklist.StatusInProgress, 1),
			wantErr: checklist.ErrStepNotFound,
		},
		{
			name:    "illegal transition",
			req:     updateReq("design", "s1", checklist.StatusCompleted, 1),
			wantErr: checklist.ErrIllegalTransition,
			check: func(t *testing.T, err error) {
				var te *checklist.TransitionError
				require.True(t, errors.As(err, &te))
				require.Equal(t, checklist.StatusPending, te.From)
				require.Equal(t, checklist.StatusCompleted, te.To)
			},
		},
		{
			name:    "unmet dependency",
			req:     updateReq("build", "s3", checklist.StatusCompleted, 1),
			wantErr: checklist.ErrDependencyNotSatisfied,
			check: func(t *testing.T, err error) {
				var de *checklist.DependencyError
				require.True(t, errors.As(err, &de))
				require.Equal(t, "s3", de.StepID)
				require.Equal(t, []string{"s1"}, de.Unmet)
			},
		},
		{
			name: "unmet dependency in advisory mode",
			mode: checklist.GatingAdvisory,
			prepare: func(t *testing.T, cl *checklist.ProjectChecklist) {
				setStatus(t, cl, "s3", checklist.StatusInProgress)
			},
			req:     updateReq("build", "s3", checklist.StatusCompleted, 1),
			wantErr: checklist.ErrDependencyNotSatisfied,
		},
		{
			name:    "locked phase",
			req:     updateReq("build", "s3", checklist.StatusInProgress, 1),
			wantErr: checklist.ErrPhaseLocked,
			check: func(t *testing.T, err error) {
				var pl *checklist.PhaseLockedError
				require.True(t, errors.As(err, &pl))
				require.Equal(t, "build", pl.PhaseID)
				require.Equal(t, "design", pl.BlockingPhaseID)
			},
		},
		{
			name: "archived",
			prepare: func(t *testing.T, cl *checklist.ProjectChecklist) {
				cl.Archived = true
			},
			req:     updateReq("design", "s1", checklist.StatusInProgress, 1),
			wantErr: checklist.ErrChecklistArchived,
		},
		{
			name:    "unknown status",
			req:     updateReq("design", "s1", checklist.StepStatus("done"), 1),
			wantErr: checklist.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mode := tt.mode
			if mode == "" {
				mode = checklist.GatingStrict
			}
			f := newFixture(t, mode)

			cl := fixtureChecklist()
			if tt.prepare != nil {
				tt.prepare(t, cl)
			}
			f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(cl, nil)

			_, err := f.svc.UpdateStepStatus(ctx, tenantID, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.check != nil {
				tt.check(t, err)
			}
			f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			require.Equal(t, int64(1), cl.Version)
			require.Empty(t, f.publishedEvents())
		})
	}
}

func TestChecklistService_UpdateStartsStep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	cl := fixtureChecklist()
	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(cl, nil)

	var saved *checklist.ProjectChecklist
	f.repo.On("Save", ctx, tenantID, mock.Anything, int64(1)).
		Run(func(args mock.Arguments) { saved = args.Get(2).(*checklist.ProjectChecklist) }).
		Return(nil)

	view, err := f.svc.UpdateStepStatus(ctx, tenantID, updateReq("design", "s1", checklist.StatusInProgress, 1))
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Equal(t, int64(2), saved.Version)
	require.Equal(t, int64(2), view.Checklist.Version)
	require.Equal(t, int64(2), view.Stats.Version)

	step, _ := view.Checklist.StepByID("s1")
	require.Equal(t, checklist.StatusInProgress, step.Status)
	require.Equal(t, "alice", step.StatusChangedBy)
	require.NotNil(t, step.StatusChangedAt)
	require.Equal(t, checklist.PhaseInProgress, view.Checklist.Phases[0].Status)

	// The loaded checklist is never mutated in place.
	original, _ := cl.StepByID("s1")
	require.Equal(t, checklist.StatusPending, original.Status)

	events := f.publishedEvents()
	require.Len(t, events, 1)
	changed := events[0].(checklist.StepStatusChanged)
	require.Equal(t, checklist.StatusPending, changed.From)
	require.Equal(t, checklist.StatusInProgress, changed.To)
	require.Equal(t, "alice", changed.Actor)
	require.False(t, changed.GatingViolation)
}

func TestChecklistService_CompletingPhaseUnlocksNext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	cl := fixtureChecklist()
	setStatus(t, cl, "s1", checklist.StatusCompleted)
	setStatus(t, cl, "s2", checklist.StatusInProgress)
	cl.Version = 5
	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(cl, nil)
	f.repo.On("Save", ctx, tenantID, mock.Anything, int64(5)).Return(nil)

	view, err := f.svc.UpdateStepStatus(ctx, tenantID, updateReq("design", "s2", checklist.StatusCompleted, 5))
	require.NoError(t, err)
	require.Equal(t, int64(6), view.Checklist.Version)
	require.NotNil(t, view.Checklist.Phases[1].UnlockedAt)
	require.Equal(t, checklist.PhaseCompleted, view.Checklist.Phases[0].Status)
	require.Equal(t, checklist.PhasePending, view.Checklist.Phases[1].Status)
	require.Equal(t, 100, view.Stats.PerPhase[0].Percent)
	require.Equal(t, 50, view.Stats.OverallPercent)

	require.Equal(t, []activity.ActivityType{
		activity.TypeStepStatusChanged,
		activity.TypePhaseCompleted,
		activity.TypePhaseUnlocked,
	}, f.loggedTypes())

	events := f.publishedEvents()
	require.Len(t, events, 3)
	require.Equal(t, checklist.EventStepStatusChanged, events[0].EventType())
	require.Equal(t, "design", events[1].(checklist.PhaseCompletedEvent).PhaseID)
	require.Equal(t, "build", events[2].(checklist.PhaseUnlocked).PhaseID)
}

func TestChecklistService_AdvisoryGatingRecordsViolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingAdvisory)

	cl := fixtureChecklist()
	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(cl, nil)
	f.repo.On("Save", ctx, tenantID, mock.Anything, int64(1)).Return(nil)

	view, err := f.svc.UpdateStepStatus(ctx, tenantID, updateReq("build", "s3", checklist.StatusInProgress, 1))
	require.NoError(t, err)
	require.Equal(t, int64(2), view.Checklist.Version)
	require.Nil(t, view.Checklist.Phases[1].UnlockedAt)
	require.Equal(t, checklist.PhaseInProgress, view.Checklist.Phases[1].Status)

	require.Equal(t, []activity.ActivityType{
		activity.TypeStepStatusChanged,
		activity.TypeGatingViolation,
	}, f.loggedTypes())
	require.True(t, f.publishedEvents()[0].(checklist.StepStatusChanged).GatingViolation)
}

func TestChecklistService_ReopenLowersPercent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	cl := fixtureChecklist()
	setStatus(t, cl, "s1", checklist.StatusCompleted)
	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(cl, nil)
	f.repo.On("Save", ctx, tenantID, mock.Anything, int64(1)).Return(nil)

	require.Equal(t, 50, checklist.ComputeStats(cl).PerPhase[0].Percent)

	view, err := f.svc.UpdateStepStatus(ctx, tenantID, updateReq("design", "s1", checklist.StatusInProgress, 1))
	require.NoError(t, err)
	require.Zero(t, view.Stats.PerPhase[0].Percent)
	require.Equal(t, []activity.ActivityType{activity.TypeStepReopened}, f.loggedTypes())
}

func TestChecklistService_SaveConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	moved := fixtureChecklist()
	moved.Version = 2
	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(fixtureChecklist(), nil).Once()
	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(moved, nil).Once()
	f.repo.On("Save", ctx, tenantID, mock.Anything, int64(1)).Return(repository.ErrConflict)

	_, err := f.svc.UpdateStepStatus(ctx, tenantID, updateReq("design", "s1", checklist.StatusInProgress, 1))
	var conflict *checklist.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, int64(1), conflict.Expected)
	require.Equal(t, int64(2), conflict.Current)
	require.Equal(t, []activity.ActivityType{activity.TypeConflictDetected}, f.loggedTypes())
	require.Equal(t, int64(2), f.activities.Calls[0].Arguments.Get(2).(*activity.ActivityEntry).Version)
	require.Empty(t, f.publishedEvents())
}

func TestChecklistService_SaveConflictReloadFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(fixtureChecklist(), nil).Once()
	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(nil, errors.New("disk I/O error")).Once()
	f.repo.On("Save", ctx, tenantID, mock.Anything, int64(1)).Return(repository.ErrConflict)

	_, err := f.svc.UpdateStepStatus(ctx, tenantID, updateReq("design", "s1", checklist.StatusInProgress, 1))
	var conflict *checklist.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	require.Zero(t, conflict.Current)
	require.Contains(t, err.Error(), "is stale")
}

func TestChecklistService_Archive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(fixtureChecklist(), nil)
	f.repo.On("Save", ctx, tenantID, mock.MatchedBy(func(cl *checklist.ProjectChecklist) bool {
		return cl.Archived && cl.Version == 2 && cl.ArchivedAt != nil
	}), int64(1)).Return(nil)

	view, err := f.svc.Archive(ctx, tenantID, "proj1", "alice")
	require.NoError(t, err)
	require.True(t, view.Checklist.Archived)
	require.Equal(t, []activity.ActivityType{activity.TypeChecklistArchived}, f.loggedTypes())
}

func TestChecklistService_ArchiveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, checklist.GatingStrict)

	cl := fixtureChecklist()
	cl.Archived = true
	f.repo.On("GetByProject", ctx, tenantID, "proj1").Return(cl, nil)

	view, err := f.svc.Archive(ctx, tenantID, "proj1", "alice")
	require.NoError(t, err)
	require.True(t, view.Checklist.Archived)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
