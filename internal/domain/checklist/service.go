package checklist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/template"
	"github.com/rpggio/phaseline/internal/repository"
)

// Service is the transition engine over the checklist instance store. All
// step mutations go through UpdateStepStatus.
type Service struct {
	checklists Repository
	templates  TemplateSource
	activities ActivityRepository
	publisher  Publisher
	stats      *StatsCache
	gating     GatingMode
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new checklist service.
func NewService(
	checklists Repository,
	templates TemplateSource,
	activities ActivityRepository,
	opts Options,
	logger *slog.Logger,
) (*Service, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gating, err := ParseGatingMode(string(opts.Gating))
	if err != nil {
		return nil, err
	}
	stats, err := NewStatsCache(opts.StatsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating stats cache: %w", err)
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Service{
		checklists: checklists,
		templates:  templates,
		activities: activities,
		publisher:  publisher,
		stats:      stats,
		gating:     gating,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Gating returns the configured gating mode.
func (s *Service) Gating() GatingMode {
	return s.gating
}

// Instantiate creates the checklist of a project from the newest active
// template registered for its project type.
func (s *Service) Instantiate(ctx context.Context, tenantID, projectID, projectType, actor string) (*View, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(projectType) == "" {
		return nil, ErrInvalidInput
	}
	tmpl, err := s.templates.Resolve(ctx, tenantID, projectType)
	if err != nil {
		return nil, err
	}
	return s.InstantiateFromTemplate(ctx, tenantID, projectID, tmpl, actor)
}

// InstantiateFromTemplate creates the checklist of a project from tmpl.
func (s *Service) InstantiateFromTemplate(ctx context.Context, tenantID, projectID string, tmpl *template.Template, actor string) (*View, error) {
	if strings.TrimSpace(projectID) == "" || tmpl == nil {
		return nil, ErrInvalidInput
	}

	cl := Materialize(tenantID, projectID, tmpl, s.now().UTC())
	if err := s.checklists.Create(ctx, tenantID, cl); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyInstantiated
		}
		return nil, fmt.Errorf("creating checklist: %w", err)
	}

	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		ProjectID:    projectID,
		ChecklistID:  &cl.ID,
		ActivityType: activity.TypeChecklistInstantiated,
		Actor:        actor,
		Summary:      fmt.Sprintf("instantiated %s v%d", tmpl.ProjectType, tmpl.Version),
		Version:      cl.Version,
	})
	s.logger.Info("checklist instantiated",
		"tenant_id", tenantID,
		"project_id", projectID,
		"project_type", tmpl.ProjectType,
		"template_version", tmpl.Version)

	return s.view(cl), nil
}

// Get loads a project's checklist with its stats.
func (s *Service) Get(ctx context.Context, tenantID, projectID string) (*View, error) {
	cl, err := s.load(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	return s.view(cl), nil
}

// UpdateStepStatus validates and applies a status change. Nothing is
// persisted unless every check passes and the compare-and-swap succeeds.
func (s *Service) UpdateStepStatus(ctx context.Context, tenantID string, req UpdateStepRequest) (*View, error) {
	if req.ProjectID == "" || req.PhaseID == "" || req.StepID == "" || !req.Status.Valid() {
		return nil, ErrInvalidInput
	}

	current, err := s.load(ctx, tenantID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if current.Archived {
		return nil, ErrChecklistArchived
	}
	if current.Version != req.ExpectedVersion {
		s.logConflict(ctx, tenantID, current, req)
		return nil, &VersionConflictError{Expected: req.ExpectedVersion, Current: current.Version}
	}

	updated := current.Clone()
	pi, si, ok := updated.Locate(req.PhaseID, req.StepID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrStepNotFound, req.PhaseID, req.StepID)
	}
	phase := &updated.Phases[pi]
	step := &phase.Steps[si]
	from := step.Status

	// Dependencies are checked before the transition table.
	if req.Status == StatusCompleted {
		if unmet := unmetDependencies(updated, step); len(unmet) > 0 {
			return nil, &DependencyError{StepID: step.ID, Unmet: unmet}
		}
	}
	if err := ValidateTransition(from, req.Status); err != nil {
		return nil, err
	}

	violation := false
	if phase.UnlockedAt == nil {
		blocking := blockingPhase(updated, pi)
		if s.gating == GatingStrict {
			return nil, &PhaseLockedError{PhaseID: phase.ID, BlockingPhaseID: blocking}
		}
		violation = true
		s.logger.Warn("gating violation allowed",
			"tenant_id", tenantID,
			"project_id", req.ProjectID,
			"phase_id", phase.ID,
			"blocking_phase_id", blocking)
	}

	before := make([]bool, len(updated.Phases))
	for i := range updated.Phases {
		before[i] = mandatorySatisfied(&updated.Phases[i])
	}

	now := s.now().UTC()
	step.Status = req.Status
	step.StatusChangedAt = &now
	step.StatusChangedBy = req.Actor
	unlocked := unlockReady(updated, now)
	updated.Version = current.Version + 1
	updated.LastModifiedAt = now

	if err := s.checklists.Save(ctx, tenantID, updated, req.ExpectedVersion); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			conflict := &VersionConflictError{Expected: req.ExpectedVersion}
			if latest, loadErr := s.load(ctx, tenantID, req.ProjectID); loadErr == nil {
				current = latest
				conflict.Current = latest.Version
			}
			s.logConflict(ctx, tenantID, current, req)
			return nil, conflict
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrChecklistNotFound
		}
		return nil, fmt.Errorf("saving checklist: %w", err)
	}

	var completed []int
	for i := range updated.Phases {
		if !before[i] && mandatorySatisfied(&updated.Phases[i]) {
			completed = append(completed, i)
		}
	}
	s.record(ctx, updated, req, from, violation, completed, unlocked, now)

	return s.view(updated), nil
}

// Archive marks a checklist read-only. Archiving an archived checklist is a
// no-op.
func (s *Service) Archive(ctx context.Context, tenantID, projectID, actor string) (*View, error) {
	current, err := s.load(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	if current.Archived {
		return s.view(current), nil
	}

	now := s.now().UTC()
	updated := current.Clone()
	updated.Archived = true
	updated.ArchivedAt = &now
	updated.Version = current.Version + 1
	updated.LastModifiedAt = now

	if err := s.checklists.Save(ctx, tenantID, updated, current.Version); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, &VersionConflictError{Expected: current.Version}
		}
		return nil, fmt.Errorf("archiving checklist: %w", err)
	}

	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		ProjectID:    projectID,
		ChecklistID:  &updated.ID,
		ActivityType: activity.TypeChecklistArchived,
		Actor:        actor,
		Summary:      "archived checklist",
		Version:      updated.Version,
	})
	return s.view(updated), nil
}

func (s *Service) load(ctx context.Context, tenantID, projectID string) (*ProjectChecklist, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, ErrInvalidInput
	}
	cl, err := s.checklists.GetByProject(ctx, tenantID, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChecklistNotFound
		}
		return nil, fmt.Errorf("loading checklist: %w", err)
	}
	return cl, nil
}

func (s *Service) view(cl *ProjectChecklist) *View {
	cl.Refresh()
	return &View{Checklist: cl, Stats: s.stats.Get(cl)}
}

// record writes the audit trail and emits events for an applied change.
func (s *Service) record(
	ctx context.Context,
	cl *ProjectChecklist,
	req UpdateStepRequest,
	from StepStatus,
	violation bool,
	completed, unlocked []int,
	now time.Time,
) {
	tenantID := cl.TenantID
	stepID := req.StepID

	activityType := activity.TypeStepStatusChanged
	if IsReopen(from, req.Status) {
		activityType = activity.TypeStepReopened
	}
	details, _ := json.Marshal(map[string]any{
		"phase_id": req.PhaseID,
		"from":     from,
		"to":       req.Status,
	})
	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		ProjectID:    cl.ProjectID,
		ChecklistID:  &cl.ID,
		StepID:       &stepID,
		ActivityType: activityType,
		Actor:        req.Actor,
		Summary:      fmt.Sprintf("%s: %s -> %s", stepID, from, req.Status),
		Details:      string(details),
		Version:      cl.Version,
	})
	if violation {
		s.logActivity(ctx, tenantID, &activity.ActivityEntry{
			ProjectID:    cl.ProjectID,
			ChecklistID:  &cl.ID,
			StepID:       &stepID,
			ActivityType: activity.TypeGatingViolation,
			Actor:        req.Actor,
			Summary:      fmt.Sprintf("%s changed while phase %s was locked", stepID, req.PhaseID),
			Version:      cl.Version,
		})
	}

	s.publisher.Publish(ctx, StepStatusChanged{
		ChecklistID:     cl.ID,
		ProjectID:       cl.ProjectID,
		TenantID:        tenantID,
		PhaseID:         req.PhaseID,
		StepID:          stepID,
		From:            from,
		To:              req.Status,
		Actor:           req.Actor,
		Version:         cl.Version,
		GatingViolation: violation,
		OccurredAt:      now,
	})

	for _, i := range completed {
		phaseID := cl.Phases[i].ID
		s.logActivity(ctx, tenantID, &activity.ActivityEntry{
			ProjectID:    cl.ProjectID,
			ChecklistID:  &cl.ID,
			ActivityType: activity.TypePhaseCompleted,
			Actor:        req.Actor,
			Summary:      fmt.Sprintf("phase %s completed", phaseID),
			Version:      cl.Version,
		})
		s.publisher.Publish(ctx, PhaseCompletedEvent{
			ChecklistID: cl.ID,
			ProjectID:   cl.ProjectID,
			TenantID:    tenantID,
			PhaseID:     phaseID,
			Version:     cl.Version,
			OccurredAt:  now,
		})
	}
	for _, i := range unlocked {
		phaseID := cl.Phases[i].ID
		s.logActivity(ctx, tenantID, &activity.ActivityEntry{
			ProjectID:    cl.ProjectID,
			ChecklistID:  &cl.ID,
			ActivityType: activity.TypePhaseUnlocked,
			Actor:        req.Actor,
			Summary:      fmt.Sprintf("phase %s unlocked", phaseID),
			Version:      cl.Version,
		})
		s.publisher.Publish(ctx, PhaseUnlocked{
			ChecklistID: cl.ID,
			ProjectID:   cl.ProjectID,
			TenantID:    tenantID,
			PhaseID:     phaseID,
			Version:     cl.Version,
			OccurredAt:  now,
		})
	}

	s.logger.Info("step status changed",
		"tenant_id", tenantID,
		"project_id", cl.ProjectID,
		"step_id", stepID,
		"from", from,
		"to", req.Status,
		"version", cl.Version)
}

func (s *Service) logConflict(ctx context.Context, tenantID string, current *ProjectChecklist, req UpdateStepRequest) {
	stepID := req.StepID
	s.logActivity(ctx, tenantID, &activity.ActivityEntry{
		ProjectID:    current.ProjectID,
		ChecklistID:  &current.ID,
		StepID:       &stepID,
		ActivityType: activity.TypeConflictDetected,
		Actor:        req.Actor,
		Summary:      fmt.Sprintf("stale update at version %d", req.ExpectedVersion),
		Version:      current.Version,
	})
	s.logger.Debug("version conflict",
		"tenant_id", tenantID,
		"project_id", current.ProjectID,
		"expected", req.ExpectedVersion,
		"current", current.Version)
}

func (s *Service) logActivity(ctx context.Context, tenantID string, entry *activity.ActivityEntry) {
	if s.activities == nil {
		return
	}
	if err := s.activities.Log(ctx, tenantID, entry); err != nil {
		s.logger.Warn("activity log failed", "type", entry.ActivityType, "error", err)
	}
}
