package checklist

import (
	"time"

	"github.com/rpggio/phaseline/internal/domain/template"
)

// StepStatus represents the workflow state of a checklist step
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
	StatusSkipped    StepStatus = "skipped"
	StatusBlocked    StepStatus = "blocked"
)

// Valid reports whether s is a known step status.
func (s StepStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusSkipped, StatusBlocked:
		return true
	}
	return false
}

// Done reports whether the status satisfies dependencies and phase thresholds.
func (s StepStatus) Done() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// PhaseStatus is the derived state of a phase.
type PhaseStatus string

const (
	PhaseLocked     PhaseStatus = "locked"
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
)

// ProjectChecklist is the per-project instance of a template.
type ProjectChecklist struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	ProjectID       string     `json:"project_id"`
	ProjectType     string     `json:"project_type"`
	TemplateVersion int        `json:"template_version"`
	Phases          []Phase    `json:"phases"`
	Version         int64      `json:"version"`
	Archived        bool       `json:"archived"`
	CreatedAt       time.Time  `json:"created_at"`
	LastModifiedAt  time.Time  `json:"last_modified_at"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
}

// Phase is an instance of a template phase.
type Phase struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Position   int                `json:"position"`
	Threshold  template.Threshold `json:"threshold"`
	UnlockedAt *time.Time         `json:"unlocked_at,omitempty"`
	// Status is derived by Refresh and never persisted.
	Status PhaseStatus `json:"status"`
	Steps  []Step      `json:"steps"`
}

// Step is an instance of a template step.
type Step struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Duration          string     `json:"duration,omitempty"`
	Deliverables      []string   `json:"deliverables,omitempty"`
	PaymentPercentage float64    `json:"payment_percentage,omitempty"`
	ApprovalRequired  bool       `json:"approval_required,omitempty"`
	Critical          bool       `json:"critical,omitempty"`
	Required          bool       `json:"required"`
	DependsOn         []string   `json:"depends_on,omitempty"`
	Status            StepStatus `json:"status"`
	StatusChangedAt   *time.Time `json:"status_changed_at,omitempty"`
	StatusChangedBy   string     `json:"status_changed_by,omitempty"`
}

// View is a checklist together with its rollup statistics.
type View struct {
	Checklist *ProjectChecklist `json:"checklist"`
	Stats     Stats             `json:"stats"`
}

// Clone returns a deep copy.
func (c *ProjectChecklist) Clone() *ProjectChecklist {
	cp := *c
	cp.ArchivedAt = cloneTime(c.ArchivedAt)
	cp.Phases = make([]Phase, len(c.Phases))
	for i, phase := range c.Phases {
		ph := phase
		ph.UnlockedAt = cloneTime(phase.UnlockedAt)
		ph.Threshold.StepIDs = cloneStrings(phase.Threshold.StepIDs)
		ph.Steps = make([]Step, len(phase.Steps))
		for j, step := range phase.Steps {
			st := step
			st.Deliverables = cloneStrings(step.Deliverables)
			st.DependsOn = cloneStrings(step.DependsOn)
			st.StatusChangedAt = cloneTime(step.StatusChangedAt)
			ph.Steps[j] = st
		}
		cp.Phases[i] = ph
	}
	return &cp
}

// Refresh recomputes the derived status of every phase.
func (c *ProjectChecklist) Refresh() {
	for i := range c.Phases {
		c.Phases[i].Status = derivePhaseStatus(&c.Phases[i])
	}
}

// Locate returns the indexes of a step within a phase.
func (c *ProjectChecklist) Locate(phaseID, stepID string) (int, int, bool) {
	for i := range c.Phases {
		if c.Phases[i].ID != phaseID {
			continue
		}
		for j := range c.Phases[i].Steps {
			if c.Phases[i].Steps[j].ID == stepID {
				return i, j, true
			}
		}
		return i, -1, false
	}
	return -1, -1, false
}

// StepByID finds a step anywhere in the checklist.
func (c *ProjectChecklist) StepByID(stepID string) (*Step, bool) {
	for i := range c.Phases {
		for j := range c.Phases[i].Steps {
			if c.Phases[i].Steps[j].ID == stepID {
				return &c.Phases[i].Steps[j], true
			}
		}
	}
	return nil, false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
