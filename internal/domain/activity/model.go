package activity

import "time"

// ActivityType represents the type of audit event
type ActivityType string

const (
	TypeTemplateRegistered    ActivityType = "template_registered"
	TypeTemplateActivated     ActivityType = "template_activated"
	TypeTemplateDeactivated   ActivityType = "template_deactivated"
	TypeProjectCreated        ActivityType = "project_created"
	TypeProjectArchived       ActivityType = "project_archived"
	TypeChecklistInstantiated ActivityType = "checklist_instantiated"
	TypeChecklistArchived     ActivityType = "checklist_archived"
	TypeStepStatusChanged     ActivityType = "step_status_changed"
	TypeStepReopened          ActivityType = "step_reopened"
	TypePhaseCompleted        ActivityType = "phase_completed"
	TypePhaseUnlocked         ActivityType = "phase_unlocked"
	TypeGatingViolation       ActivityType = "gating_violation"
	TypeConflictDetected      ActivityType = "conflict_detected"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TenantID     string       `json:"tenant_id"`
	ProjectID    string       `json:"project_id,omitempty"`
	ChecklistID  *string      `json:"checklist_id,omitempty"`
	StepID       *string      `json:"step_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Actor        string       `json:"actor,omitempty"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
	Version      int64        `json:"version"`
}
