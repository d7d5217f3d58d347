package checklist

import (
	"context"
	"time"
)

// Event type names.
const (
	EventStepStatusChanged = "step.status_changed"
	EventPhaseCompleted    = "phase.completed"
	EventPhaseUnlocked     = "phase.unlocked"
)

// Event is a domain event emitted after a successful mutation.
type Event interface {
	EventType() string
}

// StepStatusChanged is emitted for every applied status change.
type StepStatusChanged struct {
	ChecklistID     string     `json:"checklist_id"`
	ProjectID       string     `json:"project_id"`
	TenantID        string     `json:"tenant_id"`
	PhaseID         string     `json:"phase_id"`
	StepID          string     `json:"step_id"`
	From            StepStatus `json:"from"`
	To              StepStatus `json:"to"`
	Actor           string     `json:"actor"`
	Version         int64      `json:"version"`
	GatingViolation bool       `json:"gating_violation,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

func (StepStatusChanged) EventType() string { return EventStepStatusChanged }

// PhaseCompletedEvent is emitted when a phase's derived status becomes completed.
type PhaseCompletedEvent struct {
	ChecklistID string    `json:"checklist_id"`
	ProjectID   string    `json:"project_id"`
	TenantID    string    `json:"tenant_id"`
	PhaseID     string    `json:"phase_id"`
	Version     int64     `json:"version"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (PhaseCompletedEvent) EventType() string { return EventPhaseCompleted }

// PhaseUnlocked is emitted when gating releases a phase.
type PhaseUnlocked struct {
	ChecklistID string    `json:"checklist_id"`
	ProjectID   string    `json:"project_id"`
	TenantID    string    `json:"tenant_id"`
	PhaseID     string    `json:"phase_id"`
	Version     int64     `json:"version"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (PhaseUnlocked) EventType() string { return EventPhaseUnlocked }

// Publisher delivers domain events. Publish must not block on delivery.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}
