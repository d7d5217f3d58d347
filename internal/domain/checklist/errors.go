package checklist

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrChecklistNotFound indicates no checklist exists for the project.
	ErrChecklistNotFound = errors.New("checklist not found")
	// ErrStepNotFound indicates the phase or step does not exist in the checklist.
	ErrStepNotFound = errors.New("step not found")
	// ErrAlreadyInstantiated indicates the project already has a checklist.
	ErrAlreadyInstantiated = errors.New("checklist already instantiated")
	// ErrVersionConflict indicates a stale expected version.
	ErrVersionConflict = errors.New("version conflict")
	// ErrIllegalTransition indicates a status change outside the transition table.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrDependencyNotSatisfied indicates completion with unmet dependencies.
	ErrDependencyNotSatisfied = errors.New("dependency not satisfied")
	// ErrPhaseLocked indicates a mutation in a phase that has not been unlocked.
	ErrPhaseLocked = errors.New("phase locked")
	// ErrChecklistArchived indicates a mutation against an archived checklist.
	ErrChecklistArchived = errors.New("checklist archived")
	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")
)

// TransitionError reports the rejected from/to pair.
type TransitionError struct {
	From StepStatus
	To   StepStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// DependencyError names the unmet dependencies of a step.
type DependencyError struct {
	StepID string
	Unmet  []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: step %q waits on %s", ErrDependencyNotSatisfied, e.StepID, strings.Join(e.Unmet, ", "))
}

func (e *DependencyError) Unwrap() error { return ErrDependencyNotSatisfied }

// PhaseLockedError names the locked phase and the earliest phase holding it back.
type PhaseLockedError struct {
	PhaseID         string
	BlockingPhaseID string
}

func (e *PhaseLockedError) Error() string {
	return fmt.Sprintf("%s: phase %q is waiting on phase %q", ErrPhaseLocked, e.PhaseID, e.BlockingPhaseID)
}

func (e *PhaseLockedError) Unwrap() error { return ErrPhaseLocked }

// VersionConflictError carries the version the caller expected and, when
// known, the version currently stored.
type VersionConflictError struct {
	Expected int64
	Current  int64
}

func (e *VersionConflictError) Error() string {
	if e.Current == 0 {
		return fmt.Sprintf("%s: expected version %d is stale", ErrVersionConflict, e.Expected)
	}
	return fmt.Sprintf("%s: expected version %d, current %d", ErrVersionConflict, e.Expected, e.Current)
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }
