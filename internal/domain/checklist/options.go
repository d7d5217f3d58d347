package checklist

import (
	"fmt"
	"strings"
)

// GatingMode controls enforcement of cross-phase ordering.
type GatingMode string

const (
	// GatingStrict rejects mutations in locked phases.
	GatingStrict GatingMode = "strict"
	// GatingAdvisory applies them and records the violation.
	GatingAdvisory GatingMode = "advisory"
)

// ParseGatingMode parses a gating mode name. Empty means strict.
func ParseGatingMode(s string) (GatingMode, error) {
	switch GatingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", GatingStrict:
		return GatingStrict, nil
	case GatingAdvisory:
		return GatingAdvisory, nil
	}
	return "", fmt.Errorf("%w: unknown gating mode %q", ErrInvalidInput, s)
}

// Options configures the checklist service.
type Options struct {
	Gating         GatingMode
	StatsCacheSize int
	Publisher      Publisher
}

// UpdateStepRequest is a status change request.
type UpdateStepRequest struct {
	ProjectID       string     `json:"project_id"`
	PhaseID         string     `json:"phase_id"`
	StepID          string     `json:"step_id"`
	Status          StepStatus `json:"status"`
	ExpectedVersion int64      `json:"expected_version"`
	Actor           string     `json:"actor"`
}
