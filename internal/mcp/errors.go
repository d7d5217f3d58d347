package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/phaseline/internal/domain/activity"
	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/project"
	"github.com/rpggio/phaseline/internal/domain/template"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors return nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var (
		graphErr    *template.GraphError
		depErr      *checklist.DependencyError
		lockedErr   *checklist.PhaseLockedError
		transErr    *checklist.TransitionError
		conflictErr *checklist.VersionConflictError
	)
	switch {
	case errors.As(err, &graphErr):
		return &APIError{
			Code:         "INVALID_TEMPLATE_GRAPH",
			Message:      err.Error(),
			Details:      map[string]any{"from": graphErr.Edge.From, "to": graphErr.Edge.To, "reason": graphErr.Reason},
			RecoveryHint: "Point depends_on at an existing step in the same or an earlier phase",
		}
	case errors.Is(err, template.ErrInvalidTemplateGraph):
		return &APIError{Code: "INVALID_TEMPLATE_GRAPH", Message: err.Error(), RecoveryHint: "Fix depends_on edges"}
	case errors.Is(err, template.ErrInvalidTemplate), errors.Is(err, template.ErrInvalidInput):
		return &APIError{Code: "INVALID_TEMPLATE", Message: err.Error(), RecoveryHint: "Check phases, step ids and thresholds"}
	case errors.Is(err, template.ErrTemplateNotFound):
		return &APIError{Code: "TEMPLATE_NOT_FOUND", Message: "template not found", RecoveryHint: "Call list_templates or register_template"}
	case errors.Is(err, template.ErrTemplateInactive):
		return &APIError{Code: "TEMPLATE_INACTIVE", Message: err.Error(), RecoveryHint: "Call set_template_active or register a new version"}
	case errors.Is(err, template.ErrProjectTypeExists):
		return &APIError{Code: "PROJECT_TYPE_EXISTS", Message: err.Error(), RecoveryHint: "Choose a new project type or call register_template for a new version"}
	case errors.Is(err, template.ErrTemplateConflict):
		return &APIError{Code: "TEMPLATE_CONFLICT", Message: err.Error(), RecoveryHint: "Retry registration"}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Call list_projects"}
	case errors.Is(err, project.ErrProjectExists):
		return &APIError{Code: "PROJECT_EXISTS", Message: "project already exists", RecoveryHint: "Choose another id or omit it"}
	case errors.Is(err, checklist.ErrChecklistNotFound):
		return &APIError{Code: "CHECKLIST_NOT_FOUND", Message: "checklist not found", RecoveryHint: "Call instantiate_checklist first"}
	case errors.Is(err, checklist.ErrStepNotFound):
		return &APIError{Code: "STEP_NOT_FOUND", Message: err.Error(), RecoveryHint: "Check phase_id and step_id with get_checklist"}
	case errors.Is(err, checklist.ErrAlreadyInstantiated):
		return &APIError{Code: "ALREADY_INSTANTIATED", Message: "checklist already exists for project", RecoveryHint: "Call get_checklist"}
	case errors.As(err, &conflictErr):
		return &APIError{
			Code:         "VERSION_CONFLICT",
			Message:      err.Error(),
			Details:      conflictDetails(conflictErr),
			RecoveryHint: "Call get_checklist and retry with the current version",
		}
	case errors.As(err, &transErr):
		return &APIError{
			Code:         "ILLEGAL_TRANSITION",
			Message:      err.Error(),
			Details:      map[string]any{"from": transErr.From, "to": transErr.To, "allowed": checklist.AllowedTransitions(transErr.From)},
			RecoveryHint: "Move through an allowed intermediate status",
		}
	case errors.As(err, &depErr):
		return &APIError{
			Code:         "DEPENDENCY_NOT_SATISFIED",
			Message:      err.Error(),
			Details:      map[string]any{"step_id": depErr.StepID, "unmet": depErr.Unmet},
			RecoveryHint: "Complete or skip the listed steps first",
		}
	case errors.As(err, &lockedErr):
		return &APIError{
			Code:         "PHASE_LOCKED",
			Message:      err.Error(),
			Details:      map[string]any{"phase_id": lockedErr.PhaseID, "blocking_phase_id": lockedErr.BlockingPhaseID},
			RecoveryHint: "Finish the blocking phase first",
		}
	case errors.Is(err, checklist.ErrChecklistArchived):
		return &APIError{Code: "CHECKLIST_ARCHIVED", Message: "checklist is archived", RecoveryHint: "Archived checklists are read-only"}
	case errors.Is(err, checklist.ErrInvalidInput),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Check required arguments"}
	default:
		return nil
	}
}

func conflictDetails(err *checklist.VersionConflictError) map[string]any {
	details := map[string]any{"expected_version": err.Expected}
	if err.Current > 0 {
		details["current_version"] = err.Current
	}
	return details
}

// errorResult renders err as a tool error. Mapped errors carry the APIError
// as JSON text so clients can read code and details.
func errorResult(err error) *sdkmcp.CallToolResult {
	text := err.Error()
	if apiErr := MapError(err); apiErr != nil {
		if data, mErr := json.Marshal(apiErr); mErr == nil {
			text = string(data)
		}
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
	}
}
