package template

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound indicates no template is registered for the project type.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrInvalidTemplate indicates a structurally invalid template definition.
	ErrInvalidTemplate = errors.New("invalid template")
	// ErrInvalidTemplateGraph indicates a dependency edge that cannot be satisfied.
	ErrInvalidTemplateGraph = errors.New("invalid template graph")
	// ErrTemplateConflict indicates a concurrent registration took the version.
	ErrTemplateConflict = errors.New("template version already registered")
	// ErrTemplateInactive indicates every version of the project type is deactivated.
	ErrTemplateInactive = errors.New("template inactive")
	// ErrProjectTypeExists indicates a duplicate target already has templates.
	ErrProjectTypeExists = errors.New("project type already has templates")
	// ErrInvalidInput indicates invalid template input.
	ErrInvalidInput = errors.New("invalid template input")
)

// Edge is a dependsOn relation from a step to its prerequisite.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GraphError reports the offending dependency edge.
type GraphError struct {
	Edge   Edge
	Reason string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("%s: step %q depends on %q: %s", ErrInvalidTemplateGraph, e.Edge.From, e.Edge.To, e.Reason)
}

func (e *GraphError) Unwrap() error {
	return ErrInvalidTemplateGraph
}
