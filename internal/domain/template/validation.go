package template

import (
	"fmt"
	"strings"
)

// ValidateDefinition checks the phase/step shape and the dependency graph.
// Structural problems return ErrInvalidTemplate; an edge to an unknown step
// or to a step in a strictly later phase returns a *GraphError.
func ValidateDefinition(phases []PhaseDefinition) error {
	if len(phases) == 0 {
		return fmt.Errorf("%w: template has no phases", ErrInvalidTemplate)
	}

	phaseIDs := make(map[string]struct{}, len(phases))
	stepPhase := make(map[string]int)

	for i, phase := range phases {
		if strings.TrimSpace(phase.ID) == "" {
			return fmt.Errorf("%w: phase %d has no id", ErrInvalidTemplate, i+1)
		}
		if _, dup := phaseIDs[phase.ID]; dup {
			return fmt.Errorf("%w: duplicate phase id %q", ErrInvalidTemplate, phase.ID)
		}
		phaseIDs[phase.ID] = struct{}{}

		if len(phase.Steps) == 0 {
			return fmt.Errorf("%w: phase %q has no steps", ErrInvalidTemplate, phase.ID)
		}

		local := make(map[string]struct{}, len(phase.Steps))
		for _, step := range phase.Steps {
			if strings.TrimSpace(step.ID) == "" {
				return fmt.Errorf("%w: phase %q has a step without id", ErrInvalidTemplate, phase.ID)
			}
			if _, dup := stepPhase[step.ID]; dup {
				return fmt.Errorf("%w: duplicate step id %q", ErrInvalidTemplate, step.ID)
			}
			stepPhase[step.ID] = i
			local[step.ID] = struct{}{}
		}

		if phase.Threshold.Fraction < 0 || phase.Threshold.Fraction > 1 {
			return fmt.Errorf("%w: phase %q threshold fraction %v outside [0,1]", ErrInvalidTemplate, phase.ID, phase.Threshold.Fraction)
		}
		for _, id := range phase.Threshold.StepIDs {
			if _, ok := local[id]; !ok {
				return fmt.Errorf("%w: phase %q threshold names step %q outside the phase", ErrInvalidTemplate, phase.ID, id)
			}
		}
	}

	for i, phase := range phases {
		for _, step := range phase.Steps {
			for _, dep := range step.DependsOn {
				if dep == step.ID {
					return fmt.Errorf("%w: step %q depends on itself", ErrInvalidTemplate, step.ID)
				}
				j, ok := stepPhase[dep]
				if !ok {
					return &GraphError{Edge: Edge{From: step.ID, To: dep}, Reason: "unknown step"}
				}
				if j > i {
					return &GraphError{
						Edge:   Edge{From: step.ID, To: dep},
						Reason: fmt.Sprintf("prerequisite is in later phase %q", phases[j].ID),
					}
				}
			}
		}
	}

	if cycle := findCycle(phases); cycle != "" {
		return fmt.Errorf("%w: dependency cycle through step %q", ErrInvalidTemplate, cycle)
	}

	return nil
}

// findCycle returns a step on a dependency cycle, or "" when the graph is
// acyclic. Edges only point backwards across phases, so cycles can only form
// inside a phase.
func findCycle(phases []PhaseDefinition) string {
	deps := make(map[string][]string)
	for _, phase := range phases {
		for _, step := range phase.Steps {
			deps[step.ID] = step.DependsOn
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(deps))
	var visit func(id string) string
	visit = func(id string) string {
		switch state[id] {
		case visiting:
			return id
		case done:
			return ""
		}
		state[id] = visiting
		for _, dep := range deps[id] {
			if found := visit(dep); found != "" {
				return found
			}
		}
		state[id] = done
		return ""
	}
	for _, phase := range phases {
		for _, step := range phase.Steps {
			if found := visit(step.ID); found != "" {
				return found
			}
		}
	}
	return ""
}

// Normalize returns a deep copy of phases with thresholds made explicit: a
// phase with neither a fraction, a step set, nor any required step requires
// all of its steps.
func Normalize(phases []PhaseDefinition) []PhaseDefinition {
	out := make([]PhaseDefinition, len(phases))
	for i, phase := range phases {
		cp := phase
		cp.Threshold.StepIDs = cloneStrings(phase.Threshold.StepIDs)
		cp.Steps = make([]StepDefinition, len(phase.Steps))
		hasRequired := false
		for j, step := range phase.Steps {
			st := step
			st.DependsOn = cloneStrings(step.DependsOn)
			st.Deliverables = cloneStrings(step.Deliverables)
			cp.Steps[j] = st
			if st.Required {
				hasRequired = true
			}
		}
		if cp.Threshold.Fraction == 0 && len(cp.Threshold.StepIDs) == 0 && !hasRequired {
			cp.Threshold.Fraction = 1
		}
		out[i] = cp
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
