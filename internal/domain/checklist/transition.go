package checklist

var allowedTransitions = map[StepStatus][]StepStatus{
	StatusPending:    {StatusInProgress, StatusSkipped, StatusBlocked},
	StatusInProgress: {StatusCompleted, StatusBlocked, StatusPending},
	StatusBlocked:    {StatusPending},
	StatusCompleted:  {StatusInProgress},
	StatusSkipped:    {StatusPending},
}

// ValidateTransition checks a status change against the transition table.
func ValidateTransition(from, to StepStatus) error {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// AllowedTransitions lists the statuses reachable from the given status.
func AllowedTransitions(from StepStatus) []StepStatus {
	return append([]StepStatus(nil), allowedTransitions[from]...)
}

// IsReopen reports whether a transition reopens finished work.
func IsReopen(from, to StepStatus) bool {
	return from == StatusCompleted && to == StatusInProgress
}

// unmetDependencies returns the dependsOn IDs of step that are not yet done.
func unmetDependencies(cl *ProjectChecklist, step *Step) []string {
	var unmet []string
	for _, depID := range step.DependsOn {
		dep, ok := cl.StepByID(depID)
		if !ok || !dep.Status.Done() {
			unmet = append(unmet, depID)
		}
	}
	return unmet
}
