package template

import "time"

// Threshold is the mandatory completion rule of a phase. Either Fraction
// (0..1 of all steps) or StepIDs (an explicit set) applies; required steps
// must always be done regardless.
type Threshold struct {
	Fraction float64  `json:"fraction,omitempty" yaml:"fraction,omitempty"`
	StepIDs  []string `json:"step_ids,omitempty" yaml:"step_ids,omitempty"`
}

// StepDefinition describes one step of a phase.
type StepDefinition struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description,omitempty" yaml:"description,omitempty"`
	Duration          string   `json:"duration,omitempty" yaml:"duration,omitempty"`
	Deliverables      []string `json:"deliverables,omitempty" yaml:"deliverables,omitempty"`
	PaymentPercentage float64  `json:"payment_percentage,omitempty" yaml:"payment_percentage,omitempty"`
	ApprovalRequired  bool     `json:"approval_required,omitempty" yaml:"approval_required,omitempty"`
	Critical          bool     `json:"critical,omitempty" yaml:"critical,omitempty"`
	Required          bool     `json:"required,omitempty" yaml:"required"`
	DependsOn         []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// PhaseDefinition is an ordered stage of a template.
type PhaseDefinition struct {
	ID        string           `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	Threshold Threshold        `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Steps     []StepDefinition `json:"steps" yaml:"steps"`
}

// Template is an immutable, versioned checklist definition for a project type.
type Template struct {
	TenantID          string            `json:"tenant_id"`
	ProjectType       string            `json:"project_type"`
	Version           int               `json:"version"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	EstimatedDuration string            `json:"estimated_duration,omitempty"`
	IsActive          bool              `json:"is_active"`
	Phases            []PhaseDefinition `json:"phases"`
	CreatedBy         string            `json:"created_by,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// TemplateSummary is a lightweight representation for listing
type TemplateSummary struct {
	ProjectType       string    `json:"project_type"`
	Version           int       `json:"version"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	EstimatedDuration string    `json:"estimated_duration,omitempty"`
	PhaseCount        int       `json:"phase_count"`
	StepCount         int       `json:"step_count"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	// UsageCount and LastUsedAt are derived from checklists instantiated
	// from this version.
	UsageCount int        `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// StepCount returns the number of steps across all phases.
func (t *Template) StepCount() int {
	n := 0
	for _, phase := range t.Phases {
		n += len(phase.Steps)
	}
	return n
}

// Summary builds the listing view of the template.
func (t *Template) Summary() TemplateSummary {
	return TemplateSummary{
		ProjectType:       t.ProjectType,
		Version:           t.Version,
		Name:              t.Name,
		Description:       t.Description,
		EstimatedDuration: t.EstimatedDuration,
		PhaseCount:        len(t.Phases),
		StepCount:         t.StepCount(),
		IsActive:          t.IsActive,
		CreatedAt:         t.CreatedAt,
	}
}
