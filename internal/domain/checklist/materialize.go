package checklist

import (
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/phaseline/internal/domain/template"
)

// Materialize deep-copies a template's shape into a fresh checklist with
// every step pending, version 1, and the first phase unlocked.
func Materialize(tenantID, projectID string, tmpl *template.Template, now time.Time) *ProjectChecklist {
	cl := &ProjectChecklist{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		ProjectID:       projectID,
		ProjectType:     tmpl.ProjectType,
		TemplateVersion: tmpl.Version,
		Phases:          make([]Phase, len(tmpl.Phases)),
		Version:         1,
		CreatedAt:       now,
		LastModifiedAt:  now,
	}
	for i, def := range tmpl.Phases {
		phase := Phase{
			ID:       def.ID,
			Name:     def.Name,
			Position: i + 1,
			Threshold: template.Threshold{
				Fraction: def.Threshold.Fraction,
				StepIDs:  cloneStrings(def.Threshold.StepIDs),
			},
			Steps: make([]Step, len(def.Steps)),
		}
		for j, sd := range def.Steps {
			phase.Steps[j] = Step{
				ID:                sd.ID,
				Name:              sd.Name,
				Description:       sd.Description,
				Duration:          sd.Duration,
				Deliverables:      cloneStrings(sd.Deliverables),
				PaymentPercentage: sd.PaymentPercentage,
				ApprovalRequired:  sd.ApprovalRequired,
				Critical:          sd.Critical,
				Required:          sd.Required,
				DependsOn:         cloneStrings(sd.DependsOn),
				Status:            StatusPending,
			}
		}
		cl.Phases[i] = phase
	}
	unlockReady(cl, now)
	cl.Refresh()
	return cl
}
