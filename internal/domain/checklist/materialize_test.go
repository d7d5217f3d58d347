package checklist_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/domain/template"
)

func fixtureTemplate() *template.Template {
	return &template.Template{
		ProjectType: "commercial_kitchen",
		Version:     3,
		Phases: template.Normalize([]template.PhaseDefinition{
			{
				ID:   "design",
				Name: "Design",
				Steps: []template.StepDefinition{
					{ID: "s1", Name: "Survey", Required: true, Deliverables: []string{"report"}},
					{ID: "s2", Name: "Layout", Required: true},
				},
			},
			{
				ID:   "build",
				Name: "Build",
				Steps: []template.StepDefinition{
					{ID: "s3", Name: "Fabricate", Required: true, DependsOn: []string{"s1"}},
				},
			},
		}),
	}
}

func fixtureChecklist() *checklist.ProjectChecklist {
	return checklist.Materialize("tenant1", "proj1", fixtureTemplate(), time.Now().UTC())
}

func setStatus(t *testing.T, cl *checklist.ProjectChecklist, stepID string, status checklist.StepStatus) {
	t.Helper()
	step, ok := cl.StepByID(stepID)
	require.True(t, ok, stepID)
	step.Status = status
}

func TestMaterialize(t *testing.T) {
	tmpl := fixtureTemplate()
	cl := checklist.Materialize("tenant1", "proj1", tmpl, time.Now().UTC())

	require.NotEmpty(t, cl.ID)
	require.Equal(t, int64(1), cl.Version)
	require.Equal(t, 3, cl.TemplateVersion)
	require.Equal(t, "commercial_kitchen", cl.ProjectType)
	require.Len(t, cl.Phases, 2)
	require.Equal(t, 1, cl.Phases[0].Position)
	require.Equal(t, 2, cl.Phases[1].Position)
	for _, phase := range cl.Phases {
		for _, step := range phase.Steps {
			require.Equal(t, checklist.StatusPending, step.Status)
		}
	}

	require.NotNil(t, cl.Phases[0].UnlockedAt)
	require.Nil(t, cl.Phases[1].UnlockedAt)
	require.Equal(t, checklist.PhasePending, cl.Phases[0].Status)
	require.Equal(t, checklist.PhaseLocked, cl.Phases[1].Status)
	require.Zero(t, checklist.ComputeStats(cl).OverallPercent)

	tmpl.Phases[0].Steps[0].Deliverables[0] = "changed"
	require.Equal(t, "report", cl.Phases[0].Steps[0].Deliverables[0])
}

func TestClone(t *testing.T) {
	cl := fixtureChecklist()
	cp := cl.Clone()

	cp.Phases[1].Steps[0].DependsOn[0] = "zzz"
	setStatus(t, cp, "s1", checklist.StatusInProgress)
	*cp.Phases[0].UnlockedAt = time.Time{}

	require.Equal(t, "s1", cl.Phases[1].Steps[0].DependsOn[0])
	require.Equal(t, checklist.StatusPending, cl.Phases[0].Steps[0].Status)
	require.False(t, cl.Phases[0].UnlockedAt.IsZero())
}

func TestLocate(t *testing.T) {
	cl := fixtureChecklist()

	pi, si, ok := cl.Locate("build", "s3")
	require.True(t, ok)
	require.Equal(t, 1, pi)
	require.Equal(t, 0, si)

	_, _, ok = cl.Locate("design", "s3")
	require.False(t, ok)
	_, _, ok = cl.Locate("nope", "s1")
	require.False(t, ok)
}
