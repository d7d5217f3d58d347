package checklist

import (
	"math"
	"time"
)

// Stats is the progress rollup of a checklist. CompletedCount counts steps
// that are completed or skipped; SkippedCount reports the skipped subset.
type Stats struct {
	ChecklistID    string       `json:"checklist_id"`
	Version        int64        `json:"version"`
	OverallPercent int          `json:"overall_percent"`
	CompletedCount int          `json:"completed_count"`
	SkippedCount   int          `json:"skipped_count"`
	TotalCount     int          `json:"total_count"`
	PerPhase       []PhaseStats `json:"per_phase"`
}

// PhaseStats is the rollup of one phase.
type PhaseStats struct {
	PhaseID            string      `json:"phase_id"`
	Name               string      `json:"name"`
	Status             PhaseStatus `json:"status"`
	Percent            int         `json:"percent"`
	CompletedCount     int         `json:"completed_count"`
	SkippedCount       int         `json:"skipped_count"`
	TotalCount         int         `json:"total_count"`
	MandatorySatisfied bool        `json:"mandatory_satisfied"`
}

// ComputeStats derives progress from step statuses. Every phase weighs the
// same in OverallPercent regardless of its step count.
func ComputeStats(cl *ProjectChecklist) Stats {
	stats := Stats{
		ChecklistID: cl.ID,
		Version:     cl.Version,
		PerPhase:    make([]PhaseStats, 0, len(cl.Phases)),
	}
	if len(cl.Phases) == 0 {
		return stats
	}

	sum := 0
	for i := range cl.Phases {
		phase := &cl.Phases[i]
		ps := PhaseStats{
			PhaseID:            phase.ID,
			Name:               phase.Name,
			Status:             derivePhaseStatus(phase),
			TotalCount:         len(phase.Steps),
			MandatorySatisfied: mandatorySatisfied(phase),
		}
		for _, step := range phase.Steps {
			if step.Status.Done() {
				ps.CompletedCount++
			}
			if step.Status == StatusSkipped {
				ps.SkippedCount++
			}
		}
		if ps.TotalCount > 0 {
			ps.Percent = ps.CompletedCount * 100 / ps.TotalCount
		}
		sum += ps.Percent
		stats.CompletedCount += ps.CompletedCount
		stats.SkippedCount += ps.SkippedCount
		stats.TotalCount += ps.TotalCount
		stats.PerPhase = append(stats.PerPhase, ps)
	}
	stats.OverallPercent = sum / len(cl.Phases)
	return stats
}

// mandatorySatisfied applies the phase threshold: every required step done,
// every explicitly listed step done, and at least the threshold fraction of
// all steps done.
func mandatorySatisfied(phase *Phase) bool {
	done := make(map[string]bool, len(phase.Steps))
	count := 0
	for _, step := range phase.Steps {
		if step.Status.Done() {
			done[step.ID] = true
			count++
			continue
		}
		if step.Required {
			return false
		}
	}
	for _, id := range phase.Threshold.StepIDs {
		if !done[id] {
			return false
		}
	}
	if phase.Threshold.Fraction > 0 {
		// epsilon keeps 0.7*10 from rounding up to 8
		need := int(math.Ceil(phase.Threshold.Fraction*float64(len(phase.Steps)) - 1e-9))
		if count < need {
			return false
		}
	}
	return true
}

func derivePhaseStatus(phase *Phase) PhaseStatus {
	if mandatorySatisfied(phase) {
		return PhaseCompleted
	}
	for _, step := range phase.Steps {
		if step.Status != StatusPending {
			return PhaseInProgress
		}
	}
	if phase.UnlockedAt == nil {
		return PhaseLocked
	}
	return PhasePending
}

// unlockReady stamps UnlockedAt on every phase whose predecessors are all
// complete and returns the indexes it unlocked. The first phase is always
// unlocked.
func unlockReady(cl *ProjectChecklist, now time.Time) []int {
	var unlocked []int
	for i := range cl.Phases {
		phase := &cl.Phases[i]
		if phase.UnlockedAt == nil {
			t := now
			phase.UnlockedAt = &t
			unlocked = append(unlocked, i)
		}
		if !mandatorySatisfied(phase) {
			break
		}
	}
	return unlocked
}

// blockingPhase returns the earliest incomplete phase before idx.
func blockingPhase(cl *ProjectChecklist, idx int) string {
	for i := 0; i < idx; i++ {
		if !mandatorySatisfied(&cl.Phases[i]) {
			return cl.Phases[i].ID
		}
	}
	return ""
}
