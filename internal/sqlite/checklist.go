package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/phaseline/internal/domain/checklist"
	"github.com/rpggio/phaseline/internal/repository"
)

// ChecklistRepository implements checklist.Repository for SQLite
type ChecklistRepository struct {
	db *DB
}

// NewChecklistRepository creates a new ChecklistRepository
func NewChecklistRepository(db *DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// Create inserts a checklist with its phases and steps. A project that
// already has a checklist returns repository.ErrConflict.
func (r *ChecklistRepository) Create(ctx context.Context, tenantID string, cl *checklist.ProjectChecklist) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checklists (
			id, tenant_id, project_id, project_type, template_version,
			version, archived, created_at, last_modified_at, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cl.ID,
		tenantID,
		cl.ProjectID,
		cl.ProjectType,
		cl.TemplateVersion,
		cl.Version,
		cl.Archived,
		cl.CreatedAt,
		cl.LastModifiedAt,
		nullTime(cl.ArchivedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create checklist: %w", err)
	}

	for _, phase := range cl.Phases {
		thresholdSteps, err := encodeList(phase.Threshold.StepIDs)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO checklist_phases (
				checklist_id, phase_id, position, name,
				threshold_fraction, threshold_steps, unlocked_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			cl.ID,
			phase.ID,
			phase.Position,
			phase.Name,
			phase.Threshold.Fraction,
			thresholdSteps,
			nullTime(phase.UnlockedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create checklist phase: %w", err)
		}

		for i, step := range phase.Steps {
			if err := insertStep(ctx, tx, cl.ID, phase.ID, i, step); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	cl.TenantID = tenantID
	return nil
}

func insertStep(ctx context.Context, tx *sql.Tx, checklistID, phaseID string, position int, step checklist.Step) error {
	deliverables, err := encodeList(step.Deliverables)
	if err != nil {
		return err
	}
	dependsOn, err := encodeList(step.DependsOn)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checklist_steps (
			checklist_id, phase_id, step_id, position, name, description, duration,
			deliverables, payment_percentage, approval_required, critical, required,
			depends_on, status, status_changed_at, status_changed_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		checklistID,
		phaseID,
		step.ID,
		position,
		step.Name,
		step.Description,
		step.Duration,
		deliverables,
		step.PaymentPercentage,
		step.ApprovalRequired,
		step.Critical,
		step.Required,
		dependsOn,
		string(step.Status),
		nullTime(step.StatusChangedAt),
		step.StatusChangedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create checklist step: %w", err)
	}
	return nil
}

// GetByProject loads the checklist of a project with all phases and steps
func (r *ChecklistRepository) GetByProject(ctx context.Context, tenantID, projectID string) (*checklist.ProjectChecklist, error) {
	var (
		cl         checklist.ProjectChecklist
		archivedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, project_id, project_type, template_version,
		       version, archived, created_at, last_modified_at, archived_at
		FROM checklists
		WHERE tenant_id = ? AND project_id = ?
	`, tenantID, projectID).Scan(
		&cl.ID,
		&cl.TenantID,
		&cl.ProjectID,
		&cl.ProjectType,
		&cl.TemplateVersion,
		&cl.Version,
		&cl.Archived,
		&cl.CreatedAt,
		&cl.LastModifiedAt,
		&archivedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist: %w", err)
	}
	cl.ArchivedAt = timePtr(archivedAt)

	phases, err := r.loadPhases(ctx, cl.ID)
	if err != nil {
		return nil, err
	}
	if err := r.loadSteps(ctx, cl.ID, phases); err != nil {
		return nil, err
	}
	cl.Phases = phases

	return &cl, nil
}

func (r *ChecklistRepository) loadPhases(ctx context.Context, checklistID string) ([]checklist.Phase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT phase_id, position, name, threshold_fraction, threshold_steps, unlocked_at
		FROM checklist_phases
		WHERE checklist_id = ?
		ORDER BY position ASC
	`, checklistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist phases: %w", err)
	}
	defer rows.Close()

	var phases []checklist.Phase
	for rows.Next() {
		var (
			phase          checklist.Phase
			thresholdSteps string
			unlockedAt     sql.NullTime
		)
		if err := rows.Scan(
			&phase.ID,
			&phase.Position,
			&phase.Name,
			&phase.Threshold.Fraction,
			&thresholdSteps,
			&unlockedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan checklist phase: %w", err)
		}
		if phase.Threshold.StepIDs, err = decodeList(thresholdSteps); err != nil {
			return nil, err
		}
		phase.UnlockedAt = timePtr(unlockedAt)
		phases = append(phases, phase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating phase rows: %w", err)
	}
	return phases, nil
}

func (r *ChecklistRepository) loadSteps(ctx context.Context, checklistID string, phases []checklist.Phase) error {
	index := make(map[string]int, len(phases))
	for i, phase := range phases {
		index[phase.ID] = i
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT phase_id, step_id, name, description, duration, deliverables,
		       payment_percentage, approval_required, critical, required,
		       depends_on, status, status_changed_at, status_changed_by
		FROM checklist_steps
		WHERE checklist_id = ?
		ORDER BY position ASC
	`, checklistID)
	if err != nil {
		return fmt.Errorf("failed to load checklist steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			phaseID         string
			step            checklist.Step
			deliverables    string
			dependsOn       string
			statusChangedAt sql.NullTime
		)
		if err := rows.Scan(
			&phaseID,
			&step.ID,
			&step.Name,
			&step.Description,
			&step.Duration,
			&deliverables,
			&step.PaymentPercentage,
			&step.ApprovalRequired,
			&step.Critical,
			&step.Required,
			&dependsOn,
			&step.Status,
			&statusChangedAt,
			&step.StatusChangedBy,
		); err != nil {
			return fmt.Errorf("failed to scan checklist step: %w", err)
		}
		if step.Deliverables, err = decodeList(deliverables); err != nil {
			return err
		}
		if step.DependsOn, err = decodeList(dependsOn); err != nil {
			return err
		}
		step.StatusChangedAt = timePtr(statusChangedAt)

		i, ok := index[phaseID]
		if !ok {
			return fmt.Errorf("step %s references unknown phase %s", step.ID, phaseID)
		}
		phases[i].Steps = append(phases[i].Steps, step)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating step rows: %w", err)
	}
	return nil
}

// Save writes a new checklist state if the stored version still equals
// expectedVersion. The version check and every row write share one
// transaction, so a losing writer changes nothing.
func (r *ChecklistRepository) Save(ctx context.Context, tenantID string, cl *checklist.ProjectChecklist, expectedVersion int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE checklists
		SET version = ?, archived = ?, last_modified_at = ?, archived_at = ?
		WHERE id = ? AND tenant_id = ? AND version = ?
	`,
		cl.Version,
		cl.Archived,
		cl.LastModifiedAt,
		nullTime(cl.ArchivedAt),
		cl.ID,
		tenantID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update checklist: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Check if checklist exists
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM checklists WHERE id = ? AND tenant_id = ?)`
		if err := tx.QueryRowContext(ctx, checkQuery, cl.ID, tenantID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check checklist existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		// Checklist exists but version doesn't match - conflict
		return repository.ErrConflict
	}

	for _, phase := range cl.Phases {
		if _, err := tx.ExecContext(ctx, `
			UPDATE checklist_phases SET unlocked_at = ?
			WHERE checklist_id = ? AND phase_id = ?
		`, nullTime(phase.UnlockedAt), cl.ID, phase.ID); err != nil {
			return fmt.Errorf("failed to update checklist phase: %w", err)
		}

		for _, step := range phase.Steps {
			if _, err := tx.ExecContext(ctx, `
				UPDATE checklist_steps
				SET status = ?, status_changed_at = ?, status_changed_by = ?
				WHERE checklist_id = ? AND step_id = ?
			`, string(step.Status), nullTime(step.StatusChangedAt), step.StatusChangedBy, cl.ID, step.ID); err != nil {
				return fmt.Errorf("failed to update checklist step: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return values, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
