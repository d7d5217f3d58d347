package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/phaseline/internal/domain/project"
	"github.com/rpggio/phaseline/internal/repository"
)

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, tenantID string, proj *project.Project) error {
	query := `
		INSERT INTO projects (id, tenant_id, name, project_type, description, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		proj.ID,
		tenantID,
		proj.Name,
		proj.ProjectType,
		proj.Description,
		string(proj.Status),
		proj.CreatedBy,
		proj.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	proj.TenantID = tenantID
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, tenantID, id string) (*project.Project, error) {
	query := `
		SELECT id, tenant_id, name, project_type, description, status, created_by, created_at, archived_at
		FROM projects
		WHERE id = ? AND tenant_id = ?
	`

	var (
		proj       project.Project
		archivedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&proj.ID,
		&proj.TenantID,
		&proj.Name,
		&proj.ProjectType,
		&proj.Description,
		&proj.Status,
		&proj.CreatedBy,
		&proj.CreatedAt,
		&archivedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	proj.ArchivedAt = timePtr(archivedAt)

	return &proj, nil
}

// List returns projects for a tenant with their checklist versions
func (r *ProjectRepository) List(ctx context.Context, tenantID string, opts project.ListOptions) ([]project.ProjectSummary, error) {
	query := `
		SELECT
			p.id,
			p.name,
			p.project_type,
			p.status,
			p.created_at,
			COALESCE(c.template_version, 0),
			COALESCE(c.version, 0)
		FROM projects p
		LEFT JOIN checklists c ON c.project_id = p.id AND c.tenant_id = p.tenant_id
		WHERE p.tenant_id = ?
	`
	args := []interface{}{tenantID}

	if opts.ProjectType != "" {
		query += " AND p.project_type = ?"
		args = append(args, opts.ProjectType)
	}
	if opts.Status != "" {
		query += " AND p.status = ?"
		args = append(args, string(opts.Status))
	}
	query += " ORDER BY p.created_at DESC"
	query, args = applyPaging(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var summaries []project.ProjectSummary
	for rows.Next() {
		var summary project.ProjectSummary
		err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&summary.ProjectType,
			&summary.Status,
			&summary.CreatedAt,
			&summary.TemplateVersion,
			&summary.ChecklistVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return summaries, nil
}

// Archive marks a project archived
func (r *ProjectRepository) Archive(ctx context.Context, tenantID, id string, archivedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET status = 'archived', archived_at = ?
		WHERE id = ? AND tenant_id = ?
	`, archivedAt, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to archive project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a project row. Only used to undo a create whose checklist
// could not be instantiated.
func (r *ProjectRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
