package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpggio/phaseline/internal/domain/template"
	"github.com/rpggio/phaseline/internal/repository"
)

// TemplateRepository implements template.Repository for SQLite
type TemplateRepository struct {
	db *DB
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `
	tenant_id, project_type, version, name, description, estimated_duration,
	is_active, definition, created_by, created_at
`

// summaryColumns selects a TemplateSummary row; usage is derived from the
// checklists instantiated from each version.
const summaryColumns = `
	t.project_type, t.version, t.name, t.description, t.estimated_duration,
	t.phase_count, t.step_count, t.is_active, t.created_at,
	(SELECT COUNT(*) FROM checklists c
	 WHERE c.tenant_id = t.tenant_id AND c.project_type = t.project_type AND c.template_version = t.version),
	lu.created_at
`

const usageJoin = `
	LEFT JOIN checklists lu ON lu.id = (
		SELECT c.id FROM checklists c
		WHERE c.tenant_id = t.tenant_id AND c.project_type = t.project_type AND c.template_version = t.version
		ORDER BY c.created_at DESC
		LIMIT 1)
`

// Create inserts a template version. A taken (project_type, version) pair
// returns repository.ErrConflict.
func (r *TemplateRepository) Create(ctx context.Context, tenantID string, tmpl *template.Template) error {
	definition, err := json.Marshal(tmpl.Phases)
	if err != nil {
		return fmt.Errorf("failed to encode template definition: %w", err)
	}

	query := `
		INSERT INTO templates (
			tenant_id, project_type, version, name, description, estimated_duration,
			is_active, definition, phase_count, step_count, search_text, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		tenantID,
		tmpl.ProjectType,
		tmpl.Version,
		tmpl.Name,
		tmpl.Description,
		tmpl.EstimatedDuration,
		tmpl.IsActive,
		string(definition),
		len(tmpl.Phases),
		tmpl.StepCount(),
		searchText(tmpl),
		tmpl.CreatedBy,
		tmpl.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create template: %w", err)
	}

	tmpl.TenantID = tenantID
	return nil
}

// Get retrieves a specific template version
func (r *TemplateRepository) Get(ctx context.Context, tenantID, projectType string, version int) (*template.Template, error) {
	query := `SELECT ` + templateColumns + `
		FROM templates
		WHERE tenant_id = ? AND project_type = ? AND version = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tenantID, projectType, version))
}

// GetLatest retrieves the highest version registered for a project type
func (r *TemplateRepository) GetLatest(ctx context.Context, tenantID, projectType string) (*template.Template, error) {
	query := `SELECT ` + templateColumns + `
		FROM templates
		WHERE tenant_id = ? AND project_type = ?
		ORDER BY version DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tenantID, projectType))
}

// GetLatestActive retrieves the highest active version of a project type
func (r *TemplateRepository) GetLatestActive(ctx context.Context, tenantID, projectType string) (*template.Template, error) {
	query := `SELECT ` + templateColumns + `
		FROM templates
		WHERE tenant_id = ? AND project_type = ? AND is_active = 1
		ORDER BY version DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tenantID, projectType))
}

// SetActive sets is_active on one version, or every version when version is
// 0. It returns repository.ErrNotFound when nothing matches.
func (r *TemplateRepository) SetActive(ctx context.Context, tenantID, projectType string, version int, active bool) (int, error) {
	query := `UPDATE templates SET is_active = ? WHERE tenant_id = ? AND project_type = ?`
	args := []interface{}{active, tenantID, projectType}
	if version > 0 {
		query += " AND version = ?"
		args = append(args, version)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update template state: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, repository.ErrNotFound
	}
	return int(rowsAffected), nil
}

// List returns template summaries ordered by project type and version
func (r *TemplateRepository) List(ctx context.Context, tenantID string, opts template.ListOptions) ([]template.TemplateSummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM templates t
		` + usageJoin + `
		WHERE t.tenant_id = ?
	`
	args := []interface{}{tenantID}
	query, args = applyTemplateFilters(query, args, opts)
	query += " ORDER BY t.project_type ASC, t.version DESC"
	query, args = applyPaging(query, args, opts.Limit, opts.Offset)

	return r.querySummaries(ctx, query, args...)
}

func (r *TemplateRepository) scanOne(row *sql.Row) (*template.Template, error) {
	var (
		tmpl       template.Template
		definition string
	)
	err := row.Scan(
		&tmpl.TenantID,
		&tmpl.ProjectType,
		&tmpl.Version,
		&tmpl.Name,
		&tmpl.Description,
		&tmpl.EstimatedDuration,
		&tmpl.IsActive,
		&definition,
		&tmpl.CreatedBy,
		&tmpl.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if err := json.Unmarshal([]byte(definition), &tmpl.Phases); err != nil {
		return nil, fmt.Errorf("failed to decode template definition: %w", err)
	}
	return &tmpl, nil
}

func (r *TemplateRepository) querySummaries(ctx context.Context, query string, args ...interface{}) ([]template.TemplateSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var summaries []template.TemplateSummary
	for rows.Next() {
		var (
			s        template.TemplateSummary
			lastUsed sql.NullTime
		)
		if err := rows.Scan(
			&s.ProjectType,
			&s.Version,
			&s.Name,
			&s.Description,
			&s.EstimatedDuration,
			&s.PhaseCount,
			&s.StepCount,
			&s.IsActive,
			&s.CreatedAt,
			&s.UsageCount,
			&lastUsed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan template summary: %w", err)
		}
		s.LastUsedAt = timePtr(lastUsed)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}
	return summaries, nil
}

func applyTemplateFilters(query string, args []interface{}, opts template.ListOptions) (string, []interface{}) {
	var conditions []string
	if opts.ProjectType != "" {
		conditions = append(conditions, "t.project_type = ?")
		args = append(args, opts.ProjectType)
	}
	if opts.ActiveOnly {
		conditions = append(conditions, "t.is_active = 1")
	}
	if opts.LatestOnly {
		conditions = append(conditions, `t.version = (
			SELECT MAX(l.version) FROM templates l
			WHERE l.tenant_id = t.tenant_id AND l.project_type = t.project_type)`)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	return query, args
}

func applyPaging(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	} else if offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

// searchText flattens phase and step text into the full-text index column.
func searchText(tmpl *template.Template) string {
	var parts []string
	for _, phase := range tmpl.Phases {
		parts = append(parts, phase.Name)
		for _, step := range phase.Steps {
			parts = append(parts, step.Name, step.Description)
			parts = append(parts, step.Deliverables...)
		}
	}
	return strings.Join(parts, " ")
}
