package sqlite

import (
	"context"
	"strings"

	"github.com/rpggio/phaseline/internal/domain/template"
)

// Search performs a full-text search over template names, descriptions,
// phase names and step text. Results are ordered by FTS rank.
func (r *TemplateRepository) Search(ctx context.Context, tenantID, query string, opts template.ListOptions) ([]template.TemplateSummary, error) {
	if strings.TrimSpace(query) == "" {
		return r.List(ctx, tenantID, opts)
	}

	baseQuery := `SELECT ` + summaryColumns + `
		FROM templates_fts
		JOIN templates t ON t.rowid = templates_fts.rowid
		` + usageJoin + `
		WHERE t.tenant_id = ? AND templates_fts MATCH ?
	`
	args := []interface{}{tenantID, ftsQuery(query)}
	baseQuery, args = applyTemplateFilters(baseQuery, args, opts)
	baseQuery += " ORDER BY templates_fts.rank, t.version DESC"
	baseQuery, args = applyPaging(baseQuery, args, opts.Limit, opts.Offset)

	return r.querySummaries(ctx, baseQuery, args...)
}

// ftsQuery turns free text into a prefix match on every term so user input
// never reaches the FTS5 query grammar.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		terms = append(terms, `"`+f+`"*`)
	}
	return strings.Join(terms, " ")
}
