package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `phaseline tracks manufacturing projects as Templates → Projects → Checklists.

Core concepts:
- Template: a versioned, immutable definition of phases and steps for a project type.
- Project: one job of a given project type. Creating it instantiates its checklist from the newest active template.
- Checklist: the live copy of the template for one project. Every change bumps its version.
- Phase gating: a phase unlocks once every earlier phase meets its mandatory threshold.

Workflow:
1) Discover: list_templates / get_template to see what a project type contains.
2) Start work: create_project (or instantiate_checklist for an existing project id).
3) Read: get_checklist returns the checklist, its version and progress stats.
4) Write: update_step_status with expected_version set to the version you last read.
   - VERSION_CONFLICT means someone else changed the checklist; re-read and retry.
   - DEPENDENCY_NOT_SATISFIED lists the steps to finish first.
   - PHASE_LOCKED names the earlier phase that is still incomplete.
5) Audit: get_recent_activity shows who changed what.
6) Curate: set_template_active retires or restores versions; duplicate_template starts a new project type from an existing one.
   - TEMPLATE_INACTIVE means every version of the project type is deactivated.

Docs:
- phaseline://docs/statuses (step statuses, transitions and gating)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "phaseline://docs/statuses",
		Name:        "docs_statuses",
		Title:       "Step statuses and phase gating",
		Description: "Transition table, progress math and gating modes.",
		Content: `# Step statuses and phase gating

## Step statuses

| From | Allowed targets |
|---|---|
| pending | in_progress, skipped, blocked |
| in_progress | completed, blocked, pending |
| blocked | pending |
| completed | in_progress (reopen) |
| skipped | pending |

Completing a step requires every step in its depends_on list to be completed or skipped.
Dependencies may point at steps in the same or an earlier phase only.

## Progress

- Phase percent: floor(done * 100 / total), where done counts completed and skipped steps.
- Overall percent: the mean of phase percents. Every phase weighs the same.
- completed_count includes skipped steps; skipped_count reports them separately.

## Phase status

- completed: the mandatory threshold is met (required steps, listed steps, fraction).
- in_progress: some step left pending.
- pending: unlocked, nothing started.
- locked: an earlier phase is incomplete.

## Gating modes

- strict (default): any change to a step in a locked phase fails with PHASE_LOCKED.
- advisory: the change is applied and a gating_violation activity is recorded.

## Concurrency

Every write carries expected_version. A stale version fails with VERSION_CONFLICT
and nothing is written. Re-read with get_checklist and decide again.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
