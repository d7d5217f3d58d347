package mcp

import (
	"context"
	"encoding/json"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/phaseline/internal/app"
	"github.com/rpggio/phaseline/internal/config"
)

func connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	cfg := config.Default()
	cfg.DB.Path = ":memory:"
	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	server := NewServer(Config{
		Services: Services{
			Templates:  a.Templates,
			Projects:   a.Projects,
			Checklists: a.Checklists,
			Activity:   a.Activity,
		},
		TransportMode: "stdio",
	})

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func decode(t *testing.T, res *sdkmcp.CallToolResult, out any) {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), out))
}

func registerFreezer(t *testing.T, cs *sdkmcp.ClientSession) {
	t.Helper()
	res := call(t, cs, "register_template", map[string]any{
		"project_type": "walk_in_freezer",
		"phases": []any{
			map[string]any{
				"id":   "design",
				"name": "Design",
				"steps": []any{
					map[string]any{"id": "s1", "name": "Survey", "required": true},
				},
			},
			map[string]any{
				"id":   "build",
				"name": "Build",
				"steps": []any{
					map[string]any{"id": "s2", "name": "Install", "required": true, "depends_on": []any{"s1"}},
				},
			},
		},
	})
	require.False(t, res.IsError)
}

type checklistView struct {
	Checklist struct {
		Version int64 `json:"version"`
		Phases  []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"phases"`
	} `json:"checklist"`
	Stats struct {
		OverallPercent int `json:"overall_percent"`
	} `json:"stats"`
}

func TestToolsListed(t *testing.T) {
	cs := connect(t)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"register_template", "get_template", "list_templates",
		"set_template_active", "duplicate_template",
		"create_project", "list_projects", "archive_project",
		"instantiate_checklist", "get_checklist", "update_step_status",
		"get_recent_activity",
	} {
		require.True(t, names[want], want)
	}
}

func TestChecklistFlowOverMCP(t *testing.T) {
	cs := connect(t)
	registerFreezer(t, cs)

	res := call(t, cs, "create_project", map[string]any{
		"id":           "p1",
		"name":         "Harbor Foods freezer",
		"project_type": "walk_in_freezer",
	})
	require.False(t, res.IsError)

	res = call(t, cs, "get_checklist", map[string]any{"project_id": "p1"})
	require.False(t, res.IsError)
	var view checklistView
	decode(t, res, &view)
	require.Equal(t, int64(1), view.Checklist.Version)
	require.Equal(t, "locked", view.Checklist.Phases[1].Status)

	res = call(t, cs, "update_step_status", map[string]any{
		"project_id":       "p1",
		"phase_id":         "design",
		"step_id":          "s1",
		"status":           "in_progress",
		"expected_version": 1,
	})
	require.False(t, res.IsError)
	decode(t, res, &view)
	require.Equal(t, int64(2), view.Checklist.Version)

	res = call(t, cs, "get_recent_activity", map[string]any{"project_id": "p1"})
	require.False(t, res.IsError)
	var activity struct {
		Entries []map[string]any `json:"entries"`
	}
	decode(t, res, &activity)
	require.NotEmpty(t, activity.Entries)
}

func TestUpdateStepStatusErrorsOverMCP(t *testing.T) {
	cs := connect(t)
	registerFreezer(t, cs)
	res := call(t, cs, "create_project", map[string]any{
		"id": "p1", "name": "Freezer", "project_type": "walk_in_freezer",
	})
	require.False(t, res.IsError)

	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{
			name: "stale version",
			args: map[string]any{"project_id": "p1", "phase_id": "design", "step_id": "s1", "status": "in_progress", "expected_version": 7},
			code: "VERSION_CONFLICT",
		},
		{
			name: "locked phase",
			args: map[string]any{"project_id": "p1", "phase_id": "build", "step_id": "s2", "status": "in_progress", "expected_version": 1},
			code: "PHASE_LOCKED",
		},
		{
			name: "illegal transition",
			args: map[string]any{"project_id": "p1", "phase_id": "design", "step_id": "s1", "status": "pending", "expected_version": 1},
			code: "ILLEGAL_TRANSITION",
		},
		{
			name: "unknown step",
			args: map[string]any{"project_id": "p1", "phase_id": "design", "step_id": "nope", "status": "in_progress", "expected_version": 1},
			code: "STEP_NOT_FOUND",
		},
		{
			name: "unknown project",
			args: map[string]any{"project_id": "p9", "phase_id": "design", "step_id": "s1", "status": "in_progress", "expected_version": 1},
			code: "CHECKLIST_NOT_FOUND",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, cs, "update_step_status", tt.args)
			require.True(t, res.IsError)
			var apiErr APIError
			decode(t, res, &apiErr)
			require.Equal(t, tt.code, apiErr.Code)
			require.NotEmpty(t, apiErr.RecoveryHint)
		})
	}
}

func TestRegisterTemplateRejectsForwardDependency(t *testing.T) {
	cs := connect(t)
	res := call(t, cs, "register_template", map[string]any{
		"project_type": "cold_room",
		"phases": []any{
			map[string]any{
				"id": "design", "name": "Design",
				"steps": []any{map[string]any{"id": "s1", "name": "Survey", "depends_on": []any{"s2"}}},
			},
			map[string]any{
				"id": "build", "name": "Build",
				"steps": []any{map[string]any{"id": "s2", "name": "Install"}},
			},
		},
	})
	require.True(t, res.IsError)
	var apiErr APIError
	decode(t, res, &apiErr)
	require.Equal(t, "INVALID_TEMPLATE_GRAPH", apiErr.Code)
}

func TestTemplateLifecycleOverMCP(t *testing.T) {
	cs := connect(t)
	registerFreezer(t, cs)

	res := call(t, cs, "duplicate_template", map[string]any{
		"source_type":  "walk_in_freezer",
		"project_type": "chest_freezer",
		"name":         "Chest freezer",
	})
	require.False(t, res.IsError)
	var copied struct {
		ProjectType string `json:"project_type"`
		Version     int    `json:"version"`
	}
	decode(t, res, &copied)
	require.Equal(t, "chest_freezer", copied.ProjectType)
	require.Equal(t, 1, copied.Version)

	res = call(t, cs, "set_template_active", map[string]any{"project_type": "walk_in_freezer", "active": false})
	require.False(t, res.IsError)
	var state SetTemplateActiveOutput
	decode(t, res, &state)
	require.Equal(t, 1, state.Versions)

	res = call(t, cs, "create_project", map[string]any{"id": "p1", "name": "Freezer", "project_type": "walk_in_freezer"})
	require.True(t, res.IsError)
	var apiErr APIError
	decode(t, res, &apiErr)
	require.Equal(t, "TEMPLATE_INACTIVE", apiErr.Code)

	res = call(t, cs, "create_project", map[string]any{"id": "p2", "name": "Chest", "project_type": "chest_freezer"})
	require.False(t, res.IsError)

	res = call(t, cs, "list_templates", map[string]any{"active_only": true})
	require.False(t, res.IsError)
	var list struct {
		Templates []struct {
			ProjectType string `json:"project_type"`
			UsageCount  int    `json:"usage_count"`
			LastUsedAt  string `json:"last_used_at"`
		} `json:"templates"`
	}
	decode(t, res, &list)
	require.Len(t, list.Templates, 1)
	require.Equal(t, "chest_freezer", list.Templates[0].ProjectType)
	require.Equal(t, 1, list.Templates[0].UsageCount)
	require.NotEmpty(t, list.Templates[0].LastUsedAt)

	res = call(t, cs, "duplicate_template", map[string]any{"source_type": "walk_in_freezer", "project_type": "chest_freezer"})
	require.True(t, res.IsError)
	decode(t, res, &apiErr)
	require.Equal(t, "PROJECT_TYPE_EXISTS", apiErr.Code)

	res = call(t, cs, "set_template_active", map[string]any{"project_type": "walk_in_freezer", "version": 1, "active": true})
	require.False(t, res.IsError)
	res = call(t, cs, "create_project", map[string]any{"id": "p1", "name": "Freezer", "project_type": "walk_in_freezer"})
	require.False(t, res.IsError)
}

func TestDocsResource(t *testing.T) {
	cs := connect(t)
	res, err := cs.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "phaseline://docs/statuses"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "Gating modes")
}
