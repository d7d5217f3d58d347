package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/phaseline/internal/testserver"
)

func request(t *testing.T, ts *testserver.TestServer, token, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.Server.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

var coldRoom = map[string]any{
	"project_type": "cold_room",
	"phases": []any{
		map[string]any{
			"id": "design", "name": "Design",
			"steps": []any{map[string]any{"id": "survey", "name": "Survey", "required": true}},
		},
	},
}

func TestHealthSkipsAuth(t *testing.T) {
	ts := testserver.New(t, "token", "acme")

	resp := request(t, ts, "", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	ts := testserver.New(t, "token", "acme")

	resp := request(t, ts, "", http.MethodGet, "/v1/templates", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = request(t, ts, "wrong", http.MethodGet, "/v1/templates", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = request(t, ts, "token", http.MethodGet, "/v1/templates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTenantsAreIsolated(t *testing.T) {
	ts := testserver.New(t, "token", "acme")
	require.NoError(t, ts.AddAPIKey("other-token", "globex"))

	resp := request(t, ts, "token", http.MethodPost, "/v1/templates", coldRoom)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var list []map[string]any
	resp = request(t, ts, "token", http.MethodGet, "/v1/templates", nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)

	resp = request(t, ts, "other-token", http.MethodGet, "/v1/templates", nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Empty(t, list)

	resp = request(t, ts, "other-token", http.MethodGet, "/v1/templates/cold_room", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type bearerTransport struct {
	token string
	actor string
	base  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	if b.actor != "" {
		req.Header.Set("X-Actor-Id", b.actor)
	}
	return b.base.RoundTrip(req)
}

func connectMCP(t *testing.T, ts *testserver.TestServer, token string) *sdkmcp.ClientSession {
	t.Helper()
	return connectMCPAs(t, ts, token, "")
}

func connectMCPAs(t *testing.T, ts *testserver.TestServer, token, actor string) *sdkmcp.ClientSession {
	t.Helper()
	transport := &sdkmcp.StreamableClientTransport{
		Endpoint: ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{
			Transport: &bearerTransport{token: token, actor: actor, base: http.DefaultTransport},
		},
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(context.Background(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestMCPOverHTTPSharesTenant(t *testing.T) {
	ts := testserver.New(t, "token", "acme")

	resp := request(t, ts, "token", http.MethodPost, "/v1/templates", coldRoom)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cs := connectMCPAs(t, ts, "token", "dana")
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      "create_project",
		Arguments: map[string]any{"id": "cr1", "name": "Dairy cold room", "project_type": "cold_room"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var view struct {
		Checklist struct {
			Version int64 `json:"version"`
		} `json:"checklist"`
	}
	resp = request(t, ts, "token", http.MethodGet, "/v1/checklists/cr1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Equal(t, int64(1), view.Checklist.Version)

	var entries []struct {
		Actor string `json:"actor"`
	}
	resp = request(t, ts, "token", http.MethodGet, "/v1/activity?project_id=cr1&type=project_created", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	require.Equal(t, "dana", entries[0].Actor)
}

func TestMCPRejectsUnknownToken(t *testing.T) {
	ts := testserver.New(t, "token", "acme")

	cs := connectMCP(t, ts, "nope")
	_, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      "list_templates",
		Arguments: map[string]any{},
	})
	require.Error(t, err)
}
