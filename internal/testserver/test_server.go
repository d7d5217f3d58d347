// Package testserver starts the full HTTP stack over an in-memory database
// for end-to-end tests.
package testserver

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/phaseline/internal/api"
	"github.com/rpggio/phaseline/internal/app"
	"github.com/rpggio/phaseline/internal/config"
	"github.com/rpggio/phaseline/internal/mcp"
	"github.com/rpggio/phaseline/internal/sqlite"
	"github.com/rpggio/phaseline/internal/transport"
)

type TestServer struct {
	Server   *httptest.Server
	App      *app.App
	Keys     *sqlite.APIKeyRepository
	Token    string
	TenantID string
}

// New starts a server with bearer auth enabled and token registered for
// tenantID. Events are delivered until the test ends. opts adjust the
// configuration before the app is built.
func New(t *testing.T, token, tenantID string, opts ...func(*config.Config)) *TestServer {
	t.Helper()

	cfg := config.Default()
	cfg.DB.Path = ":memory:"
	cfg.Auth.Enabled = true
	for _, opt := range opts {
		opt(&cfg)
	}
	a, err := app.New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Run(ctx)
	}()

	keys := sqlite.NewAPIKeyRepository(a.DB)
	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Templates:  a.Templates,
			Projects:   a.Projects,
			Checklists: a.Checklists,
			Activity:   a.Activity,
		},
		Resolver:      keys,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	router := transport.NewRouter(transport.RouterConfig{
		MCP: mcpServer,
		API: api.Config{
			Templates:  a.Templates,
			Projects:   a.Projects,
			Checklists: a.Checklists,
			Activity:   a.Activity,
		},
		Auth: transport.AuthMiddleware(keys),
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		App:      a,
		Keys:     keys,
		Token:    token,
		TenantID: tenantID,
	}
	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
		_ = a.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.Keys.Add(context.Background(), token, tenantID, "test")
}
