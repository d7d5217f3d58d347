package mcp

import (
	"context"
	"errors"
	"net/http"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]string

func (r staticResolver) ResolveTenant(_ context.Context, token string) (string, error) {
	if tenantID, ok := r[token]; ok {
		return tenantID, nil
	}
	return "", errors.New("not found")
}

func toolCall(header http.Header) *sdkmcp.CallToolRequest {
	return &sdkmcp.CallToolRequest{
		Params: &sdkmcp.CallToolParamsRaw{Name: "get_checklist"},
		Extra:  &sdkmcp.RequestExtra{Header: header},
	}
}

func captureCaller(got *caller) sdkmcp.MethodHandler {
	return func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		*got = callerFrom(ctx)
		return &sdkmcp.CallToolResult{}, nil
	}
}

func TestAuthMiddlewareSetsCaller(t *testing.T) {
	var got caller
	handler := authMiddleware(staticResolver{"tok": "acme"})(captureCaller(&got))

	header := http.Header{}
	header.Set("Authorization", "Bearer tok")
	header.Set(ActorHeader, "dana")
	_, err := handler(context.Background(), "tools/call", toolCall(header))
	require.NoError(t, err)
	require.Equal(t, caller{tenantID: "acme", actor: "dana"}, got)
	require.Equal(t, "dana", actorOr(withCaller(context.Background(), got), ""))
	require.Equal(t, "erp", actorOr(withCaller(context.Background(), got), "erp"))
}

func TestAuthMiddlewareRejects(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
	}{
		{"no headers", nil},
		{"no token", http.Header{}},
		{"basic scheme", http.Header{"Authorization": []string{"Basic tok"}}},
		{"unknown token", http.Header{"Authorization": []string{"Bearer nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got caller
			handler := authMiddleware(staticResolver{"tok": "acme"})(captureCaller(&got))
			_, err := handler(context.Background(), "tools/call", toolCall(tt.header))
			require.ErrorIs(t, err, errUnauthorized)
			require.Empty(t, got.tenantID)
		})
	}
}

func TestAuthMiddlewareSkipsHandshake(t *testing.T) {
	var got caller
	handler := authMiddleware(staticResolver{})(captureCaller(&got))
	_, err := handler(context.Background(), "initialize", toolCall(nil))
	require.NoError(t, err)
}

func TestNoAuthMiddlewareUsesDefaultTenant(t *testing.T) {
	var got caller
	handler := noAuthMiddleware("default")(captureCaller(&got))

	_, err := handler(context.Background(), "tools/call", toolCall(http.Header{ActorHeader: []string{"sam"}}))
	require.NoError(t, err)
	require.Equal(t, caller{tenantID: "default", actor: "sam"}, got)

	_, err = handler(context.Background(), "tools/call", &sdkmcp.CallToolRequest{Params: &sdkmcp.CallToolParamsRaw{}})
	require.NoError(t, err)
	require.Equal(t, caller{tenantID: "default"}, got)
}
