package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ActorHeader carries the acting user on HTTP requests, as on the REST API.
const ActorHeader = "X-Actor-Id"

var errUnauthorized = errors.New("unauthorized")

// caller identifies who a tool call runs for.
type caller struct {
	tenantID string
	actor    string
}

type callerKey struct{}

func withCaller(ctx context.Context, c caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func callerFrom(ctx context.Context) caller {
	c, _ := ctx.Value(callerKey{}).(caller)
	return c
}

func getTenantID(ctx context.Context) string {
	return callerFrom(ctx).tenantID
}

// actorOr prefers an actor named in the tool arguments and falls back to the
// one sent with the request.
func actorOr(ctx context.Context, explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return callerFrom(ctx).actor
}

// TenantResolver resolves a tenant ID from a bearer token.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, token string) (string, error)
}

// Handshake and notifications carry no tenant data.
func isPublicMethod(method string) bool {
	return method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/")
}

func requestHeader(req sdkmcp.Request) http.Header {
	if req == nil {
		return nil
	}
	extra := req.GetExtra()
	if extra == nil {
		return nil
	}
	return extra.Header
}

// authMiddleware resolves the tenant from the bearer token of every tenant
// scoped call.
func authMiddleware(resolver TenantResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if isPublicMethod(method) {
				return next(ctx, method, req)
			}

			header := requestHeader(req)
			if header == nil {
				return nil, fmt.Errorf("%w: missing headers", errUnauthorized)
			}
			token, ok := strings.CutPrefix(header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return nil, fmt.Errorf("%w: missing bearer token", errUnauthorized)
			}

			tenantID, err := resolver.ResolveTenant(ctx, strings.TrimSpace(token))
			if err != nil || tenantID == "" {
				return nil, fmt.Errorf("%w: invalid bearer token", errUnauthorized)
			}

			ctx = withCaller(ctx, caller{tenantID: tenantID, actor: header.Get(ActorHeader)})
			return next(ctx, method, req)
		}
	}
}

// noAuthMiddleware runs every call as defaultTenant.
func noAuthMiddleware(defaultTenant string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			c := caller{tenantID: defaultTenant}
			if header := requestHeader(req); header != nil {
				c.actor = header.Get(ActorHeader)
			}
			return next(withCaller(ctx, c), method, req)
		}
	}
}
