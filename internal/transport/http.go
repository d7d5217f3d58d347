// Package transport assembles the HTTP surface: health, MCP over streamable
// HTTP and the REST API.
package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/phaseline/internal/api"
)

// DefaultSessionTimeout bounds idle MCP sessions.
const DefaultSessionTimeout = 30 * time.Minute

// RouterConfig wires handlers into the router.
type RouterConfig struct {
	// MCP is served at /mcp when set. The MCP server authenticates on its own.
	MCP *sdkmcp.Server
	// API is mounted under api.BasePath. Its Tenant func defaults to
	// TenantFromContext.
	API api.Config
	// Auth wraps the REST API. Use AuthMiddleware or StaticTenant.
	Auth           func(http.Handler) http.Handler
	SessionTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", handleHealth)

	if cfg.MCP != nil {
		timeout := cfg.SessionTimeout
		if timeout == 0 {
			timeout = DefaultSessionTimeout
		}
		mcpServer := cfg.MCP
		mcpHandler := sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: timeout},
		)
		r.Handle("/mcp", mcpHandler)
		r.Handle("/mcp/*", mcpHandler)
	}

	apiCfg := cfg.API
	if apiCfg.Tenant == nil {
		apiCfg.Tenant = TenantFromContext
	}
	if apiCfg.Logger == nil {
		apiCfg.Logger = logger
	}
	r.Group(func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}
		api.Register(r, apiCfg)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
