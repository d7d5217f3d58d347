package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/rpggio/phaseline/internal/api"
	"github.com/rpggio/phaseline/internal/app"
	"github.com/rpggio/phaseline/internal/config"
	"github.com/rpggio/phaseline/internal/mcp"
	"github.com/rpggio/phaseline/internal/sqlite"
	"github.com/rpggio/phaseline/internal/transport"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		logFile, err := openTailLog(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer logFile.Close()
			logWriter = logFile
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if n, err := a.SeedTemplates(ctx, app.DefaultTenant, cfg.Templates.Dir); err != nil {
		logger.Warn("template seeding incomplete", "dir", cfg.Templates.Dir, "error", err)
	} else if n > 0 {
		logger.Info("templates seeded", "count", n, "dir", cfg.Templates.Dir)
	}

	keys := sqlite.NewAPIKeyRepository(a.DB)
	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Templates:  a.Templates,
			Projects:   a.Projects,
			Checklists: a.Checklists,
			Activity:   a.Activity,
		},
		Resolver:      keys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		DefaultTenant: app.DefaultTenant,
		Version:       version,
		Logger:        logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(ctx) })

	if cfg.Transport.Mode == "stdio" {
		g.Go(func() error {
			// Closing stdin ends the process.
			defer cancel()
			return runStdioMode(ctx, logger, mcpServer)
		})
	} else {
		auth := transport.StaticTenant(app.DefaultTenant)
		if cfg.Auth.Enabled {
			auth = transport.AuthMiddleware(keys)
		}
		router := transport.NewRouter(transport.RouterConfig{
			MCP: mcpServer,
			API: api.Config{
				Templates:     a.Templates,
				Projects:      a.Projects,
				Checklists:    a.Checklists,
				Activity:      a.Activity,
				DefaultTenant: app.DefaultTenant,
				Version:       version,
			},
			Auth:   auth,
			Logger: logger,
		})
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("server listening", "addr", addr, "auth", cfg.Auth.Enabled, "gating", a.Checklists.Gating())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error { return waitForShutdown(ctx, logger, httpServer) })
	}

	return g.Wait()
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	// Run blocks until stdin closes or context is canceled
	err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func waitForShutdown(ctx context.Context, logger *slog.Logger, server *http.Server) error {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
