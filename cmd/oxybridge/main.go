// Entry point for the oxybridge HTTP service: REST + optional MCP stdio
// bridge in front of the page builder's element-tree storage.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/oxybridge/config"
	"github.com/hazyhaar/oxybridge/renderer"
	"github.com/hazyhaar/oxybridge/server"
	"github.com/hazyhaar/oxybridge/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("OXYBRIDGE_CONFIG"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	if cfg.Auth.Password == "" {
		slog.Error("AUTH_PASSWORD (or auth.password in the config file) is required")
		os.Exit(1)
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(cfg.DBPath, store.WithMkdirAll())
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	st := store.New(db)

	if err := st.SeedAppPassword(ctx, cfg.Auth.Name, cfg.Auth.Password); err != nil {
		slog.Error("seed application password", "error", err)
		os.Exit(1)
	}

	builder := renderer.New(cfg.Builder.RegenerateURL,
		renderer.WithTimeout(cfg.Builder.Timeout),
		renderer.WithRetries(cfg.Builder.Retries),
		renderer.WithLogger(logger))
	if cfg.Builder.RegenerateURL == "" {
		slog.Warn("no builder endpoint configured; /regenerate-css will fail")
	}

	srv := server.New(st, builder, logger, server.WithMaxBodyBytes(cfg.MaxBodyBytes))

	// Optional MCP over stdio for a local agent. HTTP keeps running so the
	// builder's own callbacks still work.
	if cfg.MCPTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "oxybridge",
			Version: server.Version,
		}, nil)
		srv.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("mcp stdio", "error", err)
			}
		}()
		slog.Info("MCP stdio transport started")
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		httpSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("oxybridge starting", "port", cfg.Port, "db", cfg.DBPath)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server", "error", err)
		os.Exit(1)
	}
	slog.Info("oxybridge stopped")
}
