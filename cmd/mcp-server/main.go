// MCP Orchestrator Server exposes the orchestrator's messaging, FSM, and PR
// review operations to MCP clients (Claude Code, Cursor, etc.) over stdio.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/orchestrator/internal/appwire"
	"github.com/jaakkos/orchestrator/internal/config"
)

func main() {
	tmpLogger := log.New(os.Stderr, "[mcp-orchestrator] ", log.LstdFlags)

	cfgPath := os.Getenv("ORCHESTRATOR_CONFIG")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		tmpLogger.Fatalf("config: %v", err)
	}
	if v := os.Getenv("ORCHESTRATOR_DATA_ROOT"); v != "" {
		cfg.DataRoot = v
	}
	if v := os.Getenv("ORCHESTRATOR_MODE"); v != "" {
		cfg.Mode = v
	}
	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		tmpLogger.Fatalf("data root: %v", err)
	}

	app, err := appwire.Build(cfg)
	if err != nil {
		tmpLogger.Fatalf("wiring: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signal.Ignore(syscall.SIGHUP)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		app.Logger.Info("mcp-server: received shutdown signal")
		cancel()
	}()

	go func() { _ = app.Dispatch.Run(ctx) }()
	go app.Bridge.RunPeriodicHeartbeat(ctx)

	mcpServer := server.NewMCPServer(
		"mcp-orchestrator",
		"1.0.0",
		server.WithInstructions(instructionsText()),
		server.WithResourceCapabilities(false, true),
	)
	registerTools(mcpServer, app)

	app.Logger.Infow("mcp-server: serving over stdio", "mode", cfg.Mode, "data_root", cfg.DataRoot)
	stdioSrv := server.NewStdioServer(mcpServer)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		app.Logger.Errorw("mcp-server: stdio serve failed", "error", err)
		os.Exit(1)
	}
}

func instructionsText() string {
	return "Send messages, manage tasks, and run PR reviews against the shared orchestrator state. " +
		"Use send_message to coordinate with other agents, create_task/claim_task to manage work, " +
		"and submit_pr/review_pr for code review."
}
