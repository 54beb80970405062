// Package main is the entry point for the orchestrator server: the task
// scheduling core, its billing and routing services, and the HTTP API in
// front of them.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// run loads configuration, assembles the application, and serves until a
// shutdown signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_configured", cfg.Database.URL != "",
		"gateway_configured", cfg.Gateway.BaseURL != "")

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	app.startBackground(ctx)
	return app.startHTTPServer(ctx, app.buildRouter())
}
