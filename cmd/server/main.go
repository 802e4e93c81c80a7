// Package main is the entry point for the yatube web server.
//
// The main package stays minimal. Its job is to:
//  1. Read configuration (environment and an optional .env file)
//  2. Create the logger
//  3. Start the application
//
// All actual logic lives in internal/server and the packages it wires.
// cmd/manage is the second entry point, for administrative tasks.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/yatube/internal/config"
	"github.com/sakif/yatube/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error.
	// LOG_LEVEL picks the minimum; the default is info.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if cfg.JWTSecretGenerated {
		logger.Warn("JWT_SECRET not set, using a random secret: sessions end when the server restarts")
	}
	if !cfg.GitHubEnabled() {
		logger.Info("GitHub OAuth not configured, /auth/github routes are disabled")
	}

	// === 3. PREPARE DIRECTORIES ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.MediaDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
