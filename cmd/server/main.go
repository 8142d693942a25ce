// Package main is the entry point for the record server.
//
// main stays small: read configuration, build the logger, build the server,
// and block in Start until a shutdown signal arrives. Everything else lives
// under internal/.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/recordkeeper/internal/config"
	"github.com/sakif/recordkeeper/internal/server"
)

func main() {
	// Configuration comes first so the logger can use its level. Until then,
	// failures go through a default logger.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level, _ := cfg.Level() // validated by Load
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
