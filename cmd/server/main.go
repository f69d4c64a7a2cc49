// ABOUTME: Main entry point for the sitechat HTTP API server
// ABOUTME: Configures from the environment and serves ingest, retrieval, and chat routes
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/harper/sitechat/internal/app"
	"github.com/harper/sitechat/internal/config"
	"github.com/harper/sitechat/internal/server"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found", "err", err)
	}

	cfg, err := config.Load(os.Getenv("SITECHAT_CONFIG"))
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	logger := app.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", "err", err)
	}
	defer a.Close()

	if err := server.New(a.ServerDeps()).Start(ctx, cfg.Server.Address); err != nil {
		logger.Error("server error", "err", err)
		stop()
		_ = a.Close()
		os.Exit(1)
	}
}
