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

	"github.com/brightlane/siteforge/internal/agent"
	"github.com/brightlane/siteforge/internal/config"
	"github.com/brightlane/siteforge/internal/edit"
	"github.com/brightlane/siteforge/internal/githost"
	"github.com/brightlane/siteforge/internal/hosting"
	"github.com/brightlane/siteforge/internal/pipeline"
	"github.com/brightlane/siteforge/internal/server"
	"github.com/brightlane/siteforge/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	aiClient := agent.NewHTTPClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model,
		agent.WithTimeout(cfg.AITimeout()),
		agent.WithRetry(cfg.Limits.MaxRetries),
		agent.WithRateLimit(cfg.Limits.RateLimit.RequestsPerMinute, cfg.Limits.RateLimit.BurstSize),
		agent.WithLogger(logger))

	ghClient := githost.NewClient(cfg.GitHub.Token, cfg.GitHub.BaseURL,
		githost.WithLogger(logger))
	publisher := githost.NewPublisher(ghClient, cfg.Limits.MaxConcurrentBlobs, logger)

	hostClient := hosting.NewClient(cfg.Hosting.Token, cfg.Hosting.BaseURL,
		hosting.WithLogger(logger))
	deployer := hosting.NewDeployer(hostClient, cfg.Limits.DeployReadyAttempts, cfg.Limits.DeployReadyInterval, logger)

	planner := pipeline.NewPlanner(aiClient, logger)
	materializer := pipeline.NewMaterializer(aiClient, logger)
	pipe := pipeline.New(planner, materializer, publisher, deployer, logger)

	editor := edit.NewOrchestrator(aiClient, ghClient, publisher, deployer, cfg.Limits.MaxEditFiles, logger)

	sites, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		logger.Error("site store unavailable", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer sites.Close()

	srv := server.New(pipe, editor, sites, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
		// No WriteTimeout: the edit stream stays open for the full
		// operation, potentially minutes.
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("siteforge listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
}

func logLevel() slog.Level {
	switch os.Getenv("SITEFORGE_LOG_LEVEL") {
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
