package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quorix-labs/botlink/internal/access"
	"github.com/quorix-labs/botlink/internal/bridge"
	"github.com/quorix-labs/botlink/internal/config"
	"github.com/quorix-labs/botlink/internal/database"
	"github.com/quorix-labs/botlink/internal/database/postgres"
	"github.com/quorix-labs/botlink/internal/event"
	"github.com/quorix-labs/botlink/internal/linking"
	"github.com/quorix-labs/botlink/internal/messenger/telegram"
	"github.com/quorix-labs/botlink/internal/scheduler"
	"github.com/quorix-labs/botlink/internal/server"
	"github.com/quorix-labs/botlink/internal/session"
	"github.com/quorix-labs/botlink/internal/supervisor"
	"github.com/quorix-labs/botlink/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	initLogger(cfg)

	// Dev setups run on defaults; production must carry the full schema.
	if cfg.Environment != "dev" && cfg.Environment != "development" {
		warnings, err := config.ValidateEnvWithWarnings()
		if err != nil {
			slog.Error("Environment validation failed", "error", err)
			os.Exit(1)
		}
		for _, warning := range warnings {
			slog.Warn(warning)
		}
	}

	pool, err := database.NewPool(cfg.GetDBConnString(), 10, 30*time.Minute, time.Hour)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	linkRepo := postgres.NewLinkRepository(pool)
	adapter := telegram.New(cfg.TelegramAppID, cfg.TelegramAppHash)

	// Publishes go through the resilient wrapper so a failing subscriber
	// never loses an event; exhausted retries land in the dead-letter file.
	bus := event.NewMemoryBus()
	publisher, err := event.NewResilientPublisher(bus, event.RetryMaxAttempts,
		event.RetryInitialDelaySeconds*time.Second, cfg.DeadLetterPath)
	if err != nil {
		slog.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}

	msgBridge := bridge.New(publisher, cfg.MailboxCapacity)
	registry := session.NewRegistry(adapter, msgBridge, cfg.StopDeadline)

	var gate access.Gate = access.AllowAll{}
	if cfg.IdentityBaseURL != "" {
		gate = access.NewCachedGate(
			access.NewHTTPGate(cfg.IdentityBaseURL, access.DefaultRequestTimeout),
			access.DefaultCacheSize,
			access.DefaultCacheTTL,
		)
	}

	linkingService := linking.NewService(linkRepo, adapter, registry, gate, publisher)

	// Resume listeners for links that were active before the restart.
	bootCtx, bootCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := linkingService.BootRecover(bootCtx); err != nil {
		slog.Error("Boot recovery failed", "error", err)
	}
	bootCancel()

	// Background reconciliation of store vs registry drift.
	workerPool := worker.NewPool(1, 4)
	workerPool.Start()
	sched := scheduler.New(workerPool)
	reconciler := supervisor.NewReconciler(linkRepo, registry, linkingService, cfg.BackoffCeiling)
	sched.Schedule(cfg.SupervisorTick, reconciler)

	srv := server.NewServer(cfg.Port, cfg.APIKey, cfg.TrustedProxies, cfg.CommandTimeout, pool, linkingService)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("Server failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting requests, then the reconciler, then the listeners,
	// and flush the bridge last so buffered messages still reach the bus.
	if err := srv.Stop(ctx); err != nil {
		slog.Error("Server forced shutdown", "error", err)
	}
	sched.Stop()
	workerPool.Stop()
	registry.StopAll(ctx)
	if err := msgBridge.Shutdown(ctx); err != nil {
		slog.Error("Bridge shutdown failed", "error", err)
	}
	if err := publisher.Shutdown(ctx); err != nil {
		slog.Error("Event publisher shutdown failed", "error", err)
	}

	slog.Info("Shutdown complete")
}
