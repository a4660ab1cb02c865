package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contacts_backend/internal/contacts"
	"contacts_backend/internal/events"
	apphttp "contacts_backend/internal/http"
	"contacts_backend/internal/http/router"
	"contacts_backend/internal/importer"
	"contacts_backend/internal/notification"
	"contacts_backend/internal/snapshot"
	"contacts_backend/platform/config"
	"contacts_backend/platform/logger"
	"contacts_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var snapshots *snapshot.Repository
	if err := withRetry(ctx, log, "snapshot store connection", 5, 2*time.Second, func() error {
		repo, err := snapshot.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		snapshots = repo
		return nil
	}); err != nil {
		log.Error("failed to connect to snapshot store", "error", err)
		panic("failed to connect to snapshot store: " + err.Error())
	}
	defer snapshots.Close()
	log.Info("snapshot store connection established", "session", snapshots.SessionID())

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	importSource := importer.New(cfg)
	contactsModule := contacts.NewModule(cfg, snapshots, importSource, eventBus, val, log)
	notificationModule := notification.NewModule(eventBus, log)
	defer notificationModule.Close()

	// The store must be active before the server accepts requests: a failed
	// bootstrap import is terminal for the process.
	if err := contactsModule.Service().Bootstrap(ctx); err != nil {
		log.Error("failed to bootstrap contact store", "error", err)
		panic("failed to bootstrap contact store: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   snapshots,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			contactsModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Cross-session reconciliation: adopt snapshots written by other
	// sessions for as long as the server runs.
	g.Go(func() error {
		changes, err := snapshots.Subscribe(gctx)
		if err != nil {
			return err
		}
		if err := contactsModule.Service().Reconcile(gctx, changes); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
	log.Info("server stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
