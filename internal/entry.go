// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/devspace/internal/api"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/kv"
	"github.com/starford/devspace/internal/sse"
	"github.com/starford/devspace/internal/syncstatus"
)

// Run starts the application with the given options and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App.LogLevel)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("backup_driver", cfg.Backup.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("close failed", slog.String("error", err.Error()))
		}
	}()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	unsubStore := session.Store.Subscribe(func(c datastore.Change) {
		broker.PublishChange(string(c.Op), c.Collection, c.IDs)
	})
	defer unsubStore()
	unsubStatus := session.Tracker.Subscribe(func(s syncstatus.Status) {
		broker.PublishSyncStatus(s)
	})
	defer unsubStatus()

	handler := NewHandler(session, broker)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Write-behind persistence; flushes once more on shutdown.
	g.Go(func() error {
		return session.Persister.Run(gCtx)
	})

	// Reload the document when another process edits the data file.
	if path, ok := session.DataFile(); ok && cfg.Storage.Watch {
		g.Go(func() error {
			return kv.Watch(gCtx, path, logger, func() {
				if _, err := session.Persister.Reconcile(); err != nil {
					logger.Warn("reload failed", slog.String("error", err.Error()))
				}
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shut the server down on signal or cancellation.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// NewHandler builds the root HTTP handler: health checks, metrics and the
// API under /api.
func NewHandler(session *App, broker *sse.Broker) http.Handler {
	cfg := session.Config

	var events http.Handler
	if broker != nil {
		events = broker
	}
	apiRouter := api.NewRouter(
		api.NewHandler(session.Store, session.Backups),
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, events,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if st := session.Tracker.Current(); st.State == syncstatus.Error {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, `{"status":"degraded","operation":%q}`, st.Operation)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", session.Metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	return r
}
