// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/atelier/internal/api"
	"github.com/starford/atelier/internal/apperr"
	"github.com/starford/atelier/internal/catalog"
	"github.com/starford/atelier/internal/index"
	"github.com/starford/atelier/internal/migrate"
	"github.com/starford/atelier/internal/project"
	"github.com/starford/atelier/internal/sse"
	"github.com/starford/atelier/internal/studio"
)

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{
		version: "dev",
		out:     os.Stdout,
		logOut:  os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// openProject creates the configured project when allowed and missing,
// migrates it to the current schema and opens it.
func openProject(ctx context.Context, cfg *Config, logger *slog.Logger) (*project.Store, *project.Snapshot, error) {
	store := project.NewStore(project.WithLogger(logger))
	dir := cfg.Project.Path

	if _, err := store.ReadProjectFile(dir); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) || !cfg.Project.CreateIfMissing {
			return nil, nil, fmt.Errorf("read project: %w", err)
		}
		snap, err := store.Create(ctx, dir, project.CreateInput{
			ProjectName: cfg.Project.Name,
			ClientName:  cfg.Project.Client,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create project: %w", err)
		}
		return store, snap, nil
	}

	res, err := migrate.New(store, migrate.WithLogger(logger)).Run(ctx, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("migrate project: %w", err)
	}
	if res.Migrated {
		logger.Info("Project migrated",
			slog.String("from", res.FromVersion),
			slog.String("to", res.ToVersion),
			slog.String("backup", res.BackupPath))
	}

	snap, err := store.Open(ctx, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open project: %w", err)
	}
	return store, snap, nil
}

// session is an open project with its live catalog.
type session struct {
	svc     *studio.Service
	db      *index.DB
	watcher *catalog.Watcher
	broker  *sse.Broker
}

func startSession(ctx context.Context, cfg *Config, logger *slog.Logger, withBroker bool) (*session, error) {
	store, snap, err := openProject(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	s := &session{db: db}
	opts := []studio.Option{
		studio.WithLogger(logger),
		studio.WithIndex(db),
		studio.WithAllowedDependencies(cfg.Catalog.AllowedDependencies),
		studio.WithAutosaveDelay(cfg.Autosave.Delay),
	}
	if withBroker {
		s.broker = sse.NewBroker(sse.DefaultHeartbeat)
		opts = append(opts, studio.WithPublisher(s.broker))
	}
	s.svc = studio.New(cfg.Project.Path, store, snap, opts...)

	s.watcher, err = catalog.Watch(
		filepath.Join(cfg.Project.Path, project.BlocksDir),
		catalog.Builtin(),
		logger,
		s.svc.HandleCatalog,
		catalog.WithDebounce(cfg.Catalog.Debounce),
		catalog.WithScanner(catalog.NewScanner(cfg.Catalog.CacheSize)),
	)
	if err != nil {
		s.close(ctx, logger)
		return nil, fmt.Errorf("watch blocks: %w", err)
	}
	return s, nil
}

// close stops the watcher, saves pending edits and releases resources.
func (s *session) close(ctx context.Context, logger *slog.Logger) {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.svc != nil {
		if err := s.svc.Close(ctx); err != nil {
			logger.Error("Final save failed", slog.String("error", err.Error()))
		}
	}
	if s.broker != nil {
		s.broker.Close()
	}
	_ = s.db.Close()
}

// Run starts the editor server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_path", cfg.Project.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	sess, err := startSession(ctx, cfg, logger, true)
	if err != nil {
		return err
	}

	apiRouter := api.NewRouter(sess.svc, sess.broker, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Close the broker first so open event streams end and Shutdown can finish.
		sess.broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		sess.close(shutdownCtx, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
