package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pkordes/placekeeper/internal/auth"
	"github.com/pkordes/placekeeper/internal/config"
	"github.com/pkordes/placekeeper/internal/handler"
	"github.com/pkordes/placekeeper/internal/middleware"
	"github.com/pkordes/placekeeper/internal/service"
	"github.com/pkordes/placekeeper/internal/storage"
	"github.com/pkordes/placekeeper/internal/telemetry"
)

const serviceName = "placekeeper"

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireJWT(); err != nil {
		return err
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// --- Tracing ----------------------------------------------------------
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	// --- Database ---------------------------------------------------------
	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("database connection established", "dialect", store.Dialect)

	if migrate {
		n, err := store.MigrateUp(ctx)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "count", n)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, store, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return listenAndShutdown(ctx, srv, cfg.ShutdownTimeout, logger)
}

// newRouter assembles the middleware chain and the API routes.
//
// Middleware is applied in order: RequestID → RealIP → Trace → Logger →
// Recoverer → CORS → body limit. Authentication is applied by the handler package to the
// /api/v1 routes only, so health checks stay public.
func newRouter(cfg config.Config, store *storage.Store, logger *slog.Logger) http.Handler {
	onboarding := service.NewOnboardingService(store.Users,
		service.WithRequireFinalStep(cfg.RequireFinalStep),
	)
	reports := service.NewReportService(store.Users)
	jwtAuth := auth.NewJWTProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.SessionCookie)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewTraceHandler(serviceName))
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	api := handler.NewServer(onboarding, reports, store, logger)
	r.Mount("/", api.Routes(middleware.NewAuthHandler(jwtAuth, logger)))
	return r
}

// listenAndShutdown serves until ctx is cancelled, then gives in-flight
// requests up to timeout to complete before forcefully closing.
func listenAndShutdown(ctx context.Context, srv *http.Server, timeout time.Duration, logger *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
