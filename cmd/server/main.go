package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/backend"
	"finance-tracker/internal/config"
	"finance-tracker/internal/handlers"
	"finance-tracker/internal/log"
	"finance-tracker/internal/models"
	"finance-tracker/internal/services"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	res, err := backend.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Cleanup failed", log.FieldError, err.Error())
		}
	}()

	authSvc := auth.NewService(res.Store, cfg.SessionDuration, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AdminUser != "" {
		created, err := authSvc.EnsureUser(ctx, models.RegisterRequest{
			Name:     cfg.AdminName,
			Username: cfg.AdminUser,
			Password: cfg.AdminPassword,
		})
		if err != nil {
			return err
		}
		if created {
			logger.Info("Bootstrap user created", "username", cfg.AdminUser)
		}
	}

	h := handlers.NewHandlers(handlers.Services{
		Auth:         authSvc,
		Transactions: services.NewTransactionService(res.Store, res.Publisher, logger),
		BudgetGoals:  services.NewBudgetGoalService(res.Store, res.Publisher, logger),
		Summary:      services.NewSummaryService(res.Store),
		Storage:      res.Store,
	}, cfg.SecureCookie)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        setupRouter(h, cfg.CORSOrigins, logger),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		cleanSessions(gctx, authSvc, cfg.SessionCleanupInterval, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanSessions deletes expired sessions every interval until ctx ends.
func cleanSessions(ctx context.Context, authSvc *auth.Service, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := authSvc.CleanExpired(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("Session cleanup failed", log.FieldError, err.Error())
			}
		}
	}
}

// setupRouter wires the API, health probes and the middleware chain.
func setupRouter(h *handlers.Handlers, corsOrigins []string, logger *log.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)

	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.Readyz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	h.RegisterRoutes(api)

	var handler http.Handler = r
	if len(corsOrigins) > 0 {
		handler = ghandlers.CORS(
			ghandlers.AllowedOrigins(corsOrigins),
			ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
			ghandlers.AllowedHeaders([]string{"Content-Type", log.RequestIDHeader}),
			ghandlers.AllowCredentials(),
		)(handler)
	}
	handler = ghandlers.RecoveryHandler(ghandlers.PrintRecoveryStack(true))(handler)
	return log.AccessLog(logger)(handler)
}
