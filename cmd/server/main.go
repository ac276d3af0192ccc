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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"Skillnet/internal/api/middleware"
	"Skillnet/internal/api/routes"
	"Skillnet/internal/backend"
	"Skillnet/internal/config"
	"Skillnet/internal/core/sessions"
)

func main() {
	cfg := config.ConfigFromEnv()

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// One paced transport is shared by every session's backend client
	transport := backend.NewTransport(nil, backend.DefaultUserAgent, cfg.RequestsPerSecond, logger)

	manager, err := sessions.NewManager(sessions.Config{
		Logger: logger,
		Backend: backend.Config{
			Transport:         transport,
			Logger:            logger,
			BaseURL:           cfg.BackendURL,
			Timeout:           cfg.RequestTimeout,
			ValidateResponses: cfg.ValidateResponses,
		},
		Secret:        []byte(cfg.SessionSecret),
		Secure:        cfg.SecureCookies,
		MaxViews:      cfg.MaxMountedViews,
		Notifications: true,
	})
	if err != nil {
		logger.Error("failed to create session manager", "error", err)
		os.Exit(1)
	}
	defer manager.Close()

	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	// Rate limiting per client IP
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, 1*time.Minute)
	r.Use(rateLimiter.Middleware)

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	sessionMiddleware := middleware.NewSessionMiddleware(manager, logger)

	routes.RegisterViewRoutes(r, sessionMiddleware, logger)
	if err := routes.RegisterWebRoutes(r, manager, sessionMiddleware, routes.WebConfig{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		PreviewLimit:   cfg.PreviewGraphemes,
	}); err != nil {
		logger.Error("failed to load web templates", "error", err)
		os.Exit(1)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Debug("failed to write health response", "error", err)
		}
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Skillnet web starting", "addr", cfg.ListenAddr, "backend", cfg.BackendURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
