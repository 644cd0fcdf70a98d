// Package server is the feed server's composition root: it wires the
// repository, services and handlers onto a chi router and runs the HTTP
// listener with graceful shutdown.
//
//	POST /api/functions/login                (optional session)
//	POST /api/functions/saveUserProfile      (session required)
//	POST /api/functions/publishRecord        (session required)
//	POST /api/functions/getDiscoverList      (optional session)
//	POST /api/functions/batchPublishRecords  (X-Import-Key)
//	GET  /healthz
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/brewlog/internal/auth"
	"github.com/sakif/brewlog/internal/config"
	"github.com/sakif/brewlog/internal/handler"
	"github.com/sakif/brewlog/internal/metrics"
	"github.com/sakif/brewlog/internal/middleware"
	sqliteRepo "github.com/sakif/brewlog/internal/repository/sqlite"
	"github.com/sakif/brewlog/internal/service"
)

// Server owns the router and the feed database. The database is closed
// when Start returns.
type Server struct {
	router   *chi.Mux
	config   *config.Server
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
}

// New wires every dependency on top of an open database. Each Server gets
// its own Prometheus registry.
func New(cfg *config.Server, db *sqliteRepo.DB, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.MustRegister(s.registry)

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// providers lists the enabled identity providers, GitHub first so it is
// the default when a login request names none.
func (s *Server) providers() []auth.IdentityProvider {
	var out []auth.IdentityProvider
	if s.config.Auth.HasGitHub() {
		out = append(out, auth.NewGitHubProvider(
			s.config.Auth.GitHubClientID,
			s.config.Auth.GitHubClientSecret,
			s.config.Auth.GitHubCallbackURL,
		))
	}
	if s.config.Auth.DevLogin {
		out = append(out, auth.DevProvider{})
	}
	return out
}

func (s *Server) setupRoutes() error {
	// Order matters: RequestID before Logger so the id is logged, and
	// Recoverer inside Logger so panics are logged as 500s.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	providers := s.providers()
	if len(providers) == 0 {
		return errors.New("no login provider enabled")
	}

	authService := service.NewAuthService(s.db, tokens, providers, s.config.Auth.AppID, s.logger)
	publishService := service.NewPublishService(s.db, s.logger)
	discoverService := service.NewDiscoverService(s.db, s.config.Feed.MaxPageSize, s.logger)
	batchService := service.NewBatchService(s.db, s.logger)
	functions := handler.NewFunctionsHandler(
		authService,
		publishService,
		discoverService,
		batchService,
		auth.NewKeyVerifier(s.config.Import.KeyHash),
		s.logger,
	)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router.Route("/api/functions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Post("/login", functions.HandleLogin)
			r.Post("/getDiscoverList", functions.HandleGetDiscoverList)
			r.Post("/batchPublishRecords", functions.HandleBatchPublishRecords)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/saveUserProfile", functions.HandleSaveUserProfile)
			r.Post("/publishRecord", functions.HandlePublishRecord)
		})
		r.NotFound(functions.HandleUnknown)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to server.shutdown_timeout and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.HTTP.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.HTTP.ReadTimeout,
		WriteTimeout: s.config.HTTP.WriteTimeout,
		IdleTimeout:  s.config.HTTP.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.config.HTTP.Addr),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
