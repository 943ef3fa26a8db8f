// Package api exposes live tracking, option parsing and the watch loop over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Vodeneev/livebet/internal/pkg/metrics"
	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/pkg/storage"
	"github.com/Vodeneev/livebet/internal/tracker/provider"
	"github.com/Vodeneev/livebet/internal/tracker/tracking"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Tracker interface {
	Track(ctx context.Context, req tracking.Request) (*tracking.Tracking, error)
}

// FixtureSource serves the provider calls that are not part of a tracking.
type FixtureSource interface {
	Lineups(ctx context.Context, fixtureID int64) ([]models.Lineup, error)
	Status(ctx context.Context) (provider.AccountStatus, error)
}

type Watcher interface {
	Start(ctx context.Context) (bool, error)
	Stop() bool
	Running() bool
}

// Deps are the collaborators of the server. Fixtures, Watcher, History and Metrics may be nil;
// their routes then answer 503 (or 404 for /metrics).
type Deps struct {
	Tracker  Tracker
	Fixtures FixtureSource
	Watcher  Watcher
	History  storage.TrackingStorage
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	AllowedOrigins []string
	Service        string
}

type Server struct {
	deps Deps
	// watchCtx outlives the request that starts the watcher.
	watchCtx context.Context
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Service == "" {
		deps.Service = "livebet"
	}
	return &Server{deps: deps, watchCtx: context.Background()}
}

// Router builds the chi router with all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	origins := s.deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ping", handlePing)
	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tracking", s.handleTracking)
		r.Post("/options/parse", s.handleParseOption)
		r.Get("/fixtures/{id}/lineups", s.handleLineups)
		r.Get("/fixtures/{id}/history", s.handleHistory)
		r.Get("/provider/status", s.handleProviderStatus)
		r.Post("/watch/start", s.handleWatchStart)
		r.Post("/watch/stop", s.handleWatchStop)
	})

	return r
}

// Run serves until ctx is canceled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readHeaderTimeout time.Duration) error {
	if readHeaderTimeout <= 0 {
		return fmt.Errorf("read_header_timeout must be positive")
	}
	s.watchCtx = ctx

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("HTTP server listening", "service", s.deps.Service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// AddrFor returns the listen address for port.
func AddrFor(port int) (string, error) {
	if port <= 0 {
		return "", fmt.Errorf("port must be greater than 0")
	}
	return fmt.Sprintf(":%d", port), nil
}
