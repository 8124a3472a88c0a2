// Package server exposes the HTTP API: project CRUD, policy updates and
// reconciliation runs.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"traveldesk/internal/budget"
	"traveldesk/internal/config"
	"traveldesk/internal/db"
	"traveldesk/internal/events"
	"traveldesk/internal/models"
)

// RunResult is the API payload of one reconciliation run.
type RunResult struct {
	RunID       string              `json:"run_id"`
	ProjectID   string              `json:"project_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Fleet       budget.FleetSummary `json:"fleet"`
	Timelines   []*models.Timeline  `json:"timelines"`
	Failures    map[string]string   `json:"failures,omitempty"`
}

// Server is the HTTP API. The cache is optional; without it every read runs
// the engine.
type Server struct {
	cfg     *config.Config
	store   *db.DB
	cache   *Cache
	bus     *events.EventBus
	logger  zerolog.Logger
	limiter *rate.Limiter
}

// New wires the API together. Project mutations invalidate the run cache
// through the event bus.
func New(cfg *config.Config, store *db.DB, cache *Cache, bus *events.EventBus, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		cache:   cache,
		bus:     bus,
		logger:  logger.With().Str("component", "server").Logger(),
		limiter: rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst),
	}

	if cache != nil {
		invalidate := func(e events.Event) error {
			cache.InvalidateProject(context.Background(), e.Payload)
			return nil
		}
		bus.Subscribe(events.TypeProjectUpdated, invalidate)
		bus.Subscribe(events.TypeProjectDeleted, invalidate)
	}

	return s
}

// Handler builds the routed and middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/v1/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/v1/projects", s.handleSaveProject)
	mux.HandleFunc("GET /api/v1/projects/{id}", s.handleGetProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", s.handleDeleteProject)
	mux.HandleFunc("PUT /api/v1/projects/{id}/policy", s.handleUpdatePolicy)
	mux.HandleFunc("POST /api/v1/projects/{id}/reconcile", s.handleReconcile)
	mux.HandleFunc("GET /api/v1/projects/{id}/records", s.handleRecords)
	mux.HandleFunc("GET /api/v1/projects/{id}/summary", s.handleSummary)

	return s.rateLimit(s.authenticate(mux))
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("address", s.cfg.Server.Address).Msg("API server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// rateLimit rejects requests over the configured token-bucket rate.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate enforces the optional API key. Health endpoints stay open for
// probes.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.APIKey != "" && r.URL.Path != "/healthz" && r.URL.Path != "/readyz" {
			if r.Header.Get("x-api-key") != s.cfg.Server.APIKey {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if err := s.store.PingContext(ctx); err != nil {
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
