package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-dashboard/internal/dashboard"
)

// Options tune the dashboard server.
type Options struct {
	// AdvisoryRateLimit is the sustained advisory requests per second allowed per client.
	AdvisoryRateLimit float64
	AdvisoryRateBurst int
	// SessionRateLimit is the sustained new sessions per second allowed per client.
	SessionRateLimit float64
	SessionRateBurst int
	// SessionTTL also bounds how long an idle client's rate limiter is kept.
	SessionTTL time.Duration
}

// Server serves the dashboard pages, its JSON endpoints, and the health,
// readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	store      *dashboard.Store
	renderer   *Renderer
	logger     *slog.Logger

	sessionLimiter *rateLimiter
}

// NewServer creates the dashboard HTTP server.
func NewServer(addr string, store *dashboard.Store, ready sharedobs.ReadinessChecker, opts Options, logger *slog.Logger) (*Server, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:          store,
		renderer:       renderer,
		logger:         logger,
		sessionLimiter: newRateLimiter(opts.SessionRateLimit, opts.SessionRateBurst, opts.SessionTTL, logger),
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	limiter := newRateLimiter(opts.AdvisoryRateLimit, opts.AdvisoryRateBurst, opts.SessionTTL, logger)

	r.With(s.withSession(true)).Get("/", s.handlePage)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession(false))

		r.Get("/markers.json", s.handleMarkers)
		r.Get("/heatmap.json", s.handleHeatmap)
		r.Post("/filters", s.handleFilters)
		r.Post("/nearby", s.handleNearby)
		r.Post("/nearby/predict", s.handlePredict)
		r.With(limiter.middleware).Post("/advisory", s.handleAdvisory)
	})

	return s, nil
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
