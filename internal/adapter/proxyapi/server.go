// Package proxyapi serves the earthquake listing API backed by the USGS
// event service.
package proxyapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-dashboard/internal/adapter/usgs"
	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// EarthquakeFetcher queries the upstream event service.
type EarthquakeFetcher interface {
	FetchEarthquakes(ctx context.Context, q usgs.Query) ([]domain.EarthquakeRecord, error)
}

// Server is the listing API HTTP server.
type Server struct {
	httpServer *http.Server
	fetcher    EarthquakeFetcher
	window     time.Duration
	logger     *slog.Logger
}

// NewServer creates the listing API server. window is the lookback used when
// a request omits starttime or endtime.
func NewServer(addr string, fetcher EarthquakeFetcher, window time.Duration, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		fetcher: fetcher,
		window:  window,
		logger:  logger,
	}

	r.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/earthquakes", s.listEarthquakes)
	r.GET("/api/earthquakes", s.listEarthquakes)

	return s
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

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration", time.Since(start),
			"remote", c.ClientIP(),
		)
	}
}
