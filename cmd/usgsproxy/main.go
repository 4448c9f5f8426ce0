package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/quake-dashboard/internal/adapter/proxyapi"
	"github.com/couchcryptid/quake-dashboard/internal/adapter/usgs"
	"github.com/couchcryptid/quake-dashboard/internal/config"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

func main() {
	cfg, err := config.LoadProxy()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := usgs.NewClient(cfg.USGSURL, cfg.USGSTimeout, metrics, logger)
	srv := proxyapi.NewServer(cfg.HTTPAddr, client, cfg.USGSDefaultWindow, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
