package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/quake-dashboard/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/quake-dashboard/internal/adapter/http"
	"github.com/couchcryptid/quake-dashboard/internal/adapter/quakeapi"
	"github.com/couchcryptid/quake-dashboard/internal/config"
	"github.com/couchcryptid/quake-dashboard/internal/dashboard"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	api := quakeapi.NewClient(cfg.QuakeAPIURL, cfg.QuakeAPITimeout, metrics, logger)

	// Advisory generation is feature-flagged via GEMINI_API_KEY.
	var generator dashboard.TextGenerator
	if cfg.GeminiEnabled() {
		generator = gemini.NewClient(cfg.GeminiAPIKey, gemini.Options{
			Model:           cfg.GeminiModel,
			Temperature:     cfg.GeminiTemperature,
			MaxOutputTokens: cfg.GeminiMaxOutputTokens,
		}, cfg.GeminiTimeout, logger)
		logger.Info("advisory generation enabled", "model", cfg.GeminiModel, "timeout", cfg.GeminiTimeout)
	} else {
		logger.Info("advisory generation disabled")
	}

	store := dashboard.NewStore(api, generator, dashboard.StoreConfig{
		TTL: cfg.SessionTTL,
		Tiles: dashboard.TileLayer{
			URL:         cfg.MapTileURL,
			Attribution: cfg.MapTileAttribution,
		},
	}, metrics, logger)

	srv, err := httpadapter.NewServer(cfg.HTTPAddr, store, api, httpadapter.Options{
		AdvisoryRateLimit: cfg.AdvisoryRateLimit,
		AdvisoryRateBurst: cfg.AdvisoryRateBurst,
		SessionRateLimit:  cfg.SessionRateLimit,
		SessionRateBurst:  cfg.SessionRateBurst,
		SessionTTL:        cfg.SessionTTL,
	}, logger)
	if err != nil {
		logger.Error("failed to create http server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Expire idle sessions.
	go store.Run(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	store.Close()

	logger.Info("shutdown complete")
}
