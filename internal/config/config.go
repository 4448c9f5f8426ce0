package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds the dashboard settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Earthquake API.
	QuakeAPIURL     string
	QuakeAPITimeout time.Duration

	// Gemini advisory generation. An empty key disables it.
	GeminiAPIKey          string
	GeminiModel           string
	GeminiTemperature     float64
	GeminiMaxOutputTokens int
	GeminiTimeout         time.Duration

	AdvisoryRateLimit float64
	AdvisoryRateBurst int

	// New sessions per second allowed per client IP.
	SessionRateLimit float64
	SessionRateBurst int

	SessionTTL time.Duration

	MapTileURL         string
	MapTileAttribution string
}

// GeminiEnabled reports whether an API key was configured.
func (c *Config) GeminiEnabled() bool {
	return c.GeminiAPIKey != ""
}

// ProxyConfig holds the usgsproxy settings.
type ProxyConfig struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	USGSURL           string
	USGSTimeout       time.Duration
	USGSDefaultWindow time.Duration
}

// Load reads the dashboard configuration from the environment, applying
// defaults where unset. A .env file in the working directory is read first.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parseDuration("QUAKE_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geminiTimeout, err := parseDuration("GEMINI_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	sessionTTL, err := parseDuration("SESSION_TTL", "30m")
	if err != nil {
		return nil, err
	}

	temperature, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEMINI_TEMPERATURE", "0.4"), 64)
	if err != nil || temperature < 0 || temperature > 2 {
		return nil, errors.New("invalid GEMINI_TEMPERATURE")
	}
	maxTokens, err := parsePositiveInt("GEMINI_MAX_OUTPUT_TOKENS", "500")
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("ADVISORY_RATE_LIMIT", "1"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid ADVISORY_RATE_LIMIT")
	}
	rateBurst, err := parsePositiveInt("ADVISORY_RATE_BURST", "3")
	if err != nil {
		return nil, err
	}
	sessionRate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("SESSION_RATE_LIMIT", "0.2"), 64)
	if err != nil || sessionRate <= 0 {
		return nil, errors.New("invalid SESSION_RATE_LIMIT")
	}
	sessionBurst, err := parsePositiveInt("SESSION_RATE_BURST", "5")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		QuakeAPIURL:     sharedcfg.EnvOrDefault("QUAKE_API_URL", "http://localhost:5000"),
		QuakeAPITimeout: apiTimeout,

		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		GeminiModel:           sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-pro"),
		GeminiTemperature:     temperature,
		GeminiMaxOutputTokens: maxTokens,
		GeminiTimeout:         geminiTimeout,

		AdvisoryRateLimit: rateLimit,
		AdvisoryRateBurst: rateBurst,

		SessionRateLimit: sessionRate,
		SessionRateBurst: sessionBurst,
		SessionTTL:       sessionTTL,

		MapTileURL:         sharedcfg.EnvOrDefault("MAP_TILE_URL", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"),
		MapTileAttribution: sharedcfg.EnvOrDefault("MAP_TILE_ATTRIBUTION", "&copy; OpenStreetMap contributors"),
	}

	if err := requireAbsoluteURL("QUAKE_API_URL", cfg.QuakeAPIURL); err != nil {
		return nil, err
	}
	if cfg.GeminiModel == "" {
		return nil, errors.New("GEMINI_MODEL is required")
	}

	return cfg, nil
}

// LoadProxy reads the usgsproxy configuration from the environment.
func LoadProxy() (*ProxyConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	usgsTimeout, err := parseDuration("USGS_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	window, err := parseDuration("USGS_DEFAULT_WINDOW", "168h")
	if err != nil {
		return nil, err
	}

	cfg := &ProxyConfig{
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":5000"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		USGSURL:           sharedcfg.EnvOrDefault("USGS_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		USGSTimeout:       usgsTimeout,
		USGSDefaultWindow: window,
	}

	if err := requireAbsoluteURL("USGS_URL", cfg.USGSURL); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func requireAbsoluteURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", key)
	}
	return nil
}
