// Package config loads the web server's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config validation errors
var (
	// ErrMissingBackendURL is returned when BackendURL is empty
	ErrMissingBackendURL = errors.New("BackendURL is required")
	// ErrInvalidBackendURL is returned when BackendURL is not an absolute http(s) URL
	ErrInvalidBackendURL = errors.New("BackendURL must be an absolute http or https URL")
	// ErrWeakSessionSecret is returned when SessionSecret is shorter than 32 bytes
	ErrWeakSessionSecret = errors.New("SessionSecret must be at least 32 bytes")
	// ErrInvalidRequestTimeout is returned when RequestTimeout is negative
	ErrInvalidRequestTimeout = errors.New("RequestTimeout cannot be negative")
	// ErrInvalidRequestsPerSecond is returned when RequestsPerSecond is negative
	ErrInvalidRequestsPerSecond = errors.New("RequestsPerSecond cannot be negative")
	// ErrInvalidMaxMountedViews is returned when MaxMountedViews is not positive
	ErrInvalidMaxMountedViews = errors.New("MaxMountedViews must be positive")
	// ErrInvalidPreviewGraphemes is returned when PreviewGraphemes is not positive
	ErrInvalidPreviewGraphemes = errors.New("PreviewGraphemes must be positive")
	// ErrInvalidRateLimit is returned when RateLimit is not positive
	ErrInvalidRateLimit = errors.New("RateLimit must be positive")
)

const minSessionSecretLen = 32

// Config holds the configuration for the web server.
type Config struct {
	// BackendURL is the origin of the REST backend, e.g. "http://localhost:8080".
	BackendURL string

	// ListenAddr is the address the web server binds to.
	ListenAddr string

	// SessionSecret signs browser session cookies.
	SessionSecret string

	// AllowedOrigins lists origins allowed to call the JSON API cross-origin.
	// Empty disables CORS.
	AllowedOrigins []string

	// RequestTimeout bounds each backend request. Zero means no timeout.
	RequestTimeout time.Duration

	// RequestsPerSecond paces requests to the backend. Zero means unpaced.
	RequestsPerSecond float64

	// MaxMountedViews is how many feeds one session keeps open.
	MaxMountedViews int

	// PreviewGraphemes is where long post content is cut for "Show more".
	PreviewGraphemes int

	// ValidateResponses checks every page envelope against its JSON schema.
	ValidateResponses bool

	// SecureCookies marks the session cookie HTTPS-only.
	SecureCookies bool

	// RateLimit is the number of requests per minute allowed per client IP.
	RateLimit int

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with sensible default values.
// SessionSecret has no default and must be provided.
func DefaultConfig() Config {
	return Config{
		BackendURL:        "http://localhost:8080",
		ListenAddr:        ":3000",
		MaxMountedViews:   16,
		PreviewGraphemes:  300,
		RateLimit:         300,
		RequestsPerSecond: 0,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.BackendURL == "" {
		return ErrMissingBackendURL
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: got %q", ErrInvalidBackendURL, c.BackendURL)
	}
	if len(c.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("%w: got %d", ErrWeakSessionSecret, len(c.SessionSecret))
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidRequestTimeout, c.RequestTimeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidRequestsPerSecond, c.RequestsPerSecond)
	}
	if c.MaxMountedViews <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxMountedViews, c.MaxMountedViews)
	}
	if c.PreviewGraphemes <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPreviewGraphemes, c.PreviewGraphemes)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRateLimit, c.RateLimit)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing or unparsable values.
//
// Environment variables:
//   - SKILLNET_BACKEND_URL: backend origin (default: "http://localhost:8080")
//   - SKILLNET_LISTEN_ADDR: listen address (default: ":3000")
//   - SKILLNET_SESSION_SECRET: session cookie key, at least 32 bytes (required)
//   - SKILLNET_ALLOWED_ORIGINS: comma-separated CORS origins (default: none)
//   - SKILLNET_REQUEST_TIMEOUT: backend request timeout, e.g. "10s" (default: none)
//   - SKILLNET_REQUESTS_PER_SECOND: backend request pacing (default: unpaced)
//   - SKILLNET_MAX_MOUNTED_VIEWS: open feeds per session (default: 16)
//   - SKILLNET_PREVIEW_GRAPHEMES: preview length for long posts (default: 300)
//   - SKILLNET_VALIDATE_RESPONSES: "true"/"1" to validate page envelopes (default: false)
//   - SKILLNET_SECURE_COOKIES: "true"/"1" when served over HTTPS (default: false)
//   - SKILLNET_RATE_LIMIT: requests per minute per client IP (default: 300)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_FORMAT: text or json (default: text)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("SKILLNET_BACKEND_URL"); v != "" {
		cfg.BackendURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("SKILLNET_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	cfg.SessionSecret = os.Getenv("SKILLNET_SESSION_SECRET")

	if v := os.Getenv("SKILLNET_ALLOWED_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if v := os.Getenv("SKILLNET_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.RequestTimeout = d
		} else {
			warnDefault("SKILLNET_REQUEST_TIMEOUT", v, cfg.RequestTimeout, err)
		}
	}

	if v := os.Getenv("SKILLNET_REQUESTS_PER_SECOND"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			cfg.RequestsPerSecond = n
		} else {
			warnDefault("SKILLNET_REQUESTS_PER_SECOND", v, cfg.RequestsPerSecond, err)
		}
	}

	cfg.MaxMountedViews = positiveInt("SKILLNET_MAX_MOUNTED_VIEWS", cfg.MaxMountedViews)
	cfg.PreviewGraphemes = positiveInt("SKILLNET_PREVIEW_GRAPHEMES", cfg.PreviewGraphemes)
	cfg.RateLimit = positiveInt("SKILLNET_RATE_LIMIT", cfg.RateLimit)

	if v := os.Getenv("SKILLNET_VALIDATE_RESPONSES"); v != "" {
		cfg.ValidateResponses = v == "true" || v == "1"
	}
	if v := os.Getenv("SKILLNET_SECURE_COOKIES"); v != "" {
		cfg.SecureCookies = v == "true" || v == "1"
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	return cfg
}

func positiveInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		warnDefault(name, v, def, err)
		return def
	}
	return n
}

func warnDefault(name, value string, def any, err error) {
	slog.Warn("[CONFIG] invalid "+name+" value, using default",
		"value", value,
		"default", def,
		"error", err,
	)
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
