package backend

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies this service to the backend
const DefaultUserAgent = "Skillnet-Web/1.0"

// RequestIDHeader carries a per-request UUID so backend logs can be matched
// against ours.
const RequestIDHeader = "X-Request-ID"

// Transport decorates every backend request with identification headers and
// paces requests through a shared token bucket. One Transport is shared by
// every session's Client.
type Transport struct {
	base      http.RoundTripper
	limiter   *rate.Limiter
	logger    *slog.Logger
	userAgent string
}

// NewTransport creates a Transport. requestsPerSecond <= 0 disables pacing.
func NewTransport(base http.RoundTripper, userAgent string, requestsPerSecond float64, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &Transport{
		base:      base,
		userAgent: userAgent,
		logger:    logger,
	}
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return t
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	// RoundTrippers must not modify the caller's request
	out := req.Clone(req.Context())
	out.Header.Set("User-Agent", t.userAgent)
	requestID := out.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		out.Header.Set(RequestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(out)
	if err != nil {
		t.logger.Debug("backend request failed",
			"method", out.Method, "url", out.URL.Redacted(), "request_id", requestID, "error", err)
		return nil, err
	}

	t.logger.Debug("backend request",
		"method", out.Method,
		"url", out.URL.Redacted(),
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))
	return resp, nil
}
