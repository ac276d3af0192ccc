// Package backend is the HTTP collaborator for the Skillnet REST API. Every
// request carries the session cookie; responses use the {"data": ...} and
// {"error": "..."} envelopes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// maxBodyBytes bounds how much of a response body is read into memory
const maxBodyBytes = 8 << 20

// Config configures a Client
type Config struct {
	// Transport is shared across clients; nil uses a default Transport
	Transport http.RoundTripper
	Logger    *slog.Logger

	// BaseURL is the backend origin, e.g. "http://localhost:8080"
	BaseURL string

	// Timeout bounds non-streaming requests. Zero means no timeout.
	Timeout time.Duration

	// ValidateResponses checks page envelopes against a JSON schema
	ValidateResponses bool
}

// Client talks to the backend on behalf of one signed-in viewer. It owns the
// viewer's cookie jar, so each browser session gets its own Client.
type Client struct {
	http     *http.Client
	stream   *http.Client
	base     *url.URL
	logger   *slog.Logger
	validate bool
}

// User is the profile returned by the session check
type User struct {
	Username   string `json:"Username"`
	Name       string `json:"Name"`
	URL        string `json:"URL"`
	ProfilePic string `json:"ProfilePic"`
}

// NewClient creates a Client with an empty cookie jar
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend: base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend: base URL must be http or https, got %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("backend: failed to create cookie jar: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = NewTransport(nil, "", 0, logger)
	}

	return &Client{
		http:     &http.Client{Transport: transport, Jar: jar, Timeout: cfg.Timeout},
		stream:   &http.Client{Transport: transport, Jar: jar},
		base:     base,
		logger:   logger,
		validate: cfg.ValidateResponses,
	}, nil
}

// URL resolves path against the backend origin
func (c *Client) URL(path string) string {
	return c.resolve(path).String()
}

func (c *Client) resolve(target string) *url.URL {
	ref, err := url.Parse(target)
	if err != nil {
		// Let the request fail with a useful message
		return &url.URL{Scheme: c.base.Scheme, Host: c.base.Host, Path: target}
	}
	return c.base.ResolveReference(ref)
}

// Get issues a GET and decodes the "data" field into out
func (c *Client) Get(ctx context.Context, target string, out any) error {
	return c.Do(ctx, http.MethodGet, target, nil, out)
}

// Post issues a POST with a JSON body
func (c *Client) Post(ctx context.Context, target string, body, out any) error {
	return c.Do(ctx, http.MethodPost, target, body, out)
}

// Patch issues a PATCH with a JSON body
func (c *Client) Patch(ctx context.Context, target string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, target, body, out)
}

// Delete issues a DELETE
func (c *Client) Delete(ctx context.Context, target string, out any) error {
	return c.Do(ctx, http.MethodDelete, target, nil, out)
}

// Do sends a JSON request. target may be absolute or relative to the base
// URL. When out is non-nil the response's "data" field is decoded into it.
func (c *Client) Do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", method, err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	data, err := c.send(ctx, method, target, reader, contentType)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%s %s: %w: missing data", method, target, ErrMalformedResponse)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, target, ErrMalformedResponse, err)
	}
	return nil
}

// send performs the request and returns the raw "data" field of a 2xx body
func (c *Client) send(ctx context.Context, method, target string, body io.Reader, contentType string) (json.RawMessage, error) {
	endpoint := c.resolve(target)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint.Path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response body: %w", method, endpoint.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(method, endpoint.Path, resp.StatusCode, raw)
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %v", method, endpoint.Path, ErrMalformedResponse, err)
	}
	return env.Data, nil
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	var env struct {
		Error string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &env); err == nil {
		msg = env.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Method: method, Path: path, StatusCode: status, Message: msg}
}

// Login signs in with a form POST to /login. The session cookie the backend
// sets is kept in the client's jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	_, err := c.send(ctx, http.MethodPost, "/login", strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded")
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Logout ends the backend session
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.send(ctx, http.MethodPost, "/auth/logout", nil, ""); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CurrentUser returns the signed-in viewer. It fails with ErrUnauthorized
// when the session is missing or expired.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.Get(ctx, "/auth/user", &user); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &user, nil
}

// Stream opens a long-lived GET and returns the raw body. The caller must
// close it. Streams ignore the client timeout and end with ctx.
func (c *Client) Stream(ctx context.Context, target string) (io.ReadCloser, error) {
	endpoint := c.resolve(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, newAPIError(http.MethodGet, endpoint.Path, resp.StatusCode, raw)
	}
	return resp.Body, nil
}

// Cookies returns the cookies the jar would send to the backend
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.base)
}

// Logger returns the client's logger
func (c *Client) Logger() *slog.Logger {
	return c.logger
}
