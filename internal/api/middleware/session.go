package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"Skillnet/internal/core/sessions"
)

// Context keys for storing session information
type contextKey string

const (
	SessionKey contextKey = "session"
)

// LoginPath is where unauthenticated page requests are sent
const LoginPath = "/login"

// SessionMiddleware gates routes behind a signed-in browser session
type SessionMiddleware struct {
	manager *sessions.Manager
	logger  *slog.Logger
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(manager *sessions.Manager, logger *slog.Logger) *SessionMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionMiddleware{manager: manager, logger: logger}
}

// RequireSession injects the live session into the context. Page requests
// without one are redirected to the login page; API requests get a 401.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.manager.Get(r)
		if err == nil {
			err = m.manager.Verify(r.Context(), s)
		}
		if err != nil {
			if !errors.Is(err, sessions.ErrNoSession) {
				m.logger.Warn("session check failed",
					"method", r.Method, "path", r.URL.Path, "error", err)
			}
			m.deny(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) deny(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeAuthError(w, "Sign in to continue")
		return
	}

	target := LoginPath
	if r.Method == http.MethodGet && r.URL.Path != "/" {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// wantsJSON reports whether the caller is the JSON API or a script rather
// than a page navigation
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/ws" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// GetSession extracts the session from the request context
// Returns nil if the route is not behind RequireSession
func GetSession(r *http.Request) *sessions.Session {
	s, _ := r.Context().Value(SessionKey).(*sessions.Session)
	return s
}

// SetTestSession sets the session in the context for testing purposes
func SetTestSession(ctx context.Context, s *sessions.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// writeAuthError writes a JSON error response for authentication failures
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	response := `{"error":"AuthenticationRequired","message":"` + message + `"}`
	if _, err := w.Write([]byte(response)); err != nil {
		slog.Warn("failed to write auth error response", "error", err)
	}
}
