package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Skillnet/internal/api/middleware"
	"Skillnet/internal/backend"
	"Skillnet/internal/core/sessions"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	m, err := sessions.NewManager(sessions.Config{
		Backend: backend.Config{BaseURL: "http://backend.invalid"},
		Secret:  []byte(strings.Repeat("k", 32)),
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	r := chi.NewRouter()
	mw := middleware.NewSessionMiddleware(m, nil)
	RegisterViewRoutes(r, mw, nil)
	require.NoError(t, RegisterWebRoutes(r, m, mw, WebConfig{}))
	return r
}

func TestRoutes_SessionGate(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name     string
		method   string
		path     string
		status   int
		location string
	}{
		{name: "api requires session", method: http.MethodGet, path: "/api/feed", status: http.StatusUnauthorized},
		{name: "view api requires session", method: http.MethodPost, path: "/api/views/posts:global/more", status: http.StatusUnauthorized},
		{name: "notifications require session", method: http.MethodGet, path: "/api/notifications", status: http.StatusUnauthorized},
		{name: "socket requires session", method: http.MethodGet, path: "/ws", status: http.StatusUnauthorized},
		{name: "page redirects to login", method: http.MethodGet, path: "/communities/go", status: http.StatusSeeOther,
			location: "/login?next=%2Fcommunities%2Fgo"},
		{name: "root redirects to feed", method: http.MethodGet, path: "/", status: http.StatusFound, location: "/feed"},
		{name: "login page is public", method: http.MethodGet, path: "/login", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
		})
	}
}
