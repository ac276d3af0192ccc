package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Skillnet/internal/backend"
	"Skillnet/internal/backend/backendtest"
	"Skillnet/internal/core/sessions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionMiddleware(t *testing.T) (*SessionMiddleware, *sessions.Manager) {
	t.Helper()
	srv := backendtest.New(t)
	srv.AddUser("ada", "hunter2")

	manager, err := sessions.NewManager(sessions.Config{
		Backend: backend.Config{BaseURL: srv.URL},
		Secret:  []byte(strings.Repeat("k", 32)),
	})
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	return NewSessionMiddleware(manager, nil), manager
}

func TestRequireSession_InjectsSession(t *testing.T) {
	mw, manager := newSessionMiddleware(t)

	rec := httptest.NewRecorder()
	_, err := manager.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "ada", "hunter2")
	require.NoError(t, err)

	var got *sessions.Session
	handler := mw.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSession(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "ada", got.User.Username)
}

func TestRequireSession_Denied(t *testing.T) {
	mw, _ := newSessionMiddleware(t)

	called := false
	handler := mw.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	tests := []struct {
		name       string
		method     string
		path       string
		accept     string
		wantStatus int
		wantTarget string
	}{
		{name: "page redirects with next", method: http.MethodGet, path: "/communities/gophers?tab=projects",
			wantStatus: http.StatusSeeOther, wantTarget: "/login?next=%2Fcommunities%2Fgophers%3Ftab%3Dprojects"},
		{name: "root redirects without next", method: http.MethodGet, path: "/",
			wantStatus: http.StatusSeeOther, wantTarget: "/login"},
		{name: "form post redirects", method: http.MethodPost, path: "/logout",
			wantStatus: http.StatusSeeOther, wantTarget: "/login"},
		{name: "api gets 401", method: http.MethodPost, path: "/api/views/posts:global/more",
			wantStatus: http.StatusUnauthorized},
		{name: "json accept gets 401", method: http.MethodGet, path: "/feed", accept: "application/json",
			wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantTarget != "" {
				assert.Equal(t, tt.wantTarget, w.Header().Get("Location"))
			} else {
				assert.Contains(t, w.Body.String(), "AuthenticationRequired")
			}
		})
	}
	assert.False(t, called)
}

func TestGetSession_Missing(t *testing.T) {
	assert.Nil(t, GetSession(httptest.NewRequest(http.MethodGet, "/", nil)))

	s := &sessions.Session{ID: "test"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(SetTestSession(req.Context(), s))
	assert.Same(t, s, GetSession(req))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/feed", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1111", ""))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:2222", ""))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:3333", ""))

	assert.Equal(t, http.StatusOK, do("10.0.0.2:1111", ""))
	assert.Equal(t, http.StatusOK, do("10.0.0.9:1111", "203.0.113.5, 10.0.0.9"))
	assert.Equal(t, http.StatusOK, do("10.0.0.8:1111", "203.0.113.5"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.7:1111", "203.0.113.5"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.4")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}
