package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Skillnet/internal/api/middleware"
	"Skillnet/internal/backend"
	"Skillnet/internal/backend/backendtest"
	"Skillnet/internal/core/sessions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox(t *testing.T) {
	srv := backendtest.New(t)
	srv.AddUser("ada", "hunter2")
	srv.Notify("ada", backendtest.Notification{SenderID: "bob", Content: "bob commented on your post"})

	m, err := sessions.NewManager(sessions.Config{
		Backend:       backend.Config{BaseURL: srv.URL},
		Secret:        []byte(strings.Repeat("k", 32)),
		Notifications: true,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	s, err := m.Login(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil), "ada", "hunter2")
	require.NoError(t, err)
	require.Eventually(t, s.Notifications.HasNew, 5*time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req = req.WithContext(middleware.SetTestSession(req.Context(), s))
	w := httptest.NewRecorder()
	HandleInbox(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []struct {
			SenderID string `json:"SenderId"`
			Content  string `json:"Content"`
		} `json:"items"`
		HasNew bool `json:"hasNew"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "bob", resp.Items[0].SenderID)
	assert.Equal(t, "bob commented on your post", resp.Items[0].Content)
	assert.True(t, resp.HasNew)

	req = httptest.NewRequest(http.MethodPost, "/api/notifications/seen", nil)
	req = req.WithContext(middleware.SetTestSession(req.Context(), s))
	w = httptest.NewRecorder()
	HandleMarkSeen(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, s.Notifications.HasNew())
}

func TestInbox_RequiresSession(t *testing.T) {
	w := httptest.NewRecorder()
	HandleInbox(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	HandleMarkSeen(w, httptest.NewRequest(http.MethodPost, "/api/notifications/seen", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
