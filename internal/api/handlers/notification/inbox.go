package notification

import (
	"net/http"

	"Skillnet/internal/api/handlers"
	"Skillnet/internal/api/middleware"
	"Skillnet/internal/core/notifications"
)

type inboxResponse struct {
	Items  []notifications.Notification `json:"items"`
	HasNew bool                         `json:"hasNew"`
}

// HandleInbox returns the signed-in viewer's notifications
// GET /api/notifications
func HandleInbox(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r)
	if s == nil {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthenticationRequired", "Sign in to continue")
		return
	}

	handlers.WriteJSON(w, http.StatusOK, inboxResponse{
		Items:  s.Notifications.Inbox(),
		HasNew: s.Notifications.HasNew(),
	})
}

// HandleMarkSeen clears the unread marker on the bell
// POST /api/notifications/seen
func HandleMarkSeen(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r)
	if s == nil {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthenticationRequired", "Sign in to continue")
		return
	}

	s.Notifications.MarkSeen()
	w.WriteHeader(http.StatusNoContent)
}
