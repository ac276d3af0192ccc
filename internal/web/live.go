package web

import (
	"net/http"
	"sync"
	"time"

	"Skillnet/internal/api/middleware"
	"Skillnet/internal/core/notify"
	"Skillnet/internal/core/views"

	"github.com/gorilla/websocket"
)

const (
	livePingInterval = 30 * time.Second
	liveReadTimeout  = 60 * time.Second
	liveWriteTimeout = 10 * time.Second
	liveBuffer       = 32
)

// Live message types
const (
	MessageSnapshot     = "snapshot"
	MessageToast        = "toast"
	MessageNotification = "notification"
)

// LiveMessage is one frame pushed to the page
type LiveMessage struct {
	Snapshot *views.Snapshot      `json:"snapshot,omitempty"`
	Toast    *notify.Notification `json:"toast,omitempty"`
	Type     string               `json:"type"`
	Text     string               `json:"text,omitempty"`
}

// LiveHandler pushes snapshots of the views named by ?view= plus the session's
// toasts and notifications to the page over a websocket
// GET /ws?view=<key>&view=<key>
func (h *Handlers) LiveHandler(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r)

	changed := make(chan views.View, liveBuffer)
	events := make(chan LiveMessage, liveBuffer)

	var unsubscribe []func()
	defer func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}()

	for _, key := range r.URL.Query()["view"] {
		v, ok := s.Workspace.View(key)
		if !ok {
			continue
		}
		unsubscribe = append(unsubscribe, v.Subscribe(func() {
			select {
			case changed <- v:
			default:
			}
		}))
	}

	if s.Bus != nil {
		unsubscribe = append(unsubscribe, s.Bus.Subscribe(func(e notify.Event) {
			msg, ok := liveEvent(e)
			if !ok {
				return
			}
			select {
			case events <- msg:
			default:
				h.logger.Warn("live socket backlog full, dropping event", "session_id", s.ID, "kind", e.Kind.String())
			}
		}))
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			h.logger.Debug("failed to close websocket", "error", closeErr)
		}
	}()

	done := make(chan struct{})
	var closeOnce sync.Once

	if err := conn.SetReadDeadline(time.Now().Add(liveReadTimeout)); err != nil {
		h.logger.Debug("failed to set read deadline", "error", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
	})

	// The page never sends data; reading keeps control frames flowing and
	// notices when the tab goes away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeOnce.Do(func() { close(done) })
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		var msg LiveMessage
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout)); err != nil {
				h.logger.Debug("failed to send ping", "error", err)
				return
			}
			continue
		case v := <-changed:
			snap := v.Snapshot()
			msg = LiveMessage{Type: MessageSnapshot, Snapshot: &snap}
		case msg = <-events:
		}

		if err := conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
			return
		}
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("failed to write live message", "type", msg.Type, "error", err)
			return
		}
	}
}

func liveEvent(e notify.Event) (LiveMessage, bool) {
	switch e.Kind {
	case notify.EventToast:
		return LiveMessage{Type: MessageToast, Toast: e.Toast}, e.Toast != nil
	case notify.EventNotificationReceived:
		return LiveMessage{Type: MessageNotification, Text: e.Text}, true
	default:
		return LiveMessage{}, false
	}
}

// checkOrigin accepts same-host pages and the configured origins
func checkOrigin(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
