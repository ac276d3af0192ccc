// Package sessions ties a browser cookie to the signed-in viewer's backend
// client, mounted views and notification stream.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"Skillnet/internal/backend"
	"Skillnet/internal/core/communities"
	"Skillnet/internal/core/notifications"
	"Skillnet/internal/core/notify"
	"Skillnet/internal/core/views"

	"github.com/google/uuid"
	gsessions "github.com/gorilla/sessions"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// CookieName is the browser cookie holding the session ID
	CookieName = "skillnet_web"

	// DefaultMaxSessions bounds how many sessions are kept live
	DefaultMaxSessions = 1024

	// DefaultVerifyInterval is how long a successful session check is trusted
	DefaultVerifyInterval = time.Minute

	sessionIDKey = "id"
	cookieMaxAge = 7 * 24 * 60 * 60
)

var (
	// ErrNoSession is returned when the request carries no live session
	ErrNoSession = errors.New("no session")

	// ErrMissingCredentials is returned when username or password is empty
	ErrMissingCredentials = errors.New("username and password are required")
)

// Config configures a Manager
type Config struct {
	Logger *slog.Logger

	// Backend is the template for every session's backend client
	Backend backend.Config

	// Secret signs the session cookie
	Secret []byte

	// Secure marks the cookie HTTPS-only
	Secure bool

	MaxSessions    int
	MaxViews       int
	VerifyInterval time.Duration

	// Notifications starts a notification stream for each session
	Notifications bool
}

// Session is one signed-in browser
type Session struct {
	verifiedAt    time.Time
	Client        *backend.Client
	Bus           *notify.Bus
	Workspace     *views.Workspace
	Notifications *notifications.Stream
	cancel        context.CancelFunc
	User          backend.User
	ID            string
	mu            sync.Mutex
}

// CurrentUser returns the viewer's profile as of the last verification
func (s *Session) CurrentUser() backend.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.User
}

func (s *Session) close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.Workspace.Close()
}

// Manager keeps the live sessions. Evicted sessions unmount their views and
// stop their notification streams; the browser is sent back to the login page.
type Manager struct {
	store  *gsessions.CookieStore
	live   *lru.Cache[string, *Session]
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a Manager
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("sessions: secret is required")
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.VerifyInterval <= 0 {
		cfg.VerifyInterval = DefaultVerifyInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	live, err := lru.NewWithEvict[string, *Session](cfg.MaxSessions, func(id string, s *Session) {
		logger.Debug("session closed", "session_id", id, "username", s.CurrentUser().Username)
		s.close()
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	store := gsessions.NewCookieStore(cfg.Secret)
	store.Options = &gsessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		store:  store,
		live:   live,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Login signs in against the backend and starts a session for the browser
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	ctx := r.Context()

	client, err := backend.NewClient(m.cfg.Backend)
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx, username, password); err != nil {
		return nil, err
	}
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s, err := m.newSession(client, *user)
	if err != nil {
		return nil, err
	}

	cookie, _ := m.store.Get(r, CookieName)
	if old, ok := cookie.Values[sessionIDKey].(string); ok {
		m.live.Remove(old)
	}
	cookie.Values[sessionIDKey] = s.ID
	if err := cookie.Save(r, w); err != nil {
		s.close()
		return nil, fmt.Errorf("save session cookie: %w", err)
	}

	m.live.Add(s.ID, s)
	m.logger.Info("session started", "session_id", s.ID, "username", user.Username)
	return s, nil
}

func (m *Manager) newSession(client *backend.Client, user backend.User) (*Session, error) {
	bus := notify.NewBus(m.logger)

	// IsOwner is per viewer, so resolutions are not shared between sessions
	resolver, err := communities.NewResolver(client, 0, 0, m.logger)
	if err != nil {
		return nil, err
	}
	ws, err := views.NewWorkspace(views.Deps{
		Client:   client,
		Bus:      bus,
		Resolver: resolver,
		Logger:   m.logger,
	}, m.cfg.MaxViews)
	if err != nil {
		return nil, err
	}

	stream, err := notifications.NewStream(notifications.Config{
		Source: client,
		Bus:    bus,
		Logger: m.logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:            uuid.NewString(),
		User:          user,
		Client:        client,
		Bus:           bus,
		Workspace:     ws,
		Notifications: stream,
		verifiedAt:    m.now(),
	}

	// The next Verify refetches the profile
	bus.Subscribe(func(e notify.Event) {
		if e.Kind == notify.EventProfileChanged {
			s.mu.Lock()
			s.verifiedAt = time.Time{}
			s.mu.Unlock()
		}
	})

	if m.cfg.Notifications {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go func() {
			if err := stream.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("notification stream stopped", "session_id", s.ID, "error", err)
			}
		}()
	}
	return s, nil
}

// Get returns the live session named by the request's cookie
func (m *Manager) Get(r *http.Request) (*Session, error) {
	cookie, err := m.store.Get(r, CookieName)
	if err != nil {
		// A cookie signed with an old secret
		m.logger.Debug("unreadable session cookie", "error", err)
		return nil, ErrNoSession
	}
	id, ok := cookie.Values[sessionIDKey].(string)
	if !ok || id == "" {
		return nil, ErrNoSession
	}
	s, ok := m.live.Get(id)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Verify re-checks the backend session once the last check is older than
// the verify interval. A rejected session is closed.
func (m *Manager) Verify(ctx context.Context, s *Session) error {
	s.mu.Lock()
	fresh := m.now().Sub(s.verifiedAt) < m.cfg.VerifyInterval
	s.mu.Unlock()
	if fresh {
		return nil
	}

	user, err := s.Client.CurrentUser(ctx)
	if err != nil {
		if backend.IsAuthError(err) {
			m.logger.Info("backend session expired", "session_id", s.ID, "username", s.CurrentUser().Username)
			m.live.Remove(s.ID)
			return fmt.Errorf("%w: %v", ErrNoSession, err)
		}
		return err
	}

	s.mu.Lock()
	s.verifiedAt = m.now()
	s.User = *user
	s.mu.Unlock()
	return nil
}

// Logout ends the session on the backend and clears the cookie
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	cookie, _ := m.store.Get(r, CookieName)
	if id, ok := cookie.Values[sessionIDKey].(string); ok {
		if s, ok := m.live.Peek(id); ok {
			if err := s.Client.Logout(r.Context()); err != nil {
				m.logger.Warn("backend logout failed", "session_id", id, "error", err)
			}
			m.live.Remove(id)
		}
	}

	delete(cookie.Values, sessionIDKey)
	cookie.Options.MaxAge = -1
	return cookie.Save(r, w)
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	return m.live.Len()
}

// Close ends every session
func (m *Manager) Close() {
	m.live.Purge()
}
