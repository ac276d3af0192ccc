package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"Skillnet/internal/api/middleware"
	"Skillnet/internal/backend"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/sessions"
	"Skillnet/internal/core/views"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// Handlers provides the HTTP handlers for the Skillnet web pages and the
// live update socket.
type Handlers struct {
	templates    *Templates
	manager      *sessions.Manager
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	previewLimit int
}

// NewHandlers creates a new Handlers instance. allowedOrigins limits which
// pages may open the live socket; an empty list allows only same-host pages.
func NewHandlers(templates *Templates, manager *sessions.Manager, previewLimit int, allowedOrigins []string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewGraphemes
	}
	return &Handlers{
		templates:    templates,
		manager:      manager,
		logger:       logger,
		previewLimit: previewLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// RootHandler sends the browser to the global feed
// GET /
func (h *Handlers) RootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/feed", http.StatusFound)
}

// LoginPageHandler renders the sign-in form
// GET /login
func (h *Handlers) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if _, err := h.manager.Get(r); err == nil {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}
	h.render(w, "login.html", PageData{Title: "Sign in", Next: next})
}

// LoginSubmitHandler signs the viewer in against the backend
// POST /login
func (h *Handlers) LoginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	next := safeNext(r.FormValue("next"))

	_, err := h.manager.Login(w, r, username, r.FormValue("password"))
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, sessions.ErrMissingCredentials):
			status = http.StatusBadRequest
		case backend.IsAuthError(err):
			status = http.StatusUnauthorized
		}
		h.logger.Warn("login failed", "username", username, "status", status, "error", err)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		h.render(w, "login.html", PageData{Title: "Sign in", Next: next, Error: loginMessage(err)})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// LogoutHandler ends the session
// POST /logout
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Logout(w, r); err != nil {
		h.logger.Warn("failed to clear session cookie", "error", err)
	}
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

// FeedPageHandler renders a post list
// GET /feed?community=|project=|username=
func (h *Handlers) FeedPageHandler(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r)
	scope, err := feed.ParseScope(r.URL.Query())
	if err != nil {
		http.Error(w, "Invalid feed scope", http.StatusBadRequest)
		return
	}
	v, err := s.Workspace.MountPosts(r.Context(), scope)
	if err != nil {
		h.mountFailed(w, r, err)
		return
	}

	snap := v.Snapshot()
	title := "Feed"
	if scope.Kind == feed.ScopeUser {
		title = scope.Username
	}
	h.render(w, "feed.html", h.postPage(s, title, snap))
}

// CommunityPageHandler renders a community's posts with a preview of its projects
// GET /communities/{name}
func (h *Handlers) CommunityPageHandler(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r)
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		http.NotFound(w, r)
		return
	}

	v, err := s.Workspace.MountCommunity(r.Context(), name)
	if err != nil {
		h.mountFailed(w, r, err)
		return
	}
	snap := v.Snapshot()
	data := h.postPage(s, name, snap)
	data.Community = snap.Community

	if snap.Community != nil {
		pv, err := s.Workspace.MountProjects(r.Context(), feed.Community(snap.Community.Community.ID))
		if err != nil {
			h.logger.Warn("failed to mount project preview", "community", name, "error", err)
		} else {
			psnap := pv.Snapshot()
			data.ProjectsView = &psnap
			data.Projects = projectCards(psnap)
			data.SeeAll = psnap.SeeAll
		}
	}
	h.render(w, "community.html", data)
}

// CommentsPageHandler renders the comment thread of a post
// GET /posts/{id}/comments
func (h *Handlers) CommentsPageHandler(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r)
	postID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || postID == 0 {
		http.NotFound(w, r)
		return
	}

	v, err := s.Workspace.MountComments(r.Context(), postID)
	if err != nil {
		h.mountFailed(w, r, err)
		return
	}
	snap := v.Snapshot()
	h.render(w, "comments.html", PageData{
		Title:       "Comments",
		User:        sessionUser(s),
		View:        snap,
		Comments:    commentCards(snap),
		CreateDraft: createDraft(snap),
		PostID:      postID,
		HasNew:      hasNew(s),
	})
}

// ProjectsPageHandler renders the full project gallery of a community or user
// GET /projects?community=|username=
func (h *Handlers) ProjectsPageHandler(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r)
	scope, err := feed.ParseScope(r.URL.Query())
	if err != nil || (scope.Kind != feed.ScopeCommunity && scope.Kind != feed.ScopeUser) {
		http.Error(w, "Projects are listed per community or per user", http.StatusBadRequest)
		return
	}

	v, err := s.Workspace.MountProjects(r.Context(), scope)
	if err != nil {
		h.mountFailed(w, r, err)
		return
	}
	snap := v.Snapshot()
	h.render(w, "projects.html", PageData{
		Title:       "Projects",
		User:        sessionUser(s),
		View:        snap,
		Projects:    projectCards(snap),
		CreateDraft: createDraft(snap),
		HasNew:      hasNew(s),
	})
}

func (h *Handlers) postPage(s *sessions.Session, title string, snap views.Snapshot) PageData {
	return PageData{
		Title:       title,
		User:        sessionUser(s),
		View:        snap,
		Posts:       postCards(snap, h.previewLimit),
		CreateDraft: createDraft(snap),
		HasNew:      hasNew(s),
	}
}

func (h *Handlers) mountFailed(w http.ResponseWriter, r *http.Request, err error) {
	if backend.IsAuthError(err) {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}
	h.logger.Error("failed to mount view", "path", r.URL.Path, "error", err)
	http.Error(w, feed.UserMessage(err), http.StatusBadGateway)
}

func (h *Handlers) render(w http.ResponseWriter, name string, data PageData) {
	if err := h.templates.Render(w, name, data); err != nil {
		h.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func sessionUser(s *sessions.Session) backend.User {
	if s == nil {
		return backend.User{}
	}
	return s.CurrentUser()
}

func hasNew(s *sessions.Session) bool {
	return s != nil && s.Notifications != nil && s.Notifications.HasNew()
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, sessions.ErrMissingCredentials):
		return "Enter your username and password."
	case backend.IsAuthError(err):
		return "Invalid username or password."
	default:
		return feed.UserMessage(err)
	}
}

// safeNext keeps post-login redirects on this site
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/feed"
	}
	return next
}
