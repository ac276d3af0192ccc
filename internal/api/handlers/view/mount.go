package view

import (
	"net/http"
	"strconv"
	"strings"

	"Skillnet/internal/api/handlers"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/views"

	"github.com/go-chi/chi/v5"
)

// HandleMountPosts mounts a post list and returns its snapshot
// GET /api/feed?community=|project=|username=
func (h *Handler) HandleMountPosts(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	scope, err := feed.ParseScope(r.URL.Query())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.respondMounted(w, r, func() (views.View, error) {
		return ws.MountPosts(r.Context(), scope)
	})
}

// HandleMountCommunity mounts a community's post list
// GET /api/communities/{name}
func (h *Handler) HandleMountCommunity(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "community name is required")
		return
	}
	h.respondMounted(w, r, func() (views.View, error) {
		return ws.MountCommunity(r.Context(), name)
	})
}

// HandleMountComments mounts the comment thread of a post
// GET /api/posts/{id}/comments
func (h *Handler) HandleMountComments(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	postID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || postID == 0 {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid post ID")
		return
	}
	h.respondMounted(w, r, func() (views.View, error) {
		return ws.MountComments(r.Context(), postID)
	})
}

// HandleMountProjects mounts a project gallery
// GET /api/projects?community=|username=
func (h *Handler) HandleMountProjects(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	scope, err := feed.ParseScope(r.URL.Query())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if scope.Kind != feed.ScopeCommunity && scope.Kind != feed.ScopeUser {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidScope",
			"projects are listed per community or per user")
		return
	}
	h.respondMounted(w, r, func() (views.View, error) {
		return ws.MountProjects(r.Context(), scope)
	})
}

func (h *Handler) respondMounted(w http.ResponseWriter, r *http.Request, mount func() (views.View, error)) {
	v, err := mount()
	if err != nil {
		h.logger.Warn("failed to mount view", "path", r.URL.Path, "error", err)
		handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// HandleUnmount closes a view
// DELETE /api/views/{key}
func (h *Handler) HandleUnmount(w http.ResponseWriter, r *http.Request) {
	v, ok := mounted(w, r)
	if !ok {
		return
	}
	ws, _ := workspace(w, r)
	ws.Unmount(v.Key())
	w.WriteHeader(http.StatusNoContent)
}
