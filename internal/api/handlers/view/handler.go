// Package view serves the JSON API the browser uses to drive mounted feeds:
// mounting, pagination, retries and the viewer's own writes.
package view

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"Skillnet/internal/api/handlers"
	"Skillnet/internal/api/middleware"
	"Skillnet/internal/core/views"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds create and update request bodies
const maxBodyBytes = 1 << 20

// Handler serves the view endpoints for the session in the request context
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a new view handler
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger}
}

// workspace returns the session's workspace, writing a 401 if there is none
func workspace(w http.ResponseWriter, r *http.Request) (*views.Workspace, bool) {
	s := middleware.GetSession(r)
	if s == nil {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthenticationRequired", "Sign in to continue")
		return nil, false
	}
	return s.Workspace, true
}

// mounted looks up the view named by the {key} URL parameter
func mounted(w http.ResponseWriter, r *http.Request) (views.View, bool) {
	ws, ok := workspace(w, r)
	if !ok {
		return nil, false
	}
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid view key")
		return nil, false
	}
	v, found := ws.View(key)
	if !found {
		handleServiceError(w, fmt.Errorf("%w: %s", ErrViewNotMounted, key))
		return nil, false
	}
	return v, true
}

func itemID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid item ID")
		return 0, false
	}
	return id, true
}

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge",
				"Request body too large (max 1MB)")
			return nil, false
		}
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return nil, false
	}
	return raw, true
}
