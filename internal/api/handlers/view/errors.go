package view

import (
	"errors"
	"log/slog"
	"net/http"

	"Skillnet/internal/api/handlers"
	"Skillnet/internal/backend"
	"Skillnet/internal/core/comments"
	"Skillnet/internal/core/communities"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/posts"
	"Skillnet/internal/core/projects"
	"Skillnet/internal/core/views"
)

// ErrViewNotMounted is returned for a view key the session has not mounted
var ErrViewNotMounted = errors.New("view not mounted")

// handleServiceError maps feed and backend errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrViewNotMounted) || errors.Is(err, feed.ErrClosed):
		handlers.WriteError(w, http.StatusNotFound, "ViewNotMounted",
			"This list is no longer open. Reload the page.")

	case errors.Is(err, views.ErrInvalidPayload):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")

	case posts.IsValidationError(err) || comments.IsValidationError(err):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", feed.UserMessage(err))

	case errors.Is(err, projects.ErrNameRequired):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Project name is required.")

	case errors.Is(err, projects.ErrScopeMismatch):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Projects created here belong to this community.")

	case errors.Is(err, feed.ErrInvalidScope):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidScope", err.Error())

	case errors.Is(err, feed.ErrCounterUnsupported) ||
		errors.Is(err, comments.ErrLikesUnsupported) ||
		errors.Is(err, projects.ErrLikesUnsupported):
		handlers.WriteError(w, http.StatusBadRequest, "Unsupported", "These items cannot be liked.")

	case errors.Is(err, feed.ErrItemNotFound):
		handlers.WriteError(w, http.StatusNotFound, "ItemNotFound", "Item not found in this list.")

	case errors.Is(err, feed.ErrItemDeleted):
		handlers.WriteError(w, http.StatusGone, "ItemDeleted", "This item has been deleted.")

	case errors.Is(err, feed.ErrScopeUnresolved):
		handlers.WriteError(w, http.StatusConflict, "ScopeUnresolved", "This list is still loading.")

	case errors.Is(err, communities.ErrCommunityNotFound):
		handlers.WriteError(w, http.StatusNotFound, "CommunityNotFound", "Community not found.")

	case backend.IsAuthError(err):
		handlers.WriteError(w, http.StatusUnauthorized, "AuthenticationRequired", "Sign in to continue")

	case errors.Is(err, backend.ErrRateLimited):
		handlers.WriteError(w, http.StatusTooManyRequests, "RateLimitExceeded", feed.UserMessage(err))

	case backend.IsAPIError(err):
		var apiErr *backend.APIError
		errors.As(err, &apiErr)
		status := apiErr.StatusCode
		if status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		handlers.WriteError(w, status, "BackendError", apiErr.UserMessage())

	default:
		// Don't leak internal error details to clients
		slog.Error("unexpected error in view handler", "error", err)
		handlers.WriteError(w, http.StatusBadGateway, "BackendUnavailable",
			"The server could not be reached. Please try again.")
	}
}
