package routes

import (
	"log/slog"

	"Skillnet/internal/api/handlers/notification"
	"Skillnet/internal/api/handlers/view"
	"Skillnet/internal/api/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterViewRoutes registers the JSON endpoints the pages use to drive
// their mounted views. Every route requires a session.
func RegisterViewRoutes(r chi.Router, sessionMiddleware *middleware.SessionMiddleware, logger *slog.Logger) {
	h := view.NewHandler(logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(sessionMiddleware.RequireSession)

		// Mounting returns the first page, or the already mounted view
		r.Get("/feed", h.HandleMountPosts)
		r.Get("/communities/{name}", h.HandleMountCommunity)
		r.Get("/posts/{id}/comments", h.HandleMountComments)
		r.Get("/projects", h.HandleMountProjects)

		r.Route("/views/{key}", func(r chi.Router) {
			r.Get("/", h.HandleSnapshot)
			r.Delete("/", h.HandleUnmount)
			r.Post("/more", h.HandleLoadMore)
			r.Post("/retry", h.HandleRetry)

			r.Post("/items", h.HandleCreate)
			r.Patch("/items/{id}", h.HandleUpdate)
			r.Delete("/items/{id}", h.HandleDelete)
			r.Post("/items/{id}/like", h.HandleToggleLike)
		})

		r.Get("/notifications", notification.HandleInbox)
		r.Post("/notifications/seen", notification.HandleMarkSeen)
	})
}
