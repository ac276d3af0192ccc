package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"Skillnet/internal/api/middleware"
	"Skillnet/internal/core/sessions"
	"Skillnet/internal/web"
)

// WebConfig configures the page routes
type WebConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	PreviewLimit   int
}

// RegisterWebRoutes registers the server-rendered pages and the live socket.
// Sign-in pages are public; everything else requires a session.
func RegisterWebRoutes(r chi.Router, manager *sessions.Manager, sessionMiddleware *middleware.SessionMiddleware, cfg WebConfig) error {
	templates, err := web.NewTemplates()
	if err != nil {
		return err
	}

	handlers := web.NewHandlers(templates, manager, cfg.PreviewLimit, cfg.AllowedOrigins, cfg.Logger)

	r.Get("/", handlers.RootHandler)
	r.Get("/login", handlers.LoginPageHandler)
	r.Post("/login", handlers.LoginSubmitHandler)
	r.Post("/logout", handlers.LogoutHandler)

	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware.RequireSession)

		r.Get("/feed", handlers.FeedPageHandler)
		r.Get("/communities/{name}", handlers.CommunityPageHandler)
		r.Get("/posts/{id}/comments", handlers.CommentsPageHandler)
		r.Get("/projects", handlers.ProjectsPageHandler)
		r.Get("/ws", handlers.LiveHandler)
	})
	return nil
}
