package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/we-be/vibe-chuck/internal/api/middleware"
	"github.com/we-be/vibe-chuck/internal/web"
)

// RegisterWebRoutes registers the site pages and the login flow.
// /health and /static stay outside the session and rate limit middlewares.
func RegisterWebRoutes(r chi.Router, handlers *web.Handlers, sessions *middleware.SessionMiddleware, limiter *middleware.RateLimiter) {
	r.Get("/health", web.HealthHandler)

	// Static files (stylesheet)
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		web.ProjectStaticFileServer("static").ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(sessions.LoadSession)
		r.Use(limiter.Middleware)

		r.Get("/", handlers.LandingHandler)
		r.Get("/events", handlers.EventsHandler)
		r.Get("/events/{eventId}", handlers.EventPostsHandler)
		r.Get("/users/{userId}/posts", handlers.UserPostsHandler)

		r.Get("/users/{userId}/posts/{postId}/edit", handlers.EditPostPageHandler)
		r.Post("/users/{userId}/posts/{postId}/edit", handlers.EditPostSubmitHandler)

		r.Get("/login", handlers.LoginPageHandler)
		r.Post("/login", handlers.LoginSubmitHandler)
		r.Post("/logout", handlers.LogoutHandler)
	})
}
