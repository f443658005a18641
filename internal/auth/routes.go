package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is an interface for HTTP middleware
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers all admin authentication routes with the Chi router.
// Public routes: /login, /verify, /logout
// Protected routes: /change-code
func RegisterRoutes(r chi.Router, handler *Handler, sessionMiddleware Middleware) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", handler.Login)
		r.Post("/verify", handler.Verify)
		r.Post("/logout", handler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware)
			r.Post("/change-code", handler.ChangeCode)
		})
	})
}
