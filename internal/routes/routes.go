package routes

import (
	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/handlers"
	"github.com/BradenHooton/adminauth/internal/middleware"
	"github.com/BradenHooton/adminauth/internal/services"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Deps are the collaborators the route table needs
type Deps struct {
	AuthHandler   *handlers.AuthHandler
	HealthHandler *handlers.HealthHandler
	Sessions      auth.SessionAuthenticator
	TokenReporter auth.InvalidTokenReporter
	LimitReporter middleware.RateLimitReporter
	Limiter       middleware.PolicyChecker
	IPConfig      *pkghttp.IPConfig
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Deps) {
	router.Get("/health", deps.HealthHandler.Health)

	// Public routes - coarse per-IP flood guard in front of the login policy
	router.With(middleware.RateLimitByIP(middleware.DefaultPublicRateLimit(deps.IPConfig, deps.LimitReporter))).
		Post("/auth/login", deps.AuthHandler.Login)

	// Session routes - valid admin session required
	router.Group(func(r chi.Router) {
		r.Use(auth.SessionMiddleware(deps.Sessions, deps.TokenReporter, deps.IPConfig))
		r.Use(auth.RequireRole("admin"))
		r.Use(middleware.RateLimitByAccount(deps.Limiter, services.PolicyAPI, deps.IPConfig, deps.LimitReporter))

		r.Post("/auth/logout", deps.AuthHandler.Logout)
		r.Get("/auth/session", deps.AuthHandler.Session)
		r.Post("/auth/password", deps.AuthHandler.ChangePassword)
		r.Get("/auth/events", deps.AuthHandler.Events)
	})
}
