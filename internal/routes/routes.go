package routes

import (
	"github.com/dreyes/amparo/internal/auth"
	"github.com/dreyes/amparo/internal/handlers"
	"github.com/dreyes/amparo/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	securityHandler *handlers.SecurityHandler,
	activityHandler *handlers.ActivityHandler,
	passwordHandler *handlers.PasswordHandler,
	verifier *auth.TokenVerifier,
) {
	// Rate limiting config for the endpoints an attacker can hammer
	rateLimitConfig := middleware.DefaultSecurityRateLimit()

	// Public routes - no authentication required. Attempt recording is
	// called by the login path itself, before any session exists, and
	// token redemption is proven by the token.
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/security/attempts", securityHandler.RecordAttempt)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/security/reset-tokens/redeem", passwordHandler.RedeemResetToken)
	router.Post("/security/password/validate", passwordHandler.ValidatePassword)
	router.Get("/security/lockouts/{username}", securityHandler.GetLockStatus)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))

		// Any authenticated user (ownership enforced in the handler)
		r.Get("/users/{id}/activity", activityHandler.GetUserActivity)
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/users/{id}/password", passwordHandler.ChangePassword)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole("admin"))
			r.Delete("/security/lockouts/{username}", securityHandler.Unlock)
			r.Get("/security/stats", securityHandler.Stats)
			r.Get("/security/suspicious", securityHandler.Suspicious)
			r.Post("/security/reset-tokens", passwordHandler.IssueResetToken)
		})
	})
}
