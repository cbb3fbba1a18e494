package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JoethonDev/stockwatcher/internal/api/alerts"
	"github.com/JoethonDev/stockwatcher/internal/api/auth"
	"github.com/JoethonDev/stockwatcher/internal/api/companies"
	"github.com/JoethonDev/stockwatcher/internal/api/middleware"
	"github.com/JoethonDev/stockwatcher/internal/api/users"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Create JWT service
	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)

	// Create lockout tracker
	lockoutTracker := auth.NewLockoutTracker(s.config.LockoutThreshold, s.config.LockoutDuration)

	// Create rate limiters
	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP, time.Minute)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser, time.Minute)

	authHandler := auth.NewHandler(
		s.storage,
		jwtService,
		lockoutTracker,
		s.config.RefreshTokenTTL,
		s.config.AllowSignup,
	)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, &Error{
			Code:    ErrCodeBadRequest,
			Message: "method not allowed",
			Status:  http.StatusMethodNotAllowed,
		})
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (mostly public)
		r.Route("/auth", func(r chi.Router) {
			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ipLimiter))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(jwtService))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Company routes (public, read-only)
		r.Route("/companies", func(r chi.Router) {
			companyHandler := companies.NewHandler(s.storage)
			r.Get("/", companyHandler.List)
			r.Get("/{symbol}", companyHandler.Get)
		})

		// Alert routes (protected, always owner-scoped)
		r.Route("/alerts", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			alertHandler := alerts.NewHandler(s.storage)

			r.Get("/", alertHandler.List)
			r.Post("/", alertHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", alertHandler.Get)
				r.Delete("/", alertHandler.Delete)
				r.Post("/reactivate", alertHandler.Reactivate)
				r.Get("/triggers", alertHandler.ListTriggers)
			})
		})

		// Trigger history across all of the caller's alerts
		r.Route("/triggers", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			alertHandler := alerts.NewHandler(s.storage)
			r.Get("/", alertHandler.History)
		})

		// User routes (protected)
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			userHandler := users.NewHandler(s.storage, authHandler.Tokens())

			// Self-service
			r.Get("/me", userHandler.Me)
			r.Put("/me/password", userHandler.ChangePassword)

			// Account management
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", userHandler.List)
			})
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.RequireAdminOrSelf)
				r.Get("/", userHandler.Get)
			})
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
