package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertdesk/internal/api/alerts"
	"github.com/good-yellow-bee/alertdesk/internal/api/auth"
	"github.com/good-yellow-bee/alertdesk/internal/api/middleware"
	"github.com/good-yellow-bee/alertdesk/internal/api/notifications"
	"github.com/good-yellow-bee/alertdesk/internal/api/review"
	"github.com/good-yellow-bee/alertdesk/internal/api/users"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Create JWT service
	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)

	// Create lockout tracker
	lockoutTracker := auth.NewLockoutTracker(s.config.LockoutThreshold, s.config.LockoutDuration)

	// Create rate limiters
	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (mostly public)
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(
				s.storage,
				jwtService,
				lockoutTracker,
				s.config.RefreshTokenTTL,
			)

			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ipLimiter))
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(jwtService))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// User routes (protected)
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			userHandler := users.NewHandler(s.storage)

			// Current user endpoints (any authenticated user)
			r.Get("/me", userHandler.GetCurrentUser)
			r.Put("/me/password", userHandler.ChangePassword)

			// Admin-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
			})

			// Per-user endpoints (admin or self)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.RequireAdminOrSelf)
				r.Get("/", userHandler.GetByID)
				r.Put("/", userHandler.Update)

				// Delete is admin-only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Delete("/", userHandler.Delete)
				})
			})
		})

		// Alert search and reports (any authenticated user)
		r.Route("/alerts", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			alertHandler := alerts.NewHandler(s.reader)

			r.Get("/", alertHandler.Search)
			r.Get("/stats/weekly", alertHandler.WeeklyStats)
			r.Get("/stats/monthly", alertHandler.MonthlyStats)
		})

		// Managed alert review workflow
		r.Route("/review/alerts", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			reviewHandler := review.NewHandler(s.storage)

			r.Get("/", reviewHandler.List)
			r.Get("/{id}", reviewHandler.GetByID)
			r.Get("/{id}/notes", reviewHandler.ListNotes)

			// Mutations require write access
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCanWrite)
				r.Post("/", reviewHandler.Register)
				r.Put("/{id}/state", reviewHandler.UpdateState)
				r.Post("/{id}/notes", reviewHandler.CreateNote)
				r.Put("/{id}/notes/{noteID}", reviewHandler.UpdateNote)
			})
		})

		// Notification settings, recipients, manual dispatch, history
		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			notificationHandler := notifications.NewHandler(s.storage, s.dispatcher)

			// SMTP settings are admin-only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/config", notificationHandler.GetConfig)
				r.Put("/config", notificationHandler.PutConfig)
			})

			r.Get("/emails", notificationHandler.ListEmails)
			r.Get("/history", notificationHandler.ListHistory)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCanWrite)
				r.Post("/emails", notificationHandler.CreateEmail)
				r.Put("/emails/{id}", notificationHandler.UpdateEmail)
				r.Delete("/emails/{id}", notificationHandler.DeleteEmail)
				r.Post("/send", notificationHandler.Send)
			})
		})
	})

	// Health check (public, no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.storage.DB().PingContext(r.Context()); err != nil {
			JSONError(w, &Error{
				Status:  http.StatusServiceUnavailable,
				Code:    "UNAVAILABLE",
				Message: "database unreachable",
			})
			return
		}
		OK(w, map[string]string{"status": "ok"})
	})

	return r
}
