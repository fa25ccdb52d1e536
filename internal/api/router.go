package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rvegajr/blessbox-server/internal/api/handlers"
	"github.com/rvegajr/blessbox-server/internal/api/middleware"
	"github.com/rvegajr/blessbox-server/internal/auth"
	"github.com/rvegajr/blessbox-server/internal/checkin"
	"github.com/rvegajr/blessbox-server/internal/onboarding"
	"github.com/rvegajr/blessbox-server/internal/registration"
	"github.com/rvegajr/blessbox-server/pkg/crypto"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Encryptor      *crypto.Encryptor
	AsynqClient    *asynq.Client
	Sessions       onboarding.SessionStore
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or allow all in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize services
	regService := registration.NewService(cfg.DB, cfg.Encryptor, cfg.AsynqClient, cfg.Logger)
	checkinService := checkin.NewService(cfg.DB, cfg.Logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	registrationHandler := handlers.NewRegistrationHandler(regService)
	checkinHandler := handlers.NewCheckInHandler(checkinService, regService)
	qrCodeSetHandler := handlers.NewQRCodeSetHandler(cfg.DB, cfg.AsynqClient)
	organizationHandler := handlers.NewOrganizationHandler(cfg.DB, regService)
	onboardingHandler := handlers.NewOnboardingHandler(cfg.Sessions)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// Public registration submission (attendees are not authenticated)
		r.Post("/registrations", registrationHandler.Submit)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			// User endpoints
			r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
				userID := middleware.GetUserID(r.Context())
				user, err := cfg.AuthService.GetUserByID(r.Context(), userID)
				if err != nil {
					http.Error(w, "User not found", http.StatusNotFound)
					return
				}
				writeJSON(w, http.StatusOK, user)
			})

			// Registrations endpoints
			r.Route("/registrations", func(r chi.Router) {
				r.Get("/", registrationHandler.List)
				r.Put("/{id}/delivery", registrationHandler.UpdateDelivery)
			})

			// Check-in endpoints
			r.Route("/checkin", func(r chi.Router) {
				r.Post("/", checkinHandler.Process)
				r.Post("/undo", checkinHandler.Undo)
				r.Get("/{token}", checkinHandler.Lookup)
			})

			// QR code set endpoints
			r.Route("/qr-code-sets", func(r chi.Router) {
				r.Get("/", qrCodeSetHandler.List)
				r.Post("/", qrCodeSetHandler.Create)
				r.Get("/{id}", qrCodeSetHandler.Get)
				r.Put("/{id}", qrCodeSetHandler.Update)
				r.Post("/{id}/deactivate", qrCodeSetHandler.Deactivate)
				r.Post("/{id}/qr-codes", qrCodeSetHandler.AddEntry)
				r.Post("/{id}/export", qrCodeSetHandler.Export)
			})

			// Organization endpoints
			r.Route("/organization", func(r chi.Router) {
				r.Get("/", organizationHandler.Get)
				r.Put("/", organizationHandler.Update)
				r.Get("/usage", organizationHandler.Usage)
			})

			// Onboarding wizard endpoints
			r.Route("/onboarding/session", func(r chi.Router) {
				r.Get("/", onboardingHandler.GetSession)
				r.Put("/", onboardingHandler.PutSession)
				r.Delete("/", onboardingHandler.DeleteSession)
			})
		})
	})

	return &Router{r}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
