package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ilocks/server/internal/http/handlers"
	"github.com/ilocks/server/internal/middleware"
)

// RouterConfig carries everything the router wires together
type RouterConfig struct {
	Auth     *handlers.AuthHandler
	Qr       *handlers.QrHandler
	Telegram *handlers.TelegramHandler
	Health   *handlers.HealthHandler

	Verifier middleware.TokenVerifier
	Users    middleware.UserLookup

	// AuthLimiter throttles the public OTP endpoints per client IP. Nil disables it.
	AuthLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", cfg.Health.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(middleware.RateLimitMiddleware(cfg.AuthLimiter, middleware.GetIPKey))
			}
			r.Post("/request-otp", cfg.Auth.HandleRequestOTP)
			r.Post("/confirm-otp", cfg.Auth.HandleConfirmOTP)
		})

		// Protected routes (require valid JWT)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.Verifier, cfg.Users, cfg.Logger))

			r.Route("/qr", func(r chi.Router) {
				r.Post("/", cfg.Qr.HandleCreate)
				r.Get("/", cfg.Qr.HandleHistory)
				r.Get("/{id}", cfg.Qr.HandleGet)
				r.Post("/{id}/send-telegram", cfg.Qr.HandleSendTelegram)
			})
			r.Post("/telegram/bind-chat", cfg.Telegram.HandleBindChat)
		})
	})

	return r
}
