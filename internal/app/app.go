// Package app assembles repositories, workflows and HTTP handlers into a router.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ilocks/server/internal/auth"
	"github.com/ilocks/server/internal/config"
	httphandler "github.com/ilocks/server/internal/http"
	"github.com/ilocks/server/internal/http/handlers"
	"github.com/ilocks/server/internal/middleware"
	"github.com/ilocks/server/internal/qr"
	"github.com/ilocks/server/internal/repo"
	"github.com/ilocks/server/internal/telegram"
	"github.com/ilocks/server/internal/validation"
)

// ServiceName is reported by the health endpoint and attached to every log line.
const ServiceName = "ilocks-api"

// rate limiter entries idle longer than this are swept
const limiterIdleTTL = 10 * time.Minute

// App is the wired HTTP application.
type App struct {
	Handler     http.Handler
	AuthLimiter *middleware.RateLimiter
}

// New wires the application on top of an open, migrated database.
func New(cfg *config.Config, database *sql.DB, logger *slog.Logger) (*App, error) {
	// Repositories
	userRepo := repo.NewUserRepo(database)
	otpStore := repo.NewOtpStore(database)
	qrRepo := repo.NewQrRepo(database)
	bindingRepo := repo.NewTelegramBindingRepo(database)

	// Auth
	if err := cfg.OTP.Validate(); err != nil {
		return nil, fmt.Errorf("otp settings: %w", err)
	}
	jwtService, err := auth.NewJWTService(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTKey, cfg.OTP.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("create jwt service: %w", err)
	}
	manager := auth.NewManager(otpStore, auth.NewSecureCodeGenerator(), auth.SHA256Hasher{}, jwtService, cfg.OTP)

	// QR and Telegram
	sender := telegram.NewSender(cfg.TelegramBotToken, cfg.TelegramAPIBaseURL, cfg.TelegramTimeout, logger)
	qrService := qr.NewService(userRepo, qrRepo, bindingRepo, qr.NewPNGRenderer(), sender)
	binder := telegram.NewBinder(userRepo, bindingRepo)

	validator, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}
	if err := qr.RegisterMessages(validator); err != nil {
		return nil, fmt.Errorf("register qr messages: %w", err)
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.AuthRateLimitRPS), cfg.AuthRateLimitBurst, limiterIdleTTL)

	router := httphandler.NewRouter(httphandler.RouterConfig{
		Auth:           handlers.NewAuthHandler(manager, cfg.IsDevelopment(), cfg.OTP.CodeLength, logger),
		Qr:             handlers.NewQrHandler(qrService, validator, logger),
		Telegram:       handlers.NewTelegramHandler(binder, logger),
		Health:         handlers.NewHealthHandler(ServiceName, cfg.Environment, logger),
		Verifier:       jwtService,
		Users:          userRepo,
		AuthLimiter:    limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	return &App{Handler: router, AuthLimiter: limiter}, nil
}
