package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilocks/server/internal/auth"
)

// EnvDevelopment enables development conveniences such as OTP debug codes.
const EnvDevelopment = "development"

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	JWTIssuer   string
	JWTAudience string
	JWTKey      string

	OTP auth.Settings

	TelegramBotToken   string
	TelegramAPIBaseURL string
	TelegramTimeout    time.Duration

	CORSAllowedOrigins []string
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               "8080", // default port
		Environment:        "production",
		OTP:                auth.DefaultSettings(),
		TelegramAPIBaseURL: "https://api.telegram.org",
		TelegramTimeout:    15 * time.Second,
		CORSAllowedOrigins: []string{"*"},
		AuthRateLimitRPS:   1,
		AuthRateLimitBurst: 10,
	}

	var err error

	// Load DATABASE_URL (required)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if env := strings.TrimSpace(os.Getenv("APP_ENV")); env != "" {
		cfg.Environment = strings.ToLower(env)
	}

	// JWT
	if cfg.JWTIssuer = os.Getenv("JWT_ISSUER"); cfg.JWTIssuer == "" {
		return nil, fmt.Errorf("JWT_ISSUER environment variable is required")
	}
	if cfg.JWTAudience = os.Getenv("JWT_AUDIENCE"); cfg.JWTAudience == "" {
		return nil, fmt.Errorf("JWT_AUDIENCE environment variable is required")
	}
	cfg.JWTKey = os.Getenv("JWT_KEY")
	if len(cfg.JWTKey) < auth.MinJWTKeyLength {
		return nil, fmt.Errorf("JWT_KEY environment variable is required and must be at least %d characters", auth.MinJWTKeyLength)
	}

	// OTP and token lifetimes
	if cfg.OTP.TokenTTL, err = durationEnv("JWT_ACCESS_TTL", cfg.OTP.TokenTTL); err != nil {
		return nil, err
	}
	if cfg.OTP.CodeLength, err = intEnv("OTP_CODE_LENGTH", cfg.OTP.CodeLength); err != nil {
		return nil, err
	}
	if cfg.OTP.CodeTTL, err = durationEnv("OTP_TTL", cfg.OTP.CodeTTL); err != nil {
		return nil, err
	}
	if cfg.OTP.MaxVerifyAttempts, err = intEnv("OTP_MAX_ATTEMPTS", cfg.OTP.MaxVerifyAttempts); err != nil {
		return nil, err
	}
	if err := cfg.OTP.Validate(); err != nil {
		return nil, err
	}

	// Telegram. The token may be empty; sending then reports a configuration failure.
	token, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN")
	if !ok {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required (may be empty)")
	}
	cfg.TelegramBotToken = strings.TrimSpace(token)
	if base := os.Getenv("TELEGRAM_API_BASE_URL"); base != "" {
		cfg.TelegramAPIBaseURL = strings.TrimRight(base, "/")
	}
	if cfg.TelegramTimeout, err = durationEnv("TELEGRAM_TIMEOUT", cfg.TelegramTimeout); err != nil {
		return nil, err
	}

	// HTTP edge
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = splitList(origins)
	}
	if v := os.Getenv("AUTH_RATE_LIMIT_RPS"); v != "" {
		if cfg.AuthRateLimitRPS, err = strconv.ParseFloat(v, 64); err != nil || cfg.AuthRateLimitRPS <= 0 {
			return nil, fmt.Errorf("AUTH_RATE_LIMIT_RPS must be a positive number, got %q", v)
		}
	}
	if cfg.AuthRateLimitBurst, err = intEnv("AUTH_RATE_LIMIT_BURST", cfg.AuthRateLimitBurst); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
