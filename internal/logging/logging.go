package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a JSON logger tagged with the service name and environment.
// Development logs at debug level.
func New(w io.Writer, service, environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service, "environment", environment)
}

// MaskPhone masks a phone number for logging (e.g., 79******67)
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}

	// Keep first 2 and last 2 characters, mask the rest
	prefix := phone[:2]
	suffix := phone[len(phone)-2:]
	return prefix + strings.Repeat("*", len(phone)-4) + suffix
}
