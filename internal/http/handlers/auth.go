package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ilocks/server/internal/auth"
	"github.com/ilocks/server/internal/logging"
	"github.com/ilocks/server/internal/validation"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	otp        auth.OtpProvider
	debugCodes bool
	codeLength int
	logger     *slog.Logger
}

// NewAuthHandler creates a new auth handler. debugCodes echoes the plaintext OTP in
// request-otp responses and must only be set in development.
func NewAuthHandler(otp auth.OtpProvider, debugCodes bool, codeLength int, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		otp:        otp,
		debugCodes: debugCodes,
		codeLength: codeLength,
		logger:     logger,
	}
}

// requestOTPRequest is the request body for POST /api/auth/request-otp
type requestOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// requestOTPResponse is the JSON response for request-otp
type requestOTPResponse struct {
	PhoneNumber       string    `json:"phoneNumber"`
	ExpiresAtUtc      time.Time `json:"expiresAtUtc"`
	MaxVerifyAttempts int       `json:"maxVerifyAttempts"`
	DebugCode         string    `json:"debugCode,omitempty"`
}

// confirmOTPRequest is the request body for POST /api/auth/confirm-otp
type confirmOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"code"`
}

// confirmOTPResponse is the JSON response for confirm-otp
type confirmOTPResponse struct {
	AccessToken  string    `json:"accessToken"`
	ExpiresAtUtc time.Time `json:"expiresAtUtc"`
	TokenType    string    `json:"tokenType"`
	UserID       uuid.UUID `json:"userId"`
	PhoneNumber  string    `json:"phoneNumber"`
}

var invalidPhoneErrors = validation.Errors{"phoneNumber": "Phone number must contain 10-15 digits."}

// HandleRequestOTP handles POST /api/auth/request-otp
func (h *AuthHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.otp.RequestCode(r.Context(), req.PhoneNumber, h.debugCodes)
	if err != nil {
		respondInternal(w, r, h.logger, err)
		return
	}

	switch result.Status {
	case auth.RequestInvalidPhone:
		respondValidation(w, h.logger, invalidPhoneErrors)
	case auth.RequestSuccess:
		h.logger.InfoContext(r.Context(), "otp requested", "phone", logging.MaskPhone(result.PhoneNumber))
		respondJSON(w, h.logger, http.StatusOK, requestOTPResponse{
			PhoneNumber:       result.PhoneNumber,
			ExpiresAtUtc:      result.ExpiresAt.UTC(),
			MaxVerifyAttempts: result.MaxVerifyAttempts,
			DebugCode:         result.DebugCode,
		})
	default:
		respondInternal(w, r, h.logger, fmt.Errorf("unexpected request status %s", result.Status))
	}
}

// HandleConfirmOTP handles POST /api/auth/confirm-otp
func (h *AuthHandler) HandleConfirmOTP(w http.ResponseWriter, r *http.Request) {
	var req confirmOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.otp.ConfirmCode(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		respondInternal(w, r, h.logger, err)
		return
	}

	if result.Status != auth.ConfirmSuccess {
		h.logger.InfoContext(r.Context(), "otp confirm rejected",
			"phone", logging.MaskPhone(auth.NormalizePhone(req.PhoneNumber)), "outcome", result.Status.String())
	}

	switch result.Status {
	case auth.ConfirmInvalidPhone:
		respondValidation(w, h.logger, invalidPhoneErrors)
	case auth.ConfirmInvalidCodeFormat:
		respondValidation(w, h.logger, validation.Errors{
			"code": fmt.Sprintf("OTP code must contain exactly %d digits.", h.codeLength),
		})
	case auth.ConfirmOtpNotFound:
		respondWithError(w, h.logger, http.StatusBadRequest, "otp_not_found",
			"OTP code is missing or already consumed. Request a new code.")
	case auth.ConfirmOtpExpired:
		respondWithError(w, h.logger, http.StatusBadRequest, "otp_expired",
			"OTP code has expired. Request a new code.")
	case auth.ConfirmOtpBlocked:
		respondWithError(w, h.logger, http.StatusTooManyRequests, "otp_blocked",
			"OTP is blocked. Request a new code.")
	case auth.ConfirmInvalidOtp:
		remaining := result.RemainingAttempts
		message := "Invalid OTP code."
		if remaining == 0 {
			message = "OTP blocked. Request a new code."
		}
		respondJSON(w, h.logger, http.StatusBadRequest, errorResponse{
			ErrorCode:         "invalid_otp",
			Message:           message,
			RemainingAttempts: &remaining,
		})
	case auth.ConfirmSuccess:
		h.logger.InfoContext(r.Context(), "otp confirmed", "user_id", result.UserID)
		respondJSON(w, h.logger, http.StatusOK, confirmOTPResponse{
			AccessToken:  result.AccessToken.Token,
			ExpiresAtUtc: result.AccessToken.ExpiresAt.UTC(),
			TokenType:    "Bearer",
			UserID:       result.UserID,
			PhoneNumber:  result.PhoneNumber,
		})
	default:
		respondInternal(w, r, h.logger, fmt.Errorf("unexpected confirm status %s", result.Status))
	}
}
