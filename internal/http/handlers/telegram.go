package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ilocks/server/internal/logging"
	"github.com/ilocks/server/internal/middleware"
	"github.com/ilocks/server/internal/telegram"
	"github.com/ilocks/server/internal/validation"
)

// ChatBinder links an authenticated user to a Telegram chat
type ChatBinder interface {
	Bind(ctx context.Context, userID uuid.UUID, chatID int64) (telegram.BindResult, error)
}

// TelegramHandler handles Telegram binding endpoints
type TelegramHandler struct {
	binder ChatBinder
	logger *slog.Logger
}

// NewTelegramHandler creates a new Telegram handler
func NewTelegramHandler(binder ChatBinder, logger *slog.Logger) *TelegramHandler {
	return &TelegramHandler{binder: binder, logger: logger}
}

type bindChatRequest struct {
	ChatID int64 `json:"chatId"`
}

type bindChatResponse struct {
	UserID     uuid.UUID `json:"userId"`
	ChatID     int64     `json:"chatId"`
	BoundAtUtc time.Time `json:"boundAtUtc"`
}

// HandleBindChat handles POST /api/telegram/bind-chat
func (h *TelegramHandler) HandleBindChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, h.logger, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req bindChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.binder.Bind(r.Context(), userID, req.ChatID)
	if err != nil {
		respondInternal(w, r, h.logger, err)
		return
	}

	switch result.Status {
	case telegram.BindInvalidChat:
		respondValidation(w, h.logger, validation.Errors{"chatId": "chatId must be a positive Telegram chat id."})
	case telegram.BindUnauthorizedUser:
		respondWithError(w, h.logger, http.StatusUnauthorized, "unauthorized", "user not found")
	case telegram.BindChatAlreadyBound:
		respondWithError(w, h.logger, http.StatusConflict, "telegram_chat_already_bound",
			"This Telegram chat is already bound to another user.")
	case telegram.BindSuccess:
		attrs := []any{"user_id", userID, "chat_id", result.Binding.ChatID}
		if user, ok := middleware.GetUser(r.Context()); ok {
			attrs = append(attrs, "phone", logging.MaskPhone(user.PhoneNumber))
		}
		h.logger.InfoContext(r.Context(), "telegram chat bound", attrs...)
		respondJSON(w, h.logger, http.StatusOK, bindChatResponse{
			UserID:     result.Binding.UserID,
			ChatID:     result.Binding.ChatID,
			BoundAtUtc: result.Binding.CreatedAt.UTC(),
		})
	default:
		respondInternal(w, r, h.logger, fmt.Errorf("unexpected bind status %d", result.Status))
	}
}
