package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ilocks/server/internal/middleware"
	"github.com/ilocks/server/internal/model"
	"github.com/ilocks/server/internal/qr"
	"github.com/ilocks/server/internal/validation"
)

// QrWorkflow is the QR use-case surface the handlers drive
type QrWorkflow interface {
	Create(ctx context.Context, userID uuid.UUID, cmd qr.CreateCommand) (qr.CreateResult, error)
	History(ctx context.Context, userID uuid.UUID, skip, take *int) (qr.History, error)
	Get(ctx context.Context, userID, id uuid.UUID) (qr.GetResult, error)
	SendToTelegram(ctx context.Context, userID, id uuid.UUID) (qr.SendResult, error)
}

// QrHandler handles QR code endpoints
type QrHandler struct {
	qr        QrWorkflow
	validator *validation.Validator
	logger    *slog.Logger
}

// NewQrHandler creates a new QR handler
func NewQrHandler(workflow QrWorkflow, validator *validation.Validator, logger *slog.Logger) *QrHandler {
	return &QrHandler{
		qr:        workflow,
		validator: validator,
		logger:    logger,
	}
}

// qrCreateResponse is returned by POST /api/qr; the door password is only shown by details
type qrCreateResponse struct {
	ID            uuid.UUID `json:"id"`
	CheckInAt     time.Time `json:"checkInAt"`
	CheckOutAt    time.Time `json:"checkOutAt"`
	GuestsCount   int       `json:"guestsCount"`
	DataType      string    `json:"dataType"`
	CreatedAt     time.Time `json:"createdAt"`
	PayloadJSON   string    `json:"payloadJson"`
	QrImageBase64 string    `json:"qrImageBase64"`
}

// qrDetailsResponse is a full QR record
type qrDetailsResponse struct {
	ID            uuid.UUID `json:"id"`
	CheckInAt     time.Time `json:"checkInAt"`
	CheckOutAt    time.Time `json:"checkOutAt"`
	GuestsCount   int       `json:"guestsCount"`
	DoorPassword  string    `json:"doorPassword"`
	DataType      string    `json:"dataType"`
	CreatedAt     time.Time `json:"createdAt"`
	PayloadJSON   string    `json:"payloadJson"`
	QrImageBase64 string    `json:"qrImageBase64"`
}

// qrSummaryResponse is a history entry
type qrSummaryResponse struct {
	ID           uuid.UUID `json:"id"`
	CheckInAt    time.Time `json:"checkInAt"`
	CheckOutAt   time.Time `json:"checkOutAt"`
	GuestsCount  int       `json:"guestsCount"`
	DataType     string    `json:"dataType"`
	CreatedAt    time.Time `json:"createdAt"`
}

type qrHistoryResponse struct {
	Items []qrSummaryResponse `json:"items"`
	Total int                 `json:"total"`
	Skip  int                 `json:"skip"`
	Take  int                 `json:"take"`
}

type qrSendResponse struct {
	QrID      uuid.UUID `json:"qrId"`
	ChatID    int64     `json:"chatId"`
	SentAtUtc time.Time `json:"sentAtUtc"`
	Status    string    `json:"status"`
}

func toCreateResponse(r model.QrCodeRecord) qrCreateResponse {
	return qrCreateResponse{
		ID:            r.ID,
		CheckInAt:     r.CheckInAt,
		CheckOutAt:    r.CheckOutAt,
		GuestsCount:   r.GuestsCount,
		DataType:      r.DataType,
		CreatedAt:     r.CreatedAt.UTC(),
		PayloadJSON:   r.PayloadJSON,
		QrImageBase64: r.QrImageBase64,
	}
}

func toDetailsResponse(r model.QrCodeRecord) qrDetailsResponse {
	return qrDetailsResponse{
		ID:            r.ID,
		CheckInAt:     r.CheckInAt,
		CheckOutAt:    r.CheckOutAt,
		GuestsCount:   r.GuestsCount,
		DoorPassword:  r.DoorPassword,
		DataType:      r.DataType,
		CreatedAt:     r.CreatedAt.UTC(),
		PayloadJSON:   r.PayloadJSON,
		QrImageBase64: r.QrImageBase64,
	}
}

// HandleCreate handles POST /api/qr
func (h *QrHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, h.logger, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var cmd qr.CreateCommand
	if err := decodeJSON(r, &cmd); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	cmd.Normalize()

	if err := h.validator.Validate(cmd); err != nil {
		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			respondValidation(w, h.logger, fieldErrs)
			return
		}
		respondInternal(w, r, h.logger, err)
		return
	}

	result, err := h.qr.Create(r.Context(), userID, cmd)
	if err != nil {
		respondInternal(w, r, h.logger, err)
		return
	}

	switch result.Status {
	case qr.CreateUnauthorizedUser:
		respondWithError(w, h.logger, http.StatusUnauthorized, "unauthorized", "user not found")
	case qr.CreateSuccess:
		h.logger.InfoContext(r.Context(), "qr code created", "user_id", userID, "qr_id", result.Record.ID)
		respondJSON(w, h.logger, http.StatusOK, toCreateResponse(result.Record))
	default:
		respondInternal(w, r, h.logger, fmt.Errorf("unexpected create status %d", result.Status))
	}
}

// HandleHistory handles GET /api/qr
func (h *QrHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, h.logger, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	errs := validation.Errors{}
	skip := queryInt(r, "skip", errs)
	take := queryInt(r, "take", errs)
	if len(errs) > 0 {
		respondValidation(w, h.logger, errs)
		return
	}

	history, err := h.qr.History(r.Context(), userID, skip, take)
	if err != nil {
		respondInternal(w, r, h.logger, err)
		return
	}

	items := make([]qrSummaryResponse, 0, len(history.Items))
	for _, rec := range history.Items {
		items = append(items, qrSummaryResponse{
			ID:           rec.ID,
			CheckInAt:    rec.CheckInAt,
			CheckOutAt:   rec.CheckOutAt,
			GuestsCount:  rec.GuestsCount,
			DataType:     rec.DataType,
			CreatedAt:    rec.CreatedAt.UTC(),
		})
	}

	respondJSON(w, h.logger, http.StatusOK, qrHistoryResponse{
		Items: items,
		Total: history.Total,
		Skip:  history.Skip,
		Take:  history.Take,
	})
}

// HandleGet handles GET /api/qr/{id}
func (h *QrHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, h.logger, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, h.logger, http.StatusNotFound, "qr_not_found", "QR code not found.")
		return
	}

	result, err := h.qr.Get(r.Context(), userID, id)
	if err != nil {
		respondInternal(w, r, h.logger, err)
		return
	}
	if result.Status != qr.GetSuccess {
		respondWithError(w, h.logger, http.StatusNotFound, "qr_not_found", "QR code not found.")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toDetailsResponse(result.Record))
}

// HandleSendTelegram handles POST /api/qr/{id}/send-telegram
func (h *QrHandler) HandleSendTelegram(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, h.logger, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, h.logger, http.StatusNotFound, "qr_not_found", "QR code not found.")
		return
	}

	result, err := h.qr.SendToTelegram(r.Context(), userID, id)
	if err != nil {
		respondInternal(w, r, h.logger, err)
		return
	}

	if result.Status == qr.SendSuccess {
		h.logger.InfoContext(r.Context(), "qr sent to telegram", "user_id", userID, "qr_id", result.QrID)
		respondJSON(w, h.logger, http.StatusOK, qrSendResponse{
			QrID:      result.QrID,
			ChatID:    result.ChatID,
			SentAtUtc: result.SentAt.UTC(),
			Status:    result.Delivery,
		})
		return
	}

	status, code, message := sendFailure(result)
	if status >= http.StatusInternalServerError {
		h.logger.WarnContext(r.Context(), "telegram delivery failed", "user_id", userID, "qr_id", id, "error_code", code, "detail", result.Message)
	}
	respondWithError(w, h.logger, status, code, message)
}

func sendFailure(result qr.SendResult) (int, string, string) {
	switch result.Status {
	case qr.SendQrNotFound:
		return http.StatusNotFound, "qr_not_found", "QR code not found."
	case qr.SendTelegramNotBound:
		return http.StatusBadRequest, "telegram_not_bound", "Bind a Telegram chat first."
	case qr.SendTelegramConfiguration:
		return http.StatusServiceUnavailable, "telegram_not_configured", messageOr(result.Message, "Telegram delivery is not configured.")
	case qr.SendTelegramInvalidChat:
		return http.StatusBadRequest, "telegram_invalid_chat", messageOr(result.Message, "Telegram rejected the chat.")
	case qr.SendTelegramForbidden:
		return http.StatusForbidden, "telegram_forbidden", messageOr(result.Message, "The bot cannot message this chat.")
	case qr.SendTelegramTimeout:
		return http.StatusGatewayTimeout, "telegram_timeout", messageOr(result.Message, "Telegram did not respond in time.")
	case qr.SendTelegramNetwork:
		return http.StatusServiceUnavailable, "telegram_unavailable", messageOr(result.Message, "Telegram is unreachable.")
	case qr.SendTelegramInvalidPayload:
		return http.StatusInternalServerError, "telegram_invalid_payload", "Stored QR image is invalid."
	default:
		return http.StatusBadGateway, "telegram_error", messageOr(result.Message, "Telegram returned an error.")
	}
}

// messageOr prefers the sender's explanation over the generic fallback
func messageOr(detail, fallback string) string {
	if detail == "" {
		return fallback
	}
	return detail
}

// queryInt parses an optional integer query parameter, recording a field error on bad input
func queryInt(r *http.Request, name string, errs validation.Errors) *int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		errs[name] = name + " must be an integer"
		return nil
	}
	return &v
}
