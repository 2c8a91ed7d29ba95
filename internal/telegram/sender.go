package telegram

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sender posts photos through the Telegram Bot API sendPhoto method.
type Sender struct {
	token   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewSender creates a Bot API sender. An empty token is accepted; every send then
// fails with KindConfiguration.
func NewSender(token, baseURL string, timeout time.Duration, logger *slog.Logger) *Sender {
	return &Sender{
		token:   strings.TrimSpace(token),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendPhoto uploads the base64 PNG to chatID with the given caption.
func (s *Sender) SendPhoto(ctx context.Context, chatID int64, imageBase64, caption string) error {
	if s.token == "" {
		return &Error{Kind: KindConfiguration, Msg: "Telegram bot token is not configured."}
	}

	image, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return &Error{Kind: KindInvalidPayload, Msg: "QR payload is not valid Base64.", Err: err}
	}

	body, contentType, err := photoForm(chatID, image, caption)
	if err != nil {
		return fmt.Errorf("build sendPhoto form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/bot"+s.token+"/sendPhoto", body)
	if err != nil {
		return fmt.Errorf("build sendPhoto request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.transportError(ctx, chatID, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	var decodeErr error
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		decodeErr = fmt.Errorf("read sendPhoto response: %w", err)
	} else if err := json.Unmarshal(raw, &apiResp); err != nil {
		decodeErr = fmt.Errorf("decode sendPhoto response: %w", err)
	}

	if resp.StatusCode == http.StatusOK && apiResp.OK {
		return nil
	}

	code := apiResp.ErrorCode
	if code == 0 {
		code = resp.StatusCode
	}
	apiErr := fmt.Errorf("sendPhoto returned %d: %s", code, apiResp.Description)
	if decodeErr != nil {
		apiErr = errors.Join(apiErr, decodeErr)
	}

	switch code {
	case http.StatusBadRequest:
		s.logger.Warn("telegram rejected request", "chat_id", chatID, "error", apiErr)
		return &Error{Kind: KindInvalidChat, Msg: "Invalid Telegram chat or bot has no access to it.", Err: apiErr}
	case http.StatusForbidden:
		s.logger.Warn("telegram denied access", "chat_id", chatID, "error", apiErr)
		return &Error{Kind: KindForbidden, Msg: "Bot is blocked or has no permission to send messages.", Err: apiErr}
	default:
		s.logger.Error("telegram api error", "chat_id", chatID, "error", apiErr)
		return &Error{Kind: KindRemoteAPI, Msg: "Telegram API error occurred.", Err: apiErr}
	}
}

func (s *Sender) transportError(ctx context.Context, chatID int64, err error) error {
	// the caller went away; this is not a Telegram failure
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		s.logger.Warn("telegram send timed out", "chat_id", chatID, "error", err)
		return &Error{Kind: KindTimeout, Msg: "Telegram request timed out.", Err: err}
	}

	s.logger.Warn("network error while sending to telegram", "chat_id", chatID, "error", err)
	return &Error{Kind: KindNetwork, Msg: "Network error while contacting Telegram.", Err: err}
}

func photoForm(chatID int64, image []byte, caption string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return nil, "", err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("photo", "qr-code.png")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}
