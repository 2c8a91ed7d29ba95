package qr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilocks/server/internal/model"
	"github.com/ilocks/server/internal/repo"
	"github.com/ilocks/server/internal/telegram"
)

const (
	// DefaultDataType is used when a create command carries a blank data type.
	DefaultDataType = "booking_access"

	defaultTake = 20
	maxTake     = 100

	deliveryStatusSent = "sent"
)

// UserLookup finds the owner of a request.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

// BindingLookup finds the Telegram chat a user is bound to.
type BindingLookup interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (model.TelegramBinding, error)
}

// Renderer turns a payload into a base64 PNG QR image.
type Renderer interface {
	RenderBase64(payload string) (string, error)
}

// PhotoSender delivers an image to a Telegram chat. Failures are *telegram.Error values.
type PhotoSender interface {
	SendPhoto(ctx context.Context, chatID int64, imageBase64, caption string) error
}

// CreateCommand describes a booking to issue a QR code for.
type CreateCommand struct {
	CheckInAt    time.Time `json:"checkInAt" validate:"required,ltfield=CheckOutAt"`
	CheckOutAt   time.Time `json:"checkOutAt" validate:"required,gt"`
	GuestsCount  int       `json:"guestsCount" validate:"min=1,max=50"`
	DoorPassword string    `json:"doorPassword" validate:"notblank,max=128"`
	DataType     string    `json:"dataType" validate:"required,max=64"`
}

// Normalize trims the data type. The door password is kept as sent so the
// QR payload carries it verbatim; only the stored column is trimmed.
func (c *CreateCommand) Normalize() {
	c.DataType = strings.TrimSpace(c.DataType)
}

type CreateStatus int

const (
	CreateUnauthorizedUser CreateStatus = iota + 1
	CreateSuccess
)

type CreateResult struct {
	Status CreateStatus
	Record model.QrCodeRecord
}

// History is one page of a user's QR records, newest first.
type History struct {
	Items []model.QrCodeRecord
	Total int
	Skip  int
	Take  int
}

type GetStatus int

const (
	GetNotFound GetStatus = iota + 1
	GetSuccess
)

type GetResult struct {
	Status GetStatus
	Record model.QrCodeRecord
}

type SendStatus int

const (
	SendQrNotFound SendStatus = iota + 1
	SendTelegramNotBound
	SendTelegramConfiguration
	SendTelegramInvalidChat
	SendTelegramForbidden
	SendTelegramTimeout
	SendTelegramNetwork
	SendTelegramInvalidPayload
	SendTelegramRemoteAPI
	SendSuccess
)

type SendResult struct {
	Status SendStatus
	// Message explains a Telegram failure.
	Message string
	QrID    uuid.UUID
	ChatID  int64
	SentAt  time.Time
	// Delivery is "sent" on success.
	Delivery string
}

// Service issues, lists and delivers QR access codes.
type Service struct {
	users    UserLookup
	records  repo.QrRepo
	bindings BindingLookup
	renderer Renderer
	sender   PhotoSender
	now      func() time.Time
}

// NewService creates a new QR service
func NewService(users UserLookup, records repo.QrRepo, bindings BindingLookup, renderer Renderer, sender PhotoSender) *Service {
	return &Service{
		users:    users,
		records:  records,
		bindings: bindings,
		renderer: renderer,
		sender:   sender,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type payload struct {
	CheckInAt    time.Time `json:"checkInAt"`
	CheckOutAt   time.Time `json:"checkOutAt"`
	GuestsCount  int       `json:"guestsCount"`
	DoorPassword string    `json:"doorPassword"`
	UserID       uuid.UUID `json:"userId"`
	PhoneNumber  string    `json:"phoneNumber"`
	DataType     string    `json:"dataType"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Create renders and stores a QR code for the user's booking.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, cmd CreateCommand) (CreateResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CreateResult{Status: CreateUnauthorizedUser}, nil
	}
	if err != nil {
		return CreateResult{}, fmt.Errorf("load user: %w", err)
	}

	cmd.Normalize()
	if cmd.DataType == "" {
		cmd.DataType = DefaultDataType
	}
	now := s.now()

	body, err := json.Marshal(payload{
		CheckInAt:    cmd.CheckInAt,
		CheckOutAt:   cmd.CheckOutAt,
		GuestsCount:  cmd.GuestsCount,
		DoorPassword: cmd.DoorPassword,
		UserID:       user.ID,
		PhoneNumber:  user.PhoneNumber,
		DataType:     cmd.DataType,
		CreatedAt:    now,
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("marshal qr payload: %w", err)
	}

	image, err := s.renderer.RenderBase64(string(body))
	if err != nil {
		return CreateResult{}, fmt.Errorf("render qr: %w", err)
	}

	record := model.QrCodeRecord{
		ID:            uuid.New(),
		UserID:        user.ID,
		CheckInAt:     cmd.CheckInAt,
		CheckOutAt:    cmd.CheckOutAt,
		GuestsCount:   cmd.GuestsCount,
		DoorPassword:  strings.TrimSpace(cmd.DoorPassword),
		PayloadJSON:   string(body),
		QrImageBase64: image,
		DataType:      cmd.DataType,
		CreatedAt:     now,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return CreateResult{}, err
	}

	return CreateResult{Status: CreateSuccess, Record: record}, nil
}

// History returns a page of the user's records. A nil or negative skip means 0;
// take defaults to 20 and is clamped to [1, 100].
func (s *Service) History(ctx context.Context, userID uuid.UUID, skip, take *int) (History, error) {
	resolvedSkip := 0
	if skip != nil && *skip > 0 {
		resolvedSkip = *skip
	}
	resolvedTake := defaultTake
	if take != nil {
		resolvedTake = min(max(*take, 1), maxTake)
	}

	total, err := s.records.CountByUser(ctx, userID)
	if err != nil {
		return History{}, err
	}
	items, err := s.records.ListByUser(ctx, userID, resolvedSkip, resolvedTake)
	if err != nil {
		return History{}, err
	}

	return History{Items: items, Total: total, Skip: resolvedSkip, Take: resolvedTake}, nil
}

// Get returns one of the user's records.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (GetResult, error) {
	record, err := s.records.GetForUser(ctx, userID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return GetResult{Status: GetNotFound}, nil
	}
	if err != nil {
		return GetResult{}, err
	}
	return GetResult{Status: GetSuccess, Record: record}, nil
}

// SendToTelegram pushes a stored QR image to the user's bound chat.
func (s *Service) SendToTelegram(ctx context.Context, userID, id uuid.UUID) (SendResult, error) {
	record, err := s.records.GetForUser(ctx, userID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return SendResult{Status: SendQrNotFound}, nil
	}
	if err != nil {
		return SendResult{}, err
	}

	binding, err := s.bindings.GetByUser(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return SendResult{Status: SendTelegramNotBound}, nil
	}
	if err != nil {
		return SendResult{}, err
	}

	caption := fmt.Sprintf("QR access (%s) | %s - %s",
		record.DataType,
		record.CheckInAt.Format(time.RFC3339),
		record.CheckOutAt.Format(time.RFC3339),
	)

	if err := s.sender.SendPhoto(ctx, binding.ChatID, record.QrImageBase64, caption); err != nil {
		var tgErr *telegram.Error
		if !errors.As(err, &tgErr) {
			return SendResult{}, fmt.Errorf("send qr to telegram: %w", err)
		}
		return SendResult{Status: sendStatusFor(tgErr.Kind), Message: tgErr.Msg}, nil
	}

	return SendResult{
		Status:   SendSuccess,
		QrID:     record.ID,
		ChatID:   binding.ChatID,
		SentAt:   s.now(),
		Delivery: deliveryStatusSent,
	}, nil
}

func sendStatusFor(kind telegram.ErrorKind) SendStatus {
	switch kind {
	case telegram.KindConfiguration:
		return SendTelegramConfiguration
	case telegram.KindInvalidChat:
		return SendTelegramInvalidChat
	case telegram.KindForbidden:
		return SendTelegramForbidden
	case telegram.KindTimeout:
		return SendTelegramTimeout
	case telegram.KindNetwork:
		return SendTelegramNetwork
	case telegram.KindInvalidPayload:
		return SendTelegramInvalidPayload
	default:
		return SendTelegramRemoteAPI
	}
}
