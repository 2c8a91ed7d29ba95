package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID          uuid.UUID
	PhoneNumber string
	CreatedAt   time.Time
}

// OtpChallenge is one issued one-time code for a phone number.
// At most one challenge per phone has IsUsed == false.
type OtpChallenge struct {
	ID             uuid.UUID
	PhoneNumber    string
	CodeHash       string
	ExpiresAt      time.Time
	FailedAttempts int
	IsUsed         bool
	CreatedAt      time.Time
}

// QrCodeRecord is a generated booking access QR code owned by a user
type QrCodeRecord struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CheckInAt     time.Time
	CheckOutAt    time.Time
	GuestsCount   int
	DoorPassword  string
	PayloadJSON   string
	QrImageBase64 string
	DataType      string
	CreatedAt     time.Time
}

// TelegramBinding links a user to the Telegram chat QR codes are delivered to
type TelegramBinding struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ChatID    int64
	CreatedAt time.Time
}
