package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ilocks/server/internal/model"
	"github.com/ilocks/server/internal/repo"
)

// Settings holds the OTP lifecycle parameters and the lifetime of the
// access token a confirmed code is exchanged for.
type Settings struct {
	CodeLength        int
	CodeTTL           time.Duration
	MaxVerifyAttempts int
	TokenTTL          time.Duration
}

// DefaultSettings returns 6-digit codes valid for 5 minutes with 5 verify
// attempts, exchanged for 12-hour tokens.
func DefaultSettings() Settings {
	return Settings{
		CodeLength:        6,
		CodeTTL:           5 * time.Minute,
		MaxVerifyAttempts: 5,
		TokenTTL:          12 * time.Hour,
	}
}

// Validate checks that the settings describe a usable OTP lifecycle.
func (s Settings) Validate() error {
	if s.CodeLength < 1 || s.CodeLength > maxCodeLength {
		return fmt.Errorf("otp code length must be between 1 and %d, got %d", maxCodeLength, s.CodeLength)
	}
	if s.CodeTTL <= 0 {
		return fmt.Errorf("otp ttl must be positive, got %s", s.CodeTTL)
	}
	if s.MaxVerifyAttempts < 1 {
		return fmt.Errorf("otp max verify attempts must be at least 1, got %d", s.MaxVerifyAttempts)
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", s.TokenTTL)
	}
	return nil
}

// RequestStatus is the outcome kind of RequestCode.
type RequestStatus int

const (
	RequestInvalidPhone RequestStatus = iota + 1
	RequestSuccess
)

func (s RequestStatus) String() string {
	switch s {
	case RequestInvalidPhone:
		return "invalid_phone"
	case RequestSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// RequestResult is returned by RequestCode. Only Status is set unless Status is RequestSuccess.
type RequestResult struct {
	Status            RequestStatus
	PhoneNumber       string
	ExpiresAt         time.Time
	MaxVerifyAttempts int
	// DebugCode carries the plaintext code when the caller asked for it.
	DebugCode string
}

// ConfirmStatus is the outcome kind of ConfirmCode.
type ConfirmStatus int

const (
	ConfirmInvalidPhone ConfirmStatus = iota + 1
	ConfirmInvalidCodeFormat
	ConfirmOtpNotFound
	ConfirmOtpExpired
	ConfirmOtpBlocked
	ConfirmInvalidOtp
	ConfirmSuccess
)

func (s ConfirmStatus) String() string {
	switch s {
	case ConfirmInvalidPhone:
		return "invalid_phone"
	case ConfirmInvalidCodeFormat:
		return "invalid_code_format"
	case ConfirmOtpNotFound:
		return "otp_not_found"
	case ConfirmOtpExpired:
		return "otp_expired"
	case ConfirmOtpBlocked:
		return "otp_blocked"
	case ConfirmInvalidOtp:
		return "invalid_otp"
	case ConfirmSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// ConfirmResult is returned by ConfirmCode.
type ConfirmResult struct {
	Status ConfirmStatus
	// RemainingAttempts is set for ConfirmInvalidOtp and is never negative.
	RemainingAttempts int
	AccessToken       AccessToken
	UserID            uuid.UUID
	PhoneNumber       string
}

// Manager owns the OTP lifecycle for phone numbers: issuing a code, verifying it with a
// bounded number of attempts, expiring and blocking it, and issuing a token on success.
type Manager struct {
	store     repo.OtpStore
	generator CodeGenerator
	hasher    Hasher
	tokens    TokenIssuer
	settings  Settings
	now       func() time.Time
}

// NewManager creates a new OTP lifecycle manager
func NewManager(
	store repo.OtpStore,
	generator CodeGenerator,
	hasher Hasher,
	tokens TokenIssuer,
	settings Settings,
) *Manager {
	return &Manager{
		store:     store,
		generator: generator,
		hasher:    hasher,
		tokens:    tokens,
		settings:  settings,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ OtpProvider = (*Manager)(nil)

// RequestCode issues a new code for the phone and supersedes every unused one it had.
// Validation happens before any write; the supersede and insert commit together.
func (m *Manager) RequestCode(ctx context.Context, rawPhone string, includeDebugCode bool) (RequestResult, error) {
	phone := NormalizePhone(rawPhone)
	if !IsPhoneValid(phone) {
		return RequestResult{Status: RequestInvalidPhone}, nil
	}

	code, err := m.generator.Generate(m.settings.CodeLength)
	if err != nil {
		return RequestResult{}, err
	}

	now := m.now()
	challenge := model.OtpChallenge{
		ID:          uuid.New(),
		PhoneNumber: phone,
		CodeHash:    m.hasher.Hash(code),
		ExpiresAt:   now.Add(m.settings.CodeTTL),
		CreatedAt:   now,
	}

	err = m.store.WithinTx(ctx, func(tx repo.OtpTx) error {
		active, err := tx.FindUnusedByPhone(ctx, phone)
		if err != nil {
			return err
		}
		for _, old := range active {
			old.IsUsed = true
			if err := tx.SaveChallenge(ctx, old); err != nil {
				return err
			}
		}
		return tx.InsertChallenge(ctx, challenge)
	})
	if err != nil {
		return RequestResult{}, fmt.Errorf("request otp: %w", err)
	}

	result := RequestResult{
		Status:            RequestSuccess,
		PhoneNumber:       phone,
		ExpiresAt:         challenge.ExpiresAt,
		MaxVerifyAttempts: m.settings.MaxVerifyAttempts,
	}
	if includeDebugCode {
		result.DebugCode = code
	}
	return result, nil
}

// ConfirmCode checks a code against the newest unused challenge for the phone.
// The challenge state change, user creation and token issuance succeed or fail together.
func (m *Manager) ConfirmCode(ctx context.Context, rawPhone, rawCode string) (ConfirmResult, error) {
	phone := NormalizePhone(rawPhone)
	if !IsPhoneValid(phone) {
		return ConfirmResult{Status: ConfirmInvalidPhone}, nil
	}
	if !isCodeFormatValid(rawCode, m.settings.CodeLength) {
		return ConfirmResult{Status: ConfirmInvalidCodeFormat}, nil
	}

	var result ConfirmResult
	err := m.store.WithinTx(ctx, func(tx repo.OtpTx) error {
		challenge, err := tx.FindLatestUnusedByPhone(ctx, phone)
		if errors.Is(err, repo.ErrNotFound) {
			result = ConfirmResult{Status: ConfirmOtpNotFound}
			return nil
		}
		if err != nil {
			return err
		}

		next, outcome := applyAttempt(challenge, rawCode, m.now(), m.settings.MaxVerifyAttempts, m.hasher)
		if err := tx.SaveChallenge(ctx, next); err != nil {
			return err
		}

		switch outcome {
		case attemptExpired:
			result = ConfirmResult{Status: ConfirmOtpExpired}
		case attemptBlocked:
			result = ConfirmResult{Status: ConfirmOtpBlocked}
		case attemptMismatch:
			result = ConfirmResult{
				Status:            ConfirmInvalidOtp,
				RemainingAttempts: max(0, m.settings.MaxVerifyAttempts-next.FailedAttempts),
			}
		case attemptMatched:
			user, err := tx.GetOrCreateUserByPhone(ctx, phone)
			if err != nil {
				return err
			}
			token, err := m.tokens.IssueAccessToken(user.ID, phone)
			if err != nil {
				return err
			}
			result = ConfirmResult{
				Status:      ConfirmSuccess,
				AccessToken: token,
				UserID:      user.ID,
				PhoneNumber: phone,
			}
		}
		return nil
	})
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("confirm otp: %w", err)
	}
	return result, nil
}

type attemptOutcome int

const (
	attemptExpired attemptOutcome = iota + 1
	attemptBlocked
	attemptMismatch
	attemptMatched
)

// applyAttempt is the challenge state transition for one verify attempt. It returns the
// state to persist and the outcome; it has no side effects.
func applyAttempt(c model.OtpChallenge, code string, now time.Time, maxAttempts int, hasher Hasher) (model.OtpChallenge, attemptOutcome) {
	if !c.ExpiresAt.After(now) {
		c.IsUsed = true
		return c, attemptExpired
	}

	// a challenge left at the ceiling without being marked used
	if c.FailedAttempts >= maxAttempts {
		c.IsUsed = true
		return c, attemptBlocked
	}

	if !hasher.Verify(code, c.CodeHash) {
		c.FailedAttempts++
		if c.FailedAttempts >= maxAttempts {
			c.IsUsed = true
			return c, attemptBlocked
		}
		return c, attemptMismatch
	}

	c.IsUsed = true
	return c, attemptMatched
}
