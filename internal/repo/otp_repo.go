package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ilocks/server/internal/model"
)

// OtpStore runs OTP challenge reads and writes inside one database transaction.
type OtpStore interface {
	WithinTx(ctx context.Context, fn func(tx OtpTx) error) error
}

// OtpTx is the set of operations available inside an OtpStore transaction.
type OtpTx interface {
	FindUnusedByPhone(ctx context.Context, phone string) ([]model.OtpChallenge, error)
	// FindLatestUnusedByPhone returns ErrNotFound when the phone has no unused challenge.
	FindLatestUnusedByPhone(ctx context.Context, phone string) (model.OtpChallenge, error)
	InsertChallenge(ctx context.Context, challenge model.OtpChallenge) error
	// SaveChallenge writes the mutable state (failed_attempts, is_used) of an existing challenge.
	SaveChallenge(ctx context.Context, challenge model.OtpChallenge) error
	GetOrCreateUserByPhone(ctx context.Context, phone string) (model.User, error)
}

type otpStore struct {
	db *sql.DB
}

// NewOtpStore creates a new PostgreSQL-backed OtpStore
func NewOtpStore(db *sql.DB) OtpStore {
	return &otpStore{db: db}
}

// WithinTx begins a transaction, hands it to fn and commits only if fn returns nil.
func (s *otpStore) WithinTx(ctx context.Context, fn func(tx OtpTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&otpTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type otpTx struct {
	q querier
}

const otpColumns = `id, phone_number, code_hash, expires_at, failed_attempts, is_used, created_at`

func (t *otpTx) FindUnusedByPhone(ctx context.Context, phone string) ([]model.OtpChallenge, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT `+otpColumns+`
		FROM otp_codes
		WHERE phone_number = $1 AND is_used = false
		ORDER BY created_at DESC
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("query unused challenges: %w", err)
	}
	defer rows.Close()

	var challenges []model.OtpChallenge
	for rows.Next() {
		var c model.OtpChallenge
		if err := rows.Scan(&c.ID, &c.PhoneNumber, &c.CodeHash, &c.ExpiresAt, &c.FailedAttempts, &c.IsUsed, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenges: %w", err)
	}
	return challenges, nil
}

func (t *otpTx) FindLatestUnusedByPhone(ctx context.Context, phone string) (model.OtpChallenge, error) {
	var c model.OtpChallenge
	err := t.q.QueryRowContext(ctx, `
		SELECT `+otpColumns+`
		FROM otp_codes
		WHERE phone_number = $1 AND is_used = false
		ORDER BY created_at DESC
		LIMIT 1
	`, phone).Scan(&c.ID, &c.PhoneNumber, &c.CodeHash, &c.ExpiresAt, &c.FailedAttempts, &c.IsUsed, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OtpChallenge{}, ErrNotFound
		}
		return model.OtpChallenge{}, fmt.Errorf("query latest challenge: %w", err)
	}
	return c, nil
}

func (t *otpTx) InsertChallenge(ctx context.Context, c model.OtpChallenge) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO otp_codes (id, phone_number, code_hash, expires_at, failed_attempts, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.PhoneNumber, c.CodeHash, c.ExpiresAt, c.FailedAttempts, c.IsUsed, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

func (t *otpTx) SaveChallenge(ctx context.Context, c model.OtpChallenge) error {
	result, err := t.q.ExecContext(ctx, `
		UPDATE otp_codes
		SET failed_attempts = $2, is_used = $3
		WHERE id = $1
	`, c.ID, c.FailedAttempts, c.IsUsed)
	if err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save challenge %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (t *otpTx) GetOrCreateUserByPhone(ctx context.Context, phone string) (model.User, error) {
	return getOrCreateUserByPhone(ctx, t.q, phone)
}
