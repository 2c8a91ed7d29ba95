package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ilocks/server/internal/model"
)

// QrRepo defines the interface for QR code record operations
type QrRepo interface {
	Create(ctx context.Context, record model.QrCodeRecord) error
	// ListByUser returns a page of the user's records, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, skip, take int) ([]model.QrCodeRecord, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	// GetForUser returns ErrNotFound when the record does not exist or belongs to another user.
	GetForUser(ctx context.Context, userID, id uuid.UUID) (model.QrCodeRecord, error)
}

type qrRepo struct {
	db *sql.DB
}

// NewQrRepo creates a new QrRepo instance
func NewQrRepo(db *sql.DB) QrRepo {
	return &qrRepo{db: db}
}

func (r *qrRepo) Create(ctx context.Context, rec model.QrCodeRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO qr_code_records
			(id, user_id, check_in_at, check_out_at, guests_count, door_password,
			 payload_json, qr_image_base64, data_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.UserID, rec.CheckInAt, rec.CheckOutAt, rec.GuestsCount, rec.DoorPassword,
		rec.PayloadJSON, rec.QrImageBase64, rec.DataType, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert qr record: %w", err)
	}
	return nil
}

// ListByUser only selects the summary columns; payload and image stay in the table.
func (r *qrRepo) ListByUser(ctx context.Context, userID uuid.UUID, skip, take int) ([]model.QrCodeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, check_in_at, check_out_at, guests_count, data_type, created_at
		FROM qr_code_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, userID, skip, take)
	if err != nil {
		return nil, fmt.Errorf("query qr records: %w", err)
	}
	defer rows.Close()

	records := make([]model.QrCodeRecord, 0, take)
	for rows.Next() {
		var rec model.QrCodeRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.CheckInAt, &rec.CheckOutAt, &rec.GuestsCount, &rec.DataType, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan qr record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate qr records: %w", err)
	}
	return records, nil
}

func (r *qrRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM qr_code_records WHERE user_id = $1
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count qr records: %w", err)
	}
	return count, nil
}

func (r *qrRepo) GetForUser(ctx context.Context, userID, id uuid.UUID) (model.QrCodeRecord, error) {
	var rec model.QrCodeRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, check_in_at, check_out_at, guests_count, door_password,
		       payload_json, qr_image_base64, data_type, created_at
		FROM qr_code_records
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CheckInAt,
		&rec.CheckOutAt,
		&rec.GuestsCount,
		&rec.DoorPassword,
		&rec.PayloadJSON,
		&rec.QrImageBase64,
		&rec.DataType,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.QrCodeRecord{}, ErrNotFound
		}
		return model.QrCodeRecord{}, fmt.Errorf("query qr record: %w", err)
	}
	return rec, nil
}
