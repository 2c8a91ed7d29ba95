// Package tests holds end-to-end tests that run the full HTTP stack against PostgreSQL.
package tests

import (
	"context"
	"database/sql"
	"fmt"
)

// TruncateTables empties every application table for a clean test state.
func TruncateTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE telegram_bindings, qr_code_records, otp_codes, users CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// ExpireOtpCodes moves every unused code for phone into the past.
func ExpireOtpCodes(ctx context.Context, db *sql.DB, phone string) error {
	_, err := db.ExecContext(ctx,
		"UPDATE otp_codes SET expires_at = NOW() - INTERVAL '1 minute' WHERE phone_number = $1 AND is_used = FALSE",
		phone)
	if err != nil {
		return fmt.Errorf("expire otp codes: %w", err)
	}
	return nil
}
