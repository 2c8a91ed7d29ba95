package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ilocks/server/internal/model"
)

// TelegramBindingRepo defines the interface for Telegram chat binding operations
type TelegramBindingRepo interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (model.TelegramBinding, error)
	GetByChat(ctx context.Context, chatID int64) (model.TelegramBinding, error)
	// Upsert binds chatID to userID, replacing the user's previous chat. It returns
	// ErrConflict if the chat is already bound to a different user.
	Upsert(ctx context.Context, userID uuid.UUID, chatID int64, boundAt time.Time) (model.TelegramBinding, error)
}

type telegramBindingRepo struct {
	db *sql.DB
}

// NewTelegramBindingRepo creates a new TelegramBindingRepo instance
func NewTelegramBindingRepo(db *sql.DB) TelegramBindingRepo {
	return &telegramBindingRepo{db: db}
}

func (r *telegramBindingRepo) GetByUser(ctx context.Context, userID uuid.UUID) (model.TelegramBinding, error) {
	return scanBinding(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, chat_id, created_at FROM telegram_bindings WHERE user_id = $1
	`, userID))
}

func (r *telegramBindingRepo) GetByChat(ctx context.Context, chatID int64) (model.TelegramBinding, error) {
	return scanBinding(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, chat_id, created_at FROM telegram_bindings WHERE chat_id = $1
	`, chatID))
}

func (r *telegramBindingRepo) Upsert(ctx context.Context, userID uuid.UUID, chatID int64, boundAt time.Time) (model.TelegramBinding, error) {
	binding, err := scanBinding(r.db.QueryRowContext(ctx, `
		INSERT INTO telegram_bindings (id, user_id, chat_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET chat_id = EXCLUDED.chat_id, created_at = EXCLUDED.created_at
		RETURNING id, user_id, chat_id, created_at
	`, uuid.New(), userID, chatID, boundAt))
	if err != nil {
		// chat_id is unique too; a concurrent bind of the same chat lands here
		if isUniqueViolation(err) {
			return model.TelegramBinding{}, ErrConflict
		}
		return model.TelegramBinding{}, err
	}
	return binding, nil
}

func scanBinding(row *sql.Row) (model.TelegramBinding, error) {
	var b model.TelegramBinding
	err := row.Scan(&b.ID, &b.UserID, &b.ChatID, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TelegramBinding{}, ErrNotFound
		}
		return model.TelegramBinding{}, fmt.Errorf("query telegram binding: %w", err)
	}
	return b, nil
}
