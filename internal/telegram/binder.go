package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ilocks/server/internal/model"
	"github.com/ilocks/server/internal/repo"
)

// UserLookup finds the user a chat is bound to.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

type BindStatus int

const (
	BindInvalidChat BindStatus = iota + 1
	BindUnauthorizedUser
	BindChatAlreadyBound
	BindSuccess
)

type BindResult struct {
	Status  BindStatus
	Binding model.TelegramBinding
}

// Binder links users to Telegram chats. A chat belongs to at most one user and a
// user has at most one chat; rebinding replaces the user's previous chat.
type Binder struct {
	users    UserLookup
	bindings repo.TelegramBindingRepo
	now      func() time.Time
}

// NewBinder creates a new chat binder
func NewBinder(users UserLookup, bindings repo.TelegramBindingRepo) *Binder {
	return &Binder{
		users:    users,
		bindings: bindings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Bind attaches chatID to userID.
func (b *Binder) Bind(ctx context.Context, userID uuid.UUID, chatID int64) (BindResult, error) {
	if chatID <= 0 {
		return BindResult{Status: BindInvalidChat}, nil
	}

	if _, err := b.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return BindResult{Status: BindUnauthorizedUser}, nil
		}
		return BindResult{}, fmt.Errorf("load user: %w", err)
	}

	existing, err := b.bindings.GetByChat(ctx, chatID)
	switch {
	case err == nil && existing.UserID != userID:
		return BindResult{Status: BindChatAlreadyBound}, nil
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		return BindResult{}, err
	}

	binding, err := b.bindings.Upsert(ctx, userID, chatID, b.now())
	if errors.Is(err, repo.ErrConflict) {
		return BindResult{Status: BindChatAlreadyBound}, nil
	}
	if err != nil {
		return BindResult{}, err
	}
	return BindResult{Status: BindSuccess, Binding: binding}, nil
}
