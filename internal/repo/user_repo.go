package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ilocks/server/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `
		SELECT id, phone_number, created_at
		FROM users
		WHERE id = $1
	`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// getOrCreateUserByPhone inserts with ON CONFLICT DO NOTHING and then selects, so concurrent
// first logins for one phone converge on a single row.
func getOrCreateUserByPhone(ctx context.Context, q querier, phone string) (model.User, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, phone_number)
		VALUES ($1, $2)
		ON CONFLICT (phone_number) DO NOTHING
	`, uuid.New(), phone)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	return getUserByPhone(ctx, q, phone)
}

func getUserByPhone(ctx context.Context, q querier, phone string) (model.User, error) {
	query := `
		SELECT id, phone_number, created_at
		FROM users
		WHERE phone_number = $1
	`
	return scanUser(q.QueryRowContext(ctx, query, phone))
}

func scanUser(row *sql.Row) (model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.PhoneNumber, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}
