package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ilocks/server/internal/model"
	"github.com/ilocks/server/internal/repo"
)

// memStore is a transactional in-memory repo.OtpStore. Each WithinTx works on a copy
// that replaces the committed state only when fn returns nil.
type memStore struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]model.OtpChallenge
	users      map[string]model.User

	// failInsert and failSave inject storage faults
	failInsert error
	failSave   error
}

func newMemStore() *memStore {
	return &memStore{
		challenges: make(map[uuid.UUID]model.OtpChallenge),
		users:      make(map[string]model.User),
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx repo.OtpTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:      s,
		challenges: make(map[uuid.UUID]model.OtpChallenge, len(s.challenges)),
		users:      make(map[string]model.User, len(s.users)),
	}
	for k, v := range s.challenges {
		tx.challenges[k] = v
	}
	for k, v := range s.users {
		tx.users[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.challenges = tx.challenges
	s.users = tx.users
	return nil
}

// unused returns the committed unused challenges for phone, newest first.
func (s *memStore) unused(phone string) []model.OtpChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OtpChallenge
	for _, c := range s.challenges {
		if c.PhoneNumber == phone && !c.IsUsed {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memStore) get(id uuid.UUID) model.OtpChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenges[id]
}

func (s *memStore) put(c model.OtpChallenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[c.ID] = c
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type memTx struct {
	store      *memStore
	challenges map[uuid.UUID]model.OtpChallenge
	users      map[string]model.User
}

func (t *memTx) FindUnusedByPhone(_ context.Context, phone string) ([]model.OtpChallenge, error) {
	var out []model.OtpChallenge
	for _, c := range t.challenges {
		if c.PhoneNumber == phone && !c.IsUsed {
			out = append(out, c)
		}
	}
	return out, nil
}

func (t *memTx) FindLatestUnusedByPhone(ctx context.Context, phone string) (model.OtpChallenge, error) {
	unused, _ := t.FindUnusedByPhone(ctx, phone)
	if len(unused) == 0 {
		return model.OtpChallenge{}, repo.ErrNotFound
	}
	sort.Slice(unused, func(i, j int) bool { return unused[i].CreatedAt.After(unused[j].CreatedAt) })
	return unused[0], nil
}

func (t *memTx) InsertChallenge(_ context.Context, c model.OtpChallenge) error {
	if t.store.failInsert != nil {
		return t.store.failInsert
	}
	t.challenges[c.ID] = c
	return nil
}

func (t *memTx) SaveChallenge(_ context.Context, c model.OtpChallenge) error {
	if t.store.failSave != nil {
		return t.store.failSave
	}
	if _, ok := t.challenges[c.ID]; !ok {
		return repo.ErrNotFound
	}
	t.challenges[c.ID] = c
	return nil
}

func (t *memTx) GetOrCreateUserByPhone(_ context.Context, phone string) (model.User, error) {
	if u, ok := t.users[phone]; ok {
		return u, nil
	}
	u := model.User{ID: uuid.New(), PhoneNumber: phone, CreatedAt: time.Now().UTC()}
	t.users[phone] = u
	return u, nil
}
