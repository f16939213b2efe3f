package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory, for the memory storage
// backend and tests.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*User
	byUsername map[string]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[uuid.UUID]*User),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (m *MemoryRepository) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byUsername[user.Username]; taken {
		return ErrUserAlreadyExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	stored := *user
	m.byID[user.ID] = &stored
	m.byUsername[user.Username] = user.ID
	return nil
}

func (m *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *m.byID[id]
	return &u, nil
}

func (m *MemoryRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) UpdateUserPassword(ctx context.Context, userID string, hashedPassword string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrUserNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[uid]
	if !ok {
		return ErrUserNotFound
	}
	u.Password = hashedPassword
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byUsername[username]
	return ok, nil
}
