package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process UserRepository. Accounts are keyed by
// lowercased email and vanish on restart, matching the stateless engine.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryRepository creates an empty in-memory user store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*User)}
}

// Create stores a new user, assigning an ID if one is not set
func (r *MemoryRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := r.users[key]; exists {
		return ErrUserExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	stored := *user
	r.users[key] = &stored
	return nil
}

// GetByEmail looks up a user by email, case-insensitively
func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}

	copied := *user
	return &copied, nil
}
