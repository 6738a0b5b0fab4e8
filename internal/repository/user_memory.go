package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/studyshare-auth/internal/domain"
)

type memoryUserRepository struct {
	mu         sync.RWMutex
	byUsername map[string]domain.User
	emails     map[string]string
}

// NewMemoryUserRepository returns a process-local implementation used when no
// database is configured and in tests.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byUsername: make(map[string]domain.User),
		emails:     make(map[string]string),
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	email := strings.ToLower(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[user.Username]; ok {
		return &DuplicateError{Field: "username"}
	}
	if _, ok := r.emails[email]; ok {
		return &DuplicateError{Field: "email"}
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byUsername[user.Username] = *user
	r.emails[email] = user.Username
	return nil
}

func (r *memoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *memoryUserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[username]
	return ok, nil
}

func (r *memoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.emails[strings.ToLower(email)]
	return ok, nil
}
