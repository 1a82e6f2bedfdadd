package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskhive/apiserver/internal/apperrors"
	"github.com/taskhive/apiserver/types"
)

// UserStore is the in-memory keeper of user accounts. It is safe for
// concurrent registration and login: all access goes through one RWMutex,
// and a lowercase email index enforces case-insensitive uniqueness.
type UserStore struct {
	mu        sync.RWMutex
	users     map[string]types.User
	emailToID map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:     make(map[string]types.User),
		emailToID: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create stores a new user, assigning a UUID and timestamps. The email is
// normalized to lowercase; a duplicate yields ErrConflict.
func (s *UserStore) Create(user types.User) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(user.Email)
	if _, exists := s.emailToID[email]; exists {
		return types.User{}, fmt.Errorf("email %s already registered: %w", email, apperrors.ErrConflict)
	}

	now := time.Now()
	user.ID = uuid.NewString()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = user
	s.emailToID[email] = user.ID
	return user, nil
}

// ByID looks up a user by id.
func (s *UserStore) ByID(id string) (types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return types.User{}, apperrors.ErrNotFound
	}
	return user, nil
}

// ByEmail looks up a user by email, case-insensitively.
func (s *UserStore) ByEmail(email string) (types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailToID[normalizeEmail(email)]
	if !ok {
		return types.User{}, apperrors.ErrNotFound
	}
	return s.users[id], nil
}

// EmailExists reports whether the email is already registered.
func (s *UserStore) EmailExists(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.emailToID[normalizeEmail(email)]
	return ok
}

// Count returns the number of registered users.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users)
}

// UpdateProfileImage replaces the user's profile image reference.
// Empty values clear it.
func (s *UserStore) UpdateProfileImage(id, key, url string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return types.User{}, apperrors.ErrNotFound
	}

	user.ProfileImageKey = key
	user.ProfileImageURL = url
	user.UpdatedAt = time.Now()
	s.users[id] = user
	return user, nil
}
