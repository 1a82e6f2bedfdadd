package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/taskhive/apiserver/internal/apperrors"
	"github.com/taskhive/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the account operations the service needs.
type UserRepository interface {
	Create(user types.User) (types.User, error)
	ByID(id string) (types.User, error)
	ByEmail(email string) (types.User, error)
	Count() int
	UpdateProfileImage(id, key, url string) (types.User, error)
}

// AvatarStore defines the object storage operations for profile images.
type AvatarStore interface {
	Save(ctx context.Context, userID, filename string, data []byte, contentType string) (key string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// UserService encapsulates registration, authentication, and profile
// use-cases. Avatars may be nil, which disables profile image uploads.
type UserService struct {
	repo    UserRepository
	avatars AvatarStore
}

func NewUserService(repo UserRepository, avatars AvatarStore) *UserService {
	return &UserService{repo: repo, avatars: avatars}
}

// Register creates an account. The email must be unique case-insensitively;
// a duplicate yields ErrConflict.
func (s *UserService) Register(ctx context.Context, email, password, name string) (types.User, error) {
	if err := validateEmail(email); err != nil {
		return types.User{}, err
	}
	if len(password) < minPasswordLen {
		return types.User{}, validationError("password must be at least %d characters", minPasswordLen)
	}
	if strings.TrimSpace(name) == "" {
		return types.User{}, validationError("name must not be blank")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(types.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hashed),
	})
}

// Authenticate verifies credentials and returns the account. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.ByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return types.User{}, fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthorized)
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthorized)
	}
	return user, nil
}

// ByID loads an account by id.
func (s *UserService) ByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.ByID(id)
}

// RegisteredCount returns the number of registered users.
func (s *UserService) RegisteredCount(ctx context.Context) int {
	return s.repo.Count()
}

// UploadProfileImage stores the image in object storage and records its key
// and public URL on the account.
func (s *UserService) UploadProfileImage(ctx context.Context, userID, filename string, data []byte, contentType string) (types.User, error) {
	if s.avatars == nil {
		return types.User{}, validationError("profile image storage is not configured")
	}

	user, err := s.repo.ByID(userID)
	if err != nil {
		return types.User{}, err
	}

	key, err := s.avatars.Save(ctx, userID, filename, data, contentType)
	if err != nil {
		return types.User{}, err
	}

	// Replacing an image leaves the old object behind only when the key
	// changed (a different file extension).
	if user.ProfileImageKey != "" && user.ProfileImageKey != key {
		_ = s.avatars.Remove(ctx, user.ProfileImageKey)
	}

	url := fmt.Sprintf("/users/profile/image/%s", userID)
	return s.repo.UpdateProfileImage(userID, key, url)
}

// OpenProfileImage opens the stored image of a user for streaming.
func (s *UserService) OpenProfileImage(ctx context.Context, userID string) (io.ReadCloser, error) {
	if s.avatars == nil {
		return nil, apperrors.ErrNotFound
	}
	user, err := s.repo.ByID(userID)
	if err != nil {
		return nil, err
	}
	if user.ProfileImageKey == "" {
		return nil, apperrors.ErrNotFound
	}
	return s.avatars.Open(ctx, user.ProfileImageKey)
}

// RemoveProfileImage deletes the stored image and clears the reference.
func (s *UserService) RemoveProfileImage(ctx context.Context, userID string) (types.User, error) {
	user, err := s.repo.ByID(userID)
	if err != nil {
		return types.User{}, err
	}
	if user.ProfileImageKey != "" && s.avatars != nil {
		_ = s.avatars.Remove(ctx, user.ProfileImageKey)
	}
	return s.repo.UpdateProfileImage(userID, "", "")
}
