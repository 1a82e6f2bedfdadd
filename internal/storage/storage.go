package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/taskhive/apiserver/internal/apperrors"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

const avatarPrefix = "avatars/"

var allowedImageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Avatars stores profile images on an ObjectStorage backend. One object per
// user, keyed by user id plus the original file extension.
type Avatars struct {
	backend ObjectStorage
}

// NewAvatars constructs an avatar store for the provided backend.
func NewAvatars(backend ObjectStorage) *Avatars {
	return &Avatars{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (a *Avatars) EnsureBucket(ctx context.Context) error {
	return a.backend.EnsureBucket(ctx)
}

// Save validates and uploads a profile image, returning the object key.
func (a *Avatars) Save(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	expected, ok := allowedImageExtensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q: %w", ext, apperrors.ErrValidation)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image file is empty: %w", apperrors.ErrValidation)
	}
	if contentType == "" {
		contentType = expected
	}

	key := avatarPrefix + userID + ext
	if err := a.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("store profile image: %w", err)
	}
	return key, nil
}

// Open opens a reader for a stored profile image. Misses surface as
// apperrors.ErrNotFound from the backend.
func (a *Avatars) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := a.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open profile image: %w", err)
	}
	return reader, nil
}

// Remove deletes a stored profile image.
func (a *Avatars) Remove(ctx context.Context, key string) error {
	return a.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (a *Avatars) Bucket() string {
	return a.backend.Bucket()
}
