package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/apiserver/internal/apperrors"
)

// memBackend is an in-memory ObjectStorage for tests.
type memBackend struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemBackend() *memBackend {
	return &memBackend{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (m *memBackend) EnsureBucket(ctx context.Context) error { return nil }

func (m *memBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBackend) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memBackend) Bucket() string { return "test" }

func TestAvatarsSave(t *testing.T) {
	backend := newMemBackend()
	avatars := NewAvatars(backend)
	ctx := context.Background()

	key, err := avatars.Save(ctx, "user-1", "Photo.PNG", []byte{1, 2, 3}, "")
	require.NoError(t, err)
	require.Equal(t, "avatars/user-1.png", key, "extension is lowercased")
	require.Equal(t, "image/png", backend.contentTypes[key], "content type inferred from extension")

	reader, err := avatars.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Equal(t, []byte{1, 2, 3}, data)
}

func TestAvatarsSaveRejectsUnsupportedTypes(t *testing.T) {
	avatars := NewAvatars(newMemBackend())
	ctx := context.Background()

	_, err := avatars.Save(ctx, "user-1", "malware.exe", []byte{1}, "")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = avatars.Save(ctx, "user-1", "noextension", []byte{1}, "")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = avatars.Save(ctx, "user-1", "empty.png", nil, "")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAvatarsOpenMissing(t *testing.T) {
	avatars := NewAvatars(newMemBackend())

	_, err := avatars.Open(context.Background(), "avatars/ghost.png")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAvatarsRemove(t *testing.T) {
	backend := newMemBackend()
	avatars := NewAvatars(backend)
	ctx := context.Background()

	key, err := avatars.Save(ctx, "user-1", "me.jpg", []byte{1}, "image/jpeg")
	require.NoError(t, err)
	require.NoError(t, avatars.Remove(ctx, key))

	_, err = avatars.Open(ctx, key)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
