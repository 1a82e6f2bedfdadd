package types

import "time"

// User represents an account in the system.
// It contains identity, credentials, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, an opaque UUID string.
	ID string `json:"id"`

	// Email is the user's email address, used as the login identifier.
	// Stored lowercased; uniqueness is case-insensitive.
	Email string `json:"email"`

	// Name is the user's display name.
	Name string `json:"name"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-"`

	// ProfileImageKey is the object storage key of the user's profile
	// image. Empty when the user has no uploaded image.
	ProfileImageKey string `json:"-"`

	// ProfileImageURL is the public URL under which the profile image
	// can be fetched. Empty when the user has no uploaded image.
	ProfileImageURL string `json:"profile_image_url,omitempty"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the public view of a user, with credentials stripped.
type Profile struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Profile returns the public view of the user.
func (u User) Profile() Profile {
	return Profile{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
	}
}
