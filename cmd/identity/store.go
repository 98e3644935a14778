package identity

import (
	"context"
	"time"
)

// Profile is relay's canonical security principal.
// PasswordHash is a PHC-encoded Argon2id string; the plaintext secret is
// never stored.
type Profile struct {
	ID         string
	Handle     string
	HandleNorm string
	Name       string
	Email      string
	EmailNorm  string
	AvatarRef  *string
	About      *string

	PasswordHash string

	CreatedAt time.Time
}

// CreateProfileInput describes a registration request.
// Password arrives in plaintext and is hashed before persistence.
type CreateProfileInput struct {
	Handle    string
	Name      string
	Email     string
	Password  string
	AvatarRef *string
	Now       time.Time
}

// Store is the profile persistence boundary the auth core consumes.
//
// GetByHandle and GetByID return ErrNotFound (wrapped) for missing rows.
// CreateProfile returns ConflictError when handle or email is taken.
type Store interface {
	CreateProfile(ctx context.Context, in CreateProfileInput) (Profile, error)
	GetByHandle(ctx context.Context, handle string) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)

	// UpdatePasswordHash swaps the stored hash for an existing profile.
	// Used by the change-password flow; callers are responsible for
	// revoking sessions afterwards.
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
}
