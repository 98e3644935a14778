package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"relay/cmd/identity/ids"
)

// MemoryStore is a dev/test fallback when no database is configured.
// It applies the same normalization and conflict rules as the Postgres
// store so the auth core behaves identically against either.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]Profile
	byHandle map[string]string // handle_norm -> id
	byEmail  map[string]string // email_norm -> id
}

// NewMemoryStore constructs an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]Profile),
		byHandle: make(map[string]string),
		byEmail:  make(map[string]string),
	}
}

// CreateProfile registers a new profile with a hashed secret.
func (s *MemoryStore) CreateProfile(ctx context.Context, in CreateProfileInput) (Profile, error) {
	const op = "identity.CreateProfile"

	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}

	handle := strings.TrimSpace(in.Handle)
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)

	switch {
	case handle == "":
		return Profile{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "handle is required"}
	case name == "":
		return Profile{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name is required"}
	case email == "":
		return Profile{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	case strings.TrimSpace(in.Password) == "":
		return Profile{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Profile{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Profile{}, err
	}

	p := Profile{
		ID:           id,
		Handle:       handle,
		HandleNorm:   NormalizeHandle(handle),
		Name:         name,
		Email:        email,
		EmailNorm:    NormalizeEmail(email),
		AvatarRef:    in.AvatarRef,
		PasswordHash: hash,
		CreatedAt:    now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byHandle[p.HandleNorm]; taken {
		return Profile{}, ConflictError{Op: op, Field: "handle"}
	}
	if _, taken := s.byEmail[p.EmailNorm]; taken {
		return Profile{}, ConflictError{Op: op, Field: "email"}
	}

	s.byID[p.ID] = p
	s.byHandle[p.HandleNorm] = p.ID
	s.byEmail[p.EmailNorm] = p.ID
	return p, nil
}

// GetByHandle loads a profile by its normalized handle.
func (s *MemoryStore) GetByHandle(ctx context.Context, handle string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHandle[NormalizeHandle(handle)]
	if !ok {
		return Profile{}, OpError{Op: "identity.GetByHandle", Kind: ErrNotFound}
	}
	return s.byID[id], nil
}

// GetByID loads a profile by ID.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return Profile{}, OpError{Op: "identity.GetByID", Kind: ErrNotFound}
	}
	return p, nil
}

// UpdatePasswordHash swaps the stored hash for an existing profile.
func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return OpError{Op: "identity.UpdatePasswordHash", Kind: ErrNotFound}
	}
	p.PasswordHash = passwordHash
	s.byID[id] = p
	return nil
}
