package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"relay/cmd/identity/ids"
)

// PostgresStore implements Store over PostgreSQL (relay.profiles).
//
// The pgx pool is owned by the caller; this store must not close it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed profile store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const profileColumns = `
	id, handle, handle_norm, name, email, email_norm,
	avatar_ref, about, password_hash, created_at
`

// CreateProfile registers a new profile with a hashed secret.
func (s *PostgresStore) CreateProfile(ctx context.Context, in CreateProfileInput) (Profile, error) {
	const op = "identity.CreateProfile"

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
		return Profile{}, fmt.Errorf("%s: %w", op, err)
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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO relay.profiles (
			id, handle, handle_norm, name, email, email_norm,
			avatar_ref, about, password_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, $9)
	`, p.ID, p.Handle, p.HandleNorm, p.Name, p.Email, p.EmailNorm, p.AvatarRef, p.PasswordHash, p.CreatedAt)
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return Profile{}, ConflictError{Op: op, Field: field}
		}
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// GetByHandle loads a profile by its normalized handle.
func (s *PostgresStore) GetByHandle(ctx context.Context, handle string) (Profile, error) {
	const op = "identity.GetByHandle"
	return s.getWhere(ctx, op, "handle_norm = $1", NormalizeHandle(handle))
}

// GetByID loads a profile by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Profile, error) {
	const op = "identity.GetByID"
	return s.getWhere(ctx, op, "id = $1", id)
}

func (s *PostgresStore) getWhere(ctx context.Context, op, where string, arg any) (Profile, error) {
	var p Profile

	err := s.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM relay.profiles
		WHERE `+where,
		arg,
	).Scan(
		&p.ID,
		&p.Handle,
		&p.HandleNorm,
		&p.Name,
		&p.Email,
		&p.EmailNorm,
		&p.AvatarRef,
		&p.About,
		&p.PasswordHash,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// UpdatePasswordHash swaps the stored hash for an existing profile.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	const op = "identity.UpdatePasswordHash"

	tag, err := s.pool.Exec(ctx, `
		UPDATE relay.profiles
		SET password_hash = $2
		WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

func classifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable constraint names; fall back to substring heuristics.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_profiles_handle_norm":
		return "handle", true
	case "uq_profiles_email_norm":
		return "email", true
	default:
		switch {
		case strings.Contains(c, "handle"):
			return "handle", true
		case strings.Contains(c, "email"):
			return "email", true
		default:
			return "unique", true
		}
	}
}
