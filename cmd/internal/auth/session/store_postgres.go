package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (relay.sessions).
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a session row keyed by refresh-token digest.
func (s *PostgresStore) Create(ctx context.Context, sess Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay.sessions (token_hash, identity_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, sess.TokenHash, sess.IdentityID, sess.CreatedAt, sess.ExpiresAt)
	return err
}

// FindByToken loads the session row the refresh token hashes to.
func (s *PostgresStore) FindByToken(ctx context.Context, refreshToken string) (Session, error) {
	var sess Session

	err := s.pool.QueryRow(ctx, `
		SELECT token_hash, identity_id, created_at, expires_at
		FROM relay.sessions
		WHERE token_hash = $1
	`, hashToken(refreshToken)).Scan(
		&sess.TokenHash,
		&sess.IdentityID,
		&sess.CreatedAt,
		&sess.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}

	return sess, nil
}

// DeleteByToken removes a single session row (idempotent).
func (s *PostgresStore) DeleteByToken(ctx context.Context, refreshToken string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM relay.sessions
		WHERE token_hash = $1
	`, hashToken(refreshToken))
	return err
}

// DeleteAllForIdentity removes every session row for one identity (idempotent).
func (s *PostgresStore) DeleteAllForIdentity(ctx context.Context, identityID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM relay.sessions
		WHERE identity_id = $1
	`, identityID)
	return err
}

// DeleteExpired prunes rows whose refresh token can no longer be used.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM relay.sessions
		WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
