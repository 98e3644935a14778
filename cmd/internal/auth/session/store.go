package session

import (
	"context"
	"time"

	"relay/cmd/security/token"
)

// Session is the persisted half of a refresh credential. The refresh
// token itself never touches storage: records are keyed by its digest,
// and deleting a record revokes the whole session.
type Session struct {
	TokenHash  string
	IdentityID string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Live reports whether the record has not outlived its refresh token.
func (s Session) Live(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// Store persists session records keyed by refresh-token digest.
//
// FindByToken returns expired records as-is; liveness is the caller's
// check. Delete operations are idempotent and report nothing about
// whether a record existed.
type Store interface {
	Create(ctx context.Context, s Session) error
	FindByToken(ctx context.Context, refreshToken string) (Session, error)
	DeleteByToken(ctx context.Context, refreshToken string) error
	DeleteAllForIdentity(ctx context.Context, identityID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func hashToken(refreshToken string) string {
	return token.HashRefreshTokenHex(refreshToken)
}
