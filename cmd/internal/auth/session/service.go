package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"relay/cmd/identity"
)

// Service is the session authority. It owns the full credential
// lifecycle: issuing paired tokens at login, verifying access tokens,
// re-deriving access tokens from live sessions, and revoking sessions
// one at a time or per identity.
type Service struct {
	cfg      Config
	codec    Codec
	store    Store
	profiles identity.Store
	log      *slog.Logger
}

// Issued is the result of a successful login: both token classes plus
// the claims they carry.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	Claims       Claims
}

// Reissued is the result of a successful access-token re-derivation.
// The refresh token is untouched; only the access credential is new.
type Reissued struct {
	AccessToken string
	AccessExp   time.Time
	Claims      Claims
}

func NewService(cfg Config, codec Codec, store Store, profiles identity.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, codec: codec, store: store, profiles: profiles, log: log}
}

func claimsFor(p identity.Profile) Claims {
	c := Claims{
		IdentityID: p.ID,
		Handle:     p.Handle,
		Name:       p.Name,
	}
	if p.AvatarRef != nil {
		c.AvatarRef = *p.AvatarRef
	}
	return c
}

// Login verifies a handle/secret pair and, on success, issues both
// token classes and persists the session record for the refresh token.
//
// An unknown handle and a wrong secret are distinct failures:
// identity.ErrNotFound passes through, a wrong secret is
// ErrBadCredentials.
func (s *Service) Login(ctx context.Context, handle, secret string, now time.Time) (Issued, error) {
	p, err := s.profiles.GetByHandle(ctx, handle)
	if err != nil {
		return Issued{}, err
	}

	ok, err := identity.VerifyPassword(secret, p.PasswordHash)
	if err != nil {
		return Issued{}, err
	}
	if !ok {
		return Issued{}, ErrBadCredentials
	}

	claims := claimsFor(p)

	accessToken, accessExp, err := s.codec.Issue(claims, KeyClassAccess, now)
	if err != nil {
		return Issued{}, err
	}
	refreshToken, refreshExp, err := s.codec.Issue(claims, KeyClassRefresh, now)
	if err != nil {
		return Issued{}, err
	}

	// The session must exist before the refresh token reaches the
	// client; a stored refresh token with no record is just noise.
	err = s.store.Create(ctx, Session{
		TokenHash:  hashToken(refreshToken),
		IdentityID: p.ID,
		CreatedAt:  now,
		ExpiresAt:  refreshExp,
	})
	if err != nil {
		return Issued{}, err
	}

	s.log.LogAttrs(ctx, slog.LevelInfo, "auth.login.ok",
		slog.String("identity_id", p.ID),
	)

	return Issued{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshToken,
		RefreshExp:   refreshExp,
		Claims:       claims,
	}, nil
}

// VerifyAccess checks an access token. Exactly two failures are
// possible: ErrTokenExpired and ErrTokenInvalid.
func (s *Service) VerifyAccess(token string, now time.Time) (Claims, error) {
	return s.codec.Verify(token, KeyClassAccess, now)
}

// Reissue mints a fresh access token from a refresh token whose
// session is still live. The claims come from the profile store, not
// from the refresh token, so a rename or avatar change between logins
// shows up in the new access token.
//
// Reissue never writes to the session store. Two concurrent calls with
// the same refresh token both succeed; access tokens are not tracked
// individually, so neither invalidates the other.
func (s *Service) Reissue(ctx context.Context, refreshToken string, now time.Time) (Reissued, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > 4096 {
		return Reissued{}, ErrSessionNotFound
	}

	refClaims, err := s.codec.Verify(refreshToken, KeyClassRefresh, now)
	if err != nil {
		return Reissued{}, err
	}

	// Server-authoritative check: a cryptographically valid refresh
	// token whose record was deleted is a revoked session.
	rec, err := s.store.FindByToken(ctx, refreshToken)
	if err != nil {
		return Reissued{}, err
	}
	if !rec.Live(now) {
		return Reissued{}, ErrSessionExpired
	}
	if rec.IdentityID != refClaims.IdentityID {
		return Reissued{}, ErrTokenInvalid
	}

	p, err := s.profiles.GetByID(ctx, rec.IdentityID)
	if err != nil {
		return Reissued{}, err
	}
	claims := claimsFor(p)

	accessToken, accessExp, err := s.codec.Issue(claims, KeyClassAccess, now)
	if err != nil {
		return Reissued{}, err
	}

	s.log.LogAttrs(ctx, slog.LevelDebug, "auth.reissue.ok",
		slog.String("identity_id", p.ID),
	)

	return Reissued{
		AccessToken: accessToken,
		AccessExp:   accessExp,
		Claims:      claims,
	}, nil
}

// Logout revokes the session behind one refresh token. It is
// idempotent: an unknown, expired, or tampered token still succeeds.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > 4096 {
		return nil
	}
	return s.store.DeleteByToken(ctx, refreshToken)
}

// LogoutAll revokes every session for one identity.
func (s *Service) LogoutAll(ctx context.Context, identityID string) error {
	if err := s.store.DeleteAllForIdentity(ctx, identityID); err != nil {
		return err
	}
	s.log.LogAttrs(ctx, slog.LevelInfo, "auth.logout_all.ok",
		slog.String("identity_id", identityID),
	)
	return nil
}

// ChangePassword swaps the stored secret after verifying the current
// one, then revokes every session for the identity. Outstanding access
// tokens ride out their short lifetime; refresh tokens die here.
func (s *Service) ChangePassword(ctx context.Context, identityID, current, next string) error {
	p, err := s.profiles.GetByID(ctx, identityID)
	if err != nil {
		return err
	}

	ok, err := identity.VerifyPassword(current, p.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadCredentials
	}

	hash, err := identity.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.profiles.UpdatePasswordHash(ctx, identityID, hash); err != nil {
		return err
	}

	if err := s.store.DeleteAllForIdentity(ctx, identityID); err != nil {
		return fmt.Errorf("revoke sessions after password change: %w", err)
	}

	s.log.LogAttrs(ctx, slog.LevelInfo, "auth.password.changed",
		slog.String("identity_id", identityID),
	)
	return nil
}

// SweepExpired removes session records whose refresh tokens can no
// longer verify. Intended for a periodic background pass.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, now)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.LogAttrs(ctx, slog.LevelWarn, "auth.sweep.fail",
			slog.String("error", err.Error()),
		)
	}
	if n > 0 {
		s.log.LogAttrs(ctx, slog.LevelDebug, "auth.sweep.ok",
			slog.Int64("removed", n),
		)
	}
	return n, err
}
