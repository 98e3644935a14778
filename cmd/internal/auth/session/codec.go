package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the identity envelope embedded in both token classes and
// propagated to downstream handlers.
type Claims struct {
	IdentityID string
	Handle     string
	Name       string
	AvatarRef  string
}

// KeyClass selects which signing secret and TTL a token uses.
type KeyClass string

const (
	// KeyClassAccess is the short-lived, per-request credential class.
	KeyClassAccess KeyClass = "access"
	// KeyClassRefresh is the long-lived, session-backed credential class.
	KeyClassRefresh KeyClass = "refresh"
)

// Codec signs and verifies compact expiring tokens carrying Claims.
// Verify distinguishes exactly two failures: ErrTokenExpired (recoverable)
// and ErrTokenInvalid (terminal).
type Codec interface {
	Issue(claims Claims, class KeyClass, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, class KeyClass, now time.Time) (Claims, error)
}

type tokenClaims struct {
	Handle    string `json:"handle"`
	Name      string `json:"name"`
	AvatarRef string `json:"avatar_ref,omitempty"`
	jwt.RegisteredClaims
}

type hmacCodec struct {
	issuer string
	leeway time.Duration

	secrets map[KeyClass][]byte
	ttls    map[KeyClass]time.Duration
}

// NewHMACCodec builds a Codec over two independent HS256 secrets.
func NewHMACCodec(cfg Config) (Codec, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &hmacCodec{
		issuer: cfg.Issuer,
		leeway: cfg.ClockSkew,
		secrets: map[KeyClass][]byte{
			KeyClassAccess:  cfg.AccessSecret,
			KeyClassRefresh: cfg.RefreshSecret,
		},
		ttls: map[KeyClass]time.Duration{
			KeyClassAccess:  cfg.AccessTTL,
			KeyClassRefresh: cfg.RefreshTTL,
		},
	}, nil
}

func (c *hmacCodec) Issue(claims Claims, class KeyClass, now time.Time) (string, time.Time, error) {
	secret, ok := c.secrets[class]
	if !ok {
		return "", time.Time{}, ErrConfig
	}

	exp := now.Add(c.ttls[class])

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Handle:    claims.Handle,
		Name:      claims.Name,
		AvatarRef: claims.AvatarRef,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.IdentityID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (c *hmacCodec) Verify(token string, class KeyClass, now time.Time) (Claims, error) {
	secret, ok := c.secrets[class]
	if !ok {
		return Claims{}, ErrConfig
	}

	parsed, err := jwt.ParseWithClaims(
		token,
		&tokenClaims{},
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, mapVerifyError(err)
	}

	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || tc.Subject == "" {
		return Claims{}, ErrTokenInvalid
	}

	return Claims{
		IdentityID: tc.Subject,
		Handle:     tc.Handle,
		Name:       tc.Name,
		AvatarRef:  tc.AvatarRef,
	}, nil
}

func errorsIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// mapVerifyError collapses jwt/v5's joined errors onto the two-sentinel
// contract. Invalid takes precedence: a token that is both tampered and
// expired must never look recoverable.
func mapVerifyError(err error) error {
	switch {
	case errorsIsAny(err, jwt.ErrTokenSignatureInvalid, jwt.ErrTokenMalformed, jwt.ErrTokenInvalidIssuer, jwt.ErrTokenUnverifiable):
		return ErrTokenInvalid
	case errorsIsAny(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
