package session

import "errors"

var (
	// ErrTokenExpired is returned when a token's signature is valid but its
	// time window has elapsed. This is the only recoverable verification
	// failure; it is what makes rotation legal.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for a bad signature, malformed structure,
	// or wrong key class. It signals tampering and must never trigger
	// rotation.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrBadCredentials is returned when a login secret does not match the
	// stored hash.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrSessionNotFound is returned when a refresh token has no backing
	// session record (revoked, logged out, or never issued).
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the backing session record exists
	// but its expiry has passed.
	ErrSessionExpired = errors.New("session expired")

	// ErrStoreUnavailable wraps infrastructure failures from a session
	// store backend.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
