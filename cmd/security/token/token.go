package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

// HMACEnvKey is the env var name for the refresh-digest HMAC secret.
// #nosec G101 -- not a credential; it's an environment variable name.
const HMACEnvKey = "RELAY_TOKEN_HMAC_KEY"

// HashRefreshTokenHex digests a refresh token for storage keying.
// Uses HMAC-SHA256 when RELAY_TOKEN_HMAC_KEY is set, SHA-256 otherwise.
func HashRefreshTokenHex(tok string) string {
	key := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if key == "" {
		sum := sha256.Sum256([]byte(tok))
		return hex.EncodeToString(sum[:])
	}
	m := hmac.New(sha256.New, []byte(key))
	_, _ = m.Write([]byte(tok))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes, enforcing a minimum
// byte length. Used by startup policy checks only; hashing reads the env on
// each call so tests can toggle modes with t.Setenv.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// HMACEnabled reports whether a non-blank HMAC key is configured.
func HMACEnabled() bool {
	return strings.TrimSpace(os.Getenv(HMACEnvKey)) != ""
}
