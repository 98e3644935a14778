package identity

import (
	"relay/cmd/security/password"
)

// HashPassword returns a PHC-style Argon2id hash for a new profile secret.
// Policy and cost come from security/password (env-tunable); identity keeps
// a floor of 8 characters regardless of env.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return "", err
	}
	if cfg.Policy.MinLength < 8 {
		cfg.Policy.MinLength = 8
	}
	return cfg.Hash(plain)
}

// VerifyPassword checks a plaintext secret against a stored PHC hash.
// A wrong secret is (false, nil); only a malformed stored hash errors.
func VerifyPassword(plain, encodedPHC string) (bool, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// Invalid env must not turn into a verification bypass; fall back
		// to defaults, which only affect anti-DoS verify bounds.
		cfg = password.DefaultConfig()
	}
	return cfg.Verify(encodedPHC, plain)
}
