package password

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds the plaintext secret itself.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns a baseline suitable for interactive chat logins.
// Parallelism is CPU-aware but clamped so containers stay predictable.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads < 1 {
		threads = 1
	} else if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from environment variables, starting from defaults.
//
// Env surface:
//   - RELAY_SECRET_MIN_LEN
//   - RELAY_SECRET_MAX_LEN
//   - RELAY_ARGON2_MEMORY_KIB
//   - RELAY_ARGON2_ITERATIONS
//   - RELAY_ARGON2_PARALLELISM
//   - RELAY_ARGON2_SALT_LEN
//   - RELAY_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	var err error
	if cfg.Policy.MinLength, err = envRangedInt("RELAY_SECRET_MIN_LEN", cfg.Policy.MinLength, 1, 1024); err != nil {
		return Config{}, err
	}
	if cfg.Policy.MaxLength, err = envRangedInt("RELAY_SECRET_MAX_LEN", cfg.Policy.MaxLength, 1, 4096); err != nil {
		return Config{}, err
	}

	if cfg.Params.MemoryKiB, err = envRangedUint32("RELAY_ARGON2_MEMORY_KIB", cfg.Params.MemoryKiB, 8*1024, 1024*1024); err != nil {
		return Config{}, err
	}
	if cfg.Params.Iterations, err = envRangedUint32("RELAY_ARGON2_ITERATIONS", cfg.Params.Iterations, 1, 20); err != nil {
		return Config{}, err
	}

	par, err := envRangedUint32("RELAY_ARGON2_PARALLELISM", uint32(cfg.Params.Parallelism), 1, 64)
	if err != nil {
		return Config{}, err
	}
	cfg.Params.Parallelism = uint8(par) // #nosec G115 -- bounded to [1..64] above.

	if cfg.Params.SaltLength, err = envRangedUint32("RELAY_ARGON2_SALT_LEN", cfg.Params.SaltLength, 8, 64); err != nil {
		return Config{}, err
	}
	if cfg.Params.KeyLength, err = envRangedUint32("RELAY_ARGON2_KEY_LEN", cfg.Params.KeyLength, 16, 64); err != nil {
		return Config{}, err
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf("secret policy invalid: min_len(%d) > max_len(%d)", cfg.Policy.MinLength, cfg.Policy.MaxLength)
	}

	return cfg, nil
}

func envRangedInt(key string, def, minVal, maxVal int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer", key)
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("%s: out of range [%d..%d]", key, minVal, maxVal)
	}
	return n, nil
}

func envRangedUint32(key string, def, minVal, maxVal uint32) (uint32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	u64, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: not an unsigned integer", key)
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("%s: out of range [%d..%d]", key, minVal, maxVal)
	}
	return u, nil
}
