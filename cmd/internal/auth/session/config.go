package session

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// EnvAccessSecret names the signing secret for access tokens.
	EnvAccessSecret = "RELAY_ACCESS_TOKEN_SECRET"
	// EnvRefreshSecret names the signing secret for refresh tokens.
	EnvRefreshSecret = "RELAY_REFRESH_TOKEN_SECRET"

	envIssuer     = "RELAY_AUTH_ISSUER"
	envAccessTTL  = "RELAY_AUTH_ACCESS_TTL"
	envRefreshTTL = "RELAY_AUTH_REFRESH_TTL"
	envClockSkew  = "RELAY_AUTH_CLOCK_SKEW"

	minSecretBytes = 32
)

// Config holds the token issuance policy for both key classes.
type Config struct {
	Issuer string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ClockSkew  time.Duration

	AccessSecret  []byte
	RefreshSecret []byte
}

// DefaultConfig returns the policy defaults without secrets. Secrets
// carry no default: a Config is unusable until both are set.
func DefaultConfig() Config {
	return Config{
		Issuer:     "relay",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 30 * time.Minute,
		ClockSkew:  30 * time.Second,
	}
}

// LoadConfigFromEnv reads the token policy from the environment.
// Both secrets are required and must differ; sharing a secret across
// key classes would let one class impersonate the other.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv(envIssuer)); v != "" {
		cfg.Issuer = v
	}

	var err error
	if cfg.AccessTTL, err = envDuration(envAccessTTL, cfg.AccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = envDuration(envRefreshTTL, cfg.RefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.ClockSkew, err = envDuration(envClockSkew, cfg.ClockSkew); err != nil {
		return Config{}, err
	}

	cfg.AccessSecret = []byte(os.Getenv(EnvAccessSecret))
	cfg.RefreshSecret = []byte(os.Getenv(EnvRefreshSecret))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("%w: issuer must not be empty", ErrConfig)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrConfig)
	}
	if c.RefreshTTL <= c.AccessTTL {
		return fmt.Errorf("%w: refresh lifetime must exceed access lifetime", ErrConfig)
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("%w: clock skew must not be negative", ErrConfig)
	}
	if len(c.AccessSecret) < minSecretBytes {
		return fmt.Errorf("%w: %s must be at least %d bytes", ErrConfig, EnvAccessSecret, minSecretBytes)
	}
	if len(c.RefreshSecret) < minSecretBytes {
		return fmt.Errorf("%w: %s must be at least %d bytes", ErrConfig, EnvRefreshSecret, minSecretBytes)
	}
	if string(c.AccessSecret) == string(c.RefreshSecret) {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrConfig)
	}
	return nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive duration, got %q", ErrConfig, key, raw)
	}
	return d, nil
}
