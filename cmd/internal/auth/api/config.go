package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and cookie transport defaults.
type Config struct {
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	TrustProxy   bool
	MaxBodyBytes int64

	// Login throttle. The IP cap is a flat window; the per-handle caps
	// escalate through three lockout tiers.
	LoginIPMax        int
	LoginIPWindow     time.Duration
	LoginHandleWindow time.Duration

	LockoutShortThreshold  int
	LockoutShortDuration   time.Duration
	LockoutLongThreshold   int
	LockoutLongDuration    time.Duration
	LockoutSevereThreshold int
	LockoutSevereDuration  time.Duration
}

// LoadConfigFromEnv loads auth API config from environment variables
// with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		RefreshCookieName: envString("RELAY_AUTH_REFRESH_COOKIE_NAME", "refresh_token"),
		CookiePath:        envString("RELAY_AUTH_COOKIE_PATH", "/"),
		CookieDomain:      envString("RELAY_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:      envBool("RELAY_AUTH_COOKIE_SECURE", true),
		CookieSameSite:    parseSameSite(os.Getenv("RELAY_AUTH_COOKIE_SAMESITE")),
		TrustProxy:        envBool("RELAY_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:      envInt64("RELAY_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB

		LoginIPMax:        envInt("RELAY_AUTH_LOGIN_IP_MAX", 20),
		LoginIPWindow:     envDuration("RELAY_AUTH_LOGIN_IP_WINDOW", 5*time.Minute),
		LoginHandleWindow: envDuration("RELAY_AUTH_LOGIN_HANDLE_WINDOW", 15*time.Minute),

		LockoutShortThreshold:  envInt("RELAY_AUTH_LOGIN_LOCKOUT_SHORT_THRESHOLD", 5),
		LockoutShortDuration:   envDuration("RELAY_AUTH_LOGIN_LOCKOUT_SHORT_DURATION", 5*time.Minute),
		LockoutLongThreshold:   envInt("RELAY_AUTH_LOGIN_LOCKOUT_LONG_THRESHOLD", 10),
		LockoutLongDuration:    envDuration("RELAY_AUTH_LOGIN_LOCKOUT_LONG_DURATION", 30*time.Minute),
		LockoutSevereThreshold: envInt("RELAY_AUTH_LOGIN_LOCKOUT_SEVERE_THRESHOLD", 20),
		LockoutSevereDuration:  envDuration("RELAY_AUTH_LOGIN_LOCKOUT_SEVERE_DURATION", 2*time.Hour),
	}

	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = "refresh_token"
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	return cfg
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "", "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteLaxMode
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
