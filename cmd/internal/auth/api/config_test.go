package authapi

import (
	"net/http"
	"testing"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("RELAY_AUTH_REFRESH_COOKIE_NAME", "")
	t.Setenv("RELAY_AUTH_COOKIE_SAMESITE", "")

	cfg := LoadConfigFromEnv()
	if cfg.RefreshCookieName != "refresh_token" {
		t.Fatalf("cookie name = %q", cfg.RefreshCookieName)
	}
	if cfg.CookiePath != "/" {
		t.Fatalf("cookie path = %q", cfg.CookiePath)
	}
	if cfg.CookieSameSite != http.SameSiteLaxMode {
		t.Fatalf("samesite = %v, want Lax", cfg.CookieSameSite)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("max body bytes = %d", cfg.MaxBodyBytes)
	}
}

func TestParseSameSite(t *testing.T) {
	cases := map[string]http.SameSite{
		"":        http.SameSiteLaxMode,
		"lax":     http.SameSiteLaxMode,
		"Strict":  http.SameSiteStrictMode,
		"none":    http.SameSiteNoneMode,
		"garbage": http.SameSiteLaxMode,
	}
	for in, want := range cases {
		if got := parseSameSite(in); got != want {
			t.Fatalf("parseSameSite(%q) = %v, want %v", in, got, want)
		}
	}
}
