package token

import (
	"errors"
	"strings"
	"testing"
)

func TestHashRefreshTokenHex_ShaFallback(t *testing.T) {
	t.Setenv(HMACEnvKey, "")

	a := HashRefreshTokenHex("refresh-a")
	b := HashRefreshTokenHex("refresh-a")
	c := HashRefreshTokenHex("refresh-b")

	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a != b {
		t.Fatalf("digest must be deterministic")
	}
	if a == c {
		t.Fatalf("distinct tokens must not collide trivially")
	}
}

func TestHashRefreshTokenHex_HMACModeChangesDigest(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	plain := HashRefreshTokenHex("refresh-a")

	t.Setenv(HMACEnvKey, strings.Repeat("k", 32))
	keyed := HashRefreshTokenHex("refresh-a")

	if plain == keyed {
		t.Fatalf("HMAC digest must differ from plain SHA-256")
	}
	if len(keyed) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(keyed))
	}
}

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, strings.Repeat("k", 32))
	key, err := HMACKeyFromEnv(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("key length mismatch: %d", len(key))
	}
	if !HMACEnabled() {
		t.Fatalf("HMACEnabled must report true")
	}
}
