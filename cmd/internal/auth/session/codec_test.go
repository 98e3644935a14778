package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testCodec(t *testing.T) Codec {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.RefreshSecret = []byte(strings.Repeat("r", 32))

	c, err := NewHMACCodec(cfg)
	if err != nil {
		t.Fatalf("NewHMACCodec: %v", err)
	}
	return c
}

func TestCodec_IssueAndVerify(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	in := Claims{IdentityID: "01JABCDEF0123456789ABCDEFG", Handle: "ada", Name: "Ada L", AvatarRef: "avatars/ada.png"}

	tok, exp, err := c.Issue(in, KeyClassAccess, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected exp after now")
	}

	out, err := c.Verify(tok, KeyClassAccess, now.Add(time.Second))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out != in {
		t.Fatalf("claims mismatch: got %+v want %+v", out, in)
	}
}

func TestCodec_ExpiredToken(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	tok, _, err := c.Issue(Claims{IdentityID: "id-1", Handle: "ada"}, KeyClassAccess, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = c.Verify(tok, KeyClassAccess, now.Add(6*time.Minute))
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestCodec_LeewayCoversSmallSkew(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	tok, exp, err := c.Issue(Claims{IdentityID: "id-1", Handle: "ada"}, KeyClassAccess, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := c.Verify(tok, KeyClassAccess, exp.Add(10*time.Second)); err != nil {
		t.Fatalf("expected skew within leeway to verify, got %v", err)
	}
}

func TestCodec_TamperedToken(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	tok, _, err := c.Issue(Claims{IdentityID: "id-1", Handle: "ada"}, KeyClassAccess, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := tok[:len(tok)-4] + "AAAA"
	_, err = c.Verify(tampered, KeyClassAccess, now)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestCodec_Garbage(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := c.Verify(tok, KeyClassAccess, now); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %q: expected ErrTokenInvalid, got %v", tok, err)
		}
	}
}

// A token signed for one class must not verify under the other, and the
// failure must be terminal, not recoverable.
func TestCodec_ClassConfusion(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	access, _, err := c.Issue(Claims{IdentityID: "id-1", Handle: "ada"}, KeyClassAccess, now)
	if err != nil {
		t.Fatalf("Issue access: %v", err)
	}
	refresh, _, err := c.Issue(Claims{IdentityID: "id-1", Handle: "ada"}, KeyClassRefresh, now)
	if err != nil {
		t.Fatalf("Issue refresh: %v", err)
	}

	if _, err := c.Verify(access, KeyClassRefresh, now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access token under refresh class: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := c.Verify(refresh, KeyClassAccess, now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token under access class: expected ErrTokenInvalid, got %v", err)
	}
}

// Invalid must win over Expired: an expired token presented under the
// wrong class is tampered first, recoverable never.
func TestCodec_InvalidBeatsExpired(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	access, _, err := c.Issue(Claims{IdentityID: "id-1", Handle: "ada"}, KeyClassAccess, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = c.Verify(access, KeyClassRefresh, now.Add(2*time.Hour))
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestCodec_WrongIssuer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Issuer = "other"
	cfg.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.RefreshSecret = []byte(strings.Repeat("r", 32))
	other, err := NewHMACCodec(cfg)
	if err != nil {
		t.Fatalf("NewHMACCodec: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := other.Issue(Claims{IdentityID: "id-1"}, KeyClassAccess, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	c := testCodec(t)
	if _, err := c.Verify(tok, KeyClassAccess, now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign issuer, got %v", err)
	}
}
