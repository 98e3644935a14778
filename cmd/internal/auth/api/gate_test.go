package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"relay/cmd/identity"
	"relay/cmd/internal/auth/session"
)

func testHandler(t *testing.T) (*Handler, *session.Service, identity.Profile) {
	t.Helper()
	t.Setenv("RELAY_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("RELAY_ARGON2_ITERATIONS", "1")

	sessCfg := session.DefaultConfig()
	sessCfg.AccessSecret = []byte(strings.Repeat("a", 32))
	sessCfg.RefreshSecret = []byte(strings.Repeat("r", 32))

	codec, err := session.NewHMACCodec(sessCfg)
	if err != nil {
		t.Fatalf("NewHMACCodec: %v", err)
	}

	profiles := identity.NewMemoryStore()
	p, err := profiles.CreateProfile(context.Background(), identity.CreateProfileInput{
		Handle:   "ada",
		Name:     "Ada L",
		Email:    "ada@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	svc := session.NewService(sessCfg, codec, session.NewMemoryStore(), profiles, nil)

	cfg := LoadConfigFromEnv()
	cfg.CookieSecure = false

	h, err := NewHandler(nil, cfg, profiles, svc)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, svc, p
}

func gatedEcho(h *Handler) http.Handler {
	return h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		writeEnveloped(w, r, http.StatusOK, map[string]any{"echoedHandle": claims.Handle})
	}))
}

func loginFor(t *testing.T, svc *session.Service, now time.Time) session.Issued {
	t.Helper()
	iss, err := svc.Login(context.Background(), "ada", "correct horse", now)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return iss
}

func refreshCookie(h *Handler, value string) *http.Cookie {
	return &http.Cookie{Name: h.cfg.RefreshCookieName, Value: value}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestGate_ValidAccessToken(t *testing.T) {
	h, svc, _ := testHandler(t)
	now := time.Now().UTC()
	iss := loginFor(t, svc, now)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+iss.AccessToken)

	rec := httptest.NewRecorder()
	gatedEcho(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["echoedHandle"] != "ada" {
		t.Fatalf("claims not attached: %v", body)
	}
	if _, ok := body["newAccessToken"]; ok {
		t.Fatalf("unexpected rotation on valid token: %v", body)
	}
}

func TestGate_MissingToken(t *testing.T) {
	h, svc, _ := testHandler(t)
	iss := loginFor(t, svc, time.Now().UTC())

	// Even a valid refresh cookie does not help without an access token.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(refreshCookie(h, iss.RefreshToken))

	rec := httptest.NewRecorder()
	gatedEcho(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGate_TamperedTokenNeverRotates(t *testing.T) {
	h, svc, _ := testHandler(t)
	now := time.Now().UTC()
	iss := loginFor(t, svc, now)

	tampered := iss.AccessToken[:len(iss.AccessToken)-4] + "AAAA"

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tampered)
	req.AddCookie(refreshCookie(h, iss.RefreshToken))

	rec := httptest.NewRecorder()
	gatedEcho(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// The session must survive: tampering is rejected, not revoked.
	later := now.Add(time.Minute)
	if _, err := svc.Reissue(context.Background(), iss.RefreshToken, later); err != nil {
		t.Fatalf("session should still be live after tamper rejection: %v", err)
	}
}

// An expired access token riding a live session comes back with a fresh
// one merged into the response.
func TestGate_ExpiredTokenRotates(t *testing.T) {
	h, svc, _ := testHandler(t)
	now := time.Now().UTC()

	// Issue in the past so the access token is expired but the refresh
	// token is still inside its lifetime.
	iss := loginFor(t, svc, now.Add(-10*time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+iss.AccessToken)
	req.AddCookie(refreshCookie(h, iss.RefreshToken))

	rec := httptest.NewRecorder()
	gatedEcho(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["echoedHandle"] != "ada" {
		t.Fatalf("claims not attached after rotation: %v", body)
	}

	newTok, _ := body["newAccessToken"].(string)
	if newTok == "" {
		t.Fatalf("expected newAccessToken in response: %v", body)
	}
	if body["handle"] != "ada" || body["identityId"] == "" {
		t.Fatalf("expected identity fields with rotation: %v", body)
	}
	if _, err := svc.VerifyAccess(newTok, time.Now().UTC()); err != nil {
		t.Fatalf("re-derived token does not verify: %v", err)
	}
}

func TestGate_ExpiredTokenWithoutCookie(t *testing.T) {
	h, svc, _ := testHandler(t)
	now := time.Now().UTC()
	iss := loginFor(t, svc, now.Add(-10*time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+iss.AccessToken)

	rec := httptest.NewRecorder()
	gatedEcho(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// A revoked session must not re-derive, no matter how valid the refresh
// token still looks cryptographically.
func TestGate_RevokedSessionDoesNotRotate(t *testing.T) {
	h, svc, _ := testHandler(t)
	now := time.Now().UTC()
	iss := loginFor(t, svc, now.Add(-10*time.Minute))

	if err := svc.Logout(context.Background(), iss.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+iss.AccessToken)
	req.AddCookie(refreshCookie(h, iss.RefreshToken))

	rec := httptest.NewRecorder()
	gatedEcho(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGate_ExpiredRefreshToken(t *testing.T) {
	h, svc, _ := testHandler(t)
	now := time.Now().UTC()

	// Both token classes are past their lifetimes.
	iss := loginFor(t, svc, now.Add(-45*time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+iss.AccessToken)
	req.AddCookie(refreshCookie(h, iss.RefreshToken))

	rec := httptest.NewRecorder()
	gatedEcho(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// Concurrent requests with the same expired access token all rotate
// successfully; re-derivation is read-only on the session store.
func TestGate_ConcurrentRotation(t *testing.T) {
	h, svc, _ := testHandler(t)
	now := time.Now().UTC()
	iss := loginFor(t, svc, now.Add(-10*time.Minute))

	handler := gatedEcho(h)

	const workers = 8
	var wg sync.WaitGroup
	codes := make([]int, workers)
	tokens := make([]string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+iss.AccessToken)
			req.AddCookie(refreshCookie(h, iss.RefreshToken))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			codes[i] = rec.Code

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err == nil {
				tokens[i], _ = body["newAccessToken"].(string)
			}
		}(i)
	}
	wg.Wait()

	verifyAt := time.Now().UTC()
	for i := 0; i < workers; i++ {
		if codes[i] != http.StatusOK {
			t.Fatalf("worker %d: status = %d", i, codes[i])
		}
		if tokens[i] == "" {
			t.Fatalf("worker %d: missing newAccessToken", i)
		}
		if _, err := svc.VerifyAccess(tokens[i], verifyAt); err != nil {
			t.Fatalf("worker %d token invalid: %v", i, err)
		}
	}
}

func TestGate_UniformUnauthorizedBody(t *testing.T) {
	h, svc, _ := testHandler(t)
	now := time.Now().UTC()

	live := loginFor(t, svc, now)
	expired := loginFor(t, svc, now.Add(-45*time.Minute))
	tampered := live.AccessToken[:len(live.AccessToken)-4] + "AAAA"

	cases := []struct {
		name    string
		access  string
		refresh string
	}{
		{"missing token", "", ""},
		{"tampered token", tampered, live.RefreshToken},
		{"expired everything", expired.AccessToken, expired.RefreshToken},
		{"expired access no cookie", expired.AccessToken, ""},
	}

	var bodies []string
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if tc.access != "" {
			req.Header.Set("Authorization", "Bearer "+tc.access)
		}
		if tc.refresh != "" {
			req.AddCookie(refreshCookie(h, tc.refresh))
		}

		rec := httptest.NewRecorder()
		gatedEcho(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", tc.name, rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}

	// The failure surface never hints at which stage rejected the caller.
	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Fatalf("401 bodies differ: %q vs %q", bodies[0], bodies[i])
		}
	}
}

// outageStore accepts writes but fails reads the way an unreachable
// backend would.
type outageStore struct {
	session.Store
	findErr error
}

func (s outageStore) FindByToken(context.Context, string) (session.Session, error) {
	return session.Session{}, s.findErr
}

// A store outage during re-derivation must surface as an internal
// error, not as the uniform 401: the caller's credentials were never
// judged, so the client must not be forced back to login.
func TestGate_StoreOutageIsNotUnauthorized(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"wrapped sentinel", fmt.Errorf("%w: dial tcp 10.0.0.5:6379: connect: connection refused", session.ErrStoreUnavailable)},
		{"bare driver error", errors.New("conn closed")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("RELAY_ARGON2_MEMORY_KIB", "8192")
			t.Setenv("RELAY_ARGON2_ITERATIONS", "1")

			sessCfg := session.DefaultConfig()
			sessCfg.AccessSecret = []byte(strings.Repeat("a", 32))
			sessCfg.RefreshSecret = []byte(strings.Repeat("r", 32))

			codec, err := session.NewHMACCodec(sessCfg)
			if err != nil {
				t.Fatalf("NewHMACCodec: %v", err)
			}

			profiles := identity.NewMemoryStore()
			if _, err := profiles.CreateProfile(context.Background(), identity.CreateProfileInput{
				Handle:   "ada",
				Name:     "Ada L",
				Email:    "ada@example.com",
				Password: "correct horse",
			}); err != nil {
				t.Fatalf("CreateProfile: %v", err)
			}

			store := outageStore{Store: session.NewMemoryStore(), findErr: tc.err}
			svc := session.NewService(sessCfg, codec, store, profiles, nil)

			cfg := LoadConfigFromEnv()
			cfg.CookieSecure = false
			h, err := NewHandler(nil, cfg, profiles, svc)
			if err != nil {
				t.Fatalf("NewHandler: %v", err)
			}

			now := time.Now().UTC()
			iss := loginFor(t, svc, now.Add(-10*time.Minute))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+iss.AccessToken)
			req.AddCookie(refreshCookie(h, iss.RefreshToken))

			rec := httptest.NewRecorder()
			gatedEcho(h).ServeHTTP(rec, req)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500, body %s", rec.Code, rec.Body.String())
			}
			body := decodeBody(t, rec)
			errObj, _ := body["error"].(map[string]any)
			if errObj["code"] != "server_error" {
				t.Fatalf("expected server_error code, got %v", body)
			}
		})
	}
}
