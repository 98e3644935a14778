package authapi

import (
	"errors"
	"net/http"
	"time"

	"relay/cmd/identity"
	"relay/cmd/internal/auth/session"
)

// RequireAuth is the request gate. Every protected route sits behind it.
//
// The access token drives a four-way decision:
//
//   - missing: 401, no rotation attempt.
//   - valid: claims go on the context, the request proceeds.
//   - invalid: tampering, 401. The refresh cookie is never consulted.
//   - expired: the one recoverable state. The gate verifies the refresh
//     cookie, checks the session record is still live, re-reads the
//     profile, mints a fresh access token, and lets the request proceed
//     with the new token queued for the response envelope.
//
// Every failure surfaces as the same 401 so callers cannot probe which
// stage rejected them.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()

		access := bearerToken(r)
		if access == "" {
			h.unauthorized(w)
			return
		}

		claims, err := h.sessions.VerifyAccess(access, now)
		if err == nil {
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
			return
		}
		if !errors.Is(err, session.ErrTokenExpired) {
			h.unauthorized(w)
			return
		}

		refresh, ok := h.refreshTokenFromCookie(r)
		if !ok {
			h.unauthorized(w)
			return
		}

		re, err := h.sessions.Reissue(r.Context(), refresh, now)
		if err != nil {
			h.logReissueFailure(r.Context(), err)
			// A broken store must not masquerade as a revoked session:
			// only credential verdicts collapse into the uniform 401.
			if isCredentialFailure(err) {
				h.unauthorized(w)
			} else {
				writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			}
			return
		}

		ctx := withClaims(r.Context(), re.Claims)
		ctx = withRotation(ctx, rotation{
			NewAccessToken: re.AccessToken,
			IdentityID:     re.Claims.IdentityID,
			Handle:         re.Claims.Handle,
			Name:           re.Claims.Name,
			AvatarRef:      re.Claims.AvatarRef,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
}

// isCredentialFailure separates verdicts about the caller's credentials
// from infrastructure faults. Postgres errors arrive unwrapped, so the
// match is by inclusion: anything outside the known sentinels is
// treated as an internal failure.
func isCredentialFailure(err error) bool {
	return errors.Is(err, session.ErrTokenExpired) ||
		errors.Is(err, session.ErrTokenInvalid) ||
		errors.Is(err, session.ErrSessionNotFound) ||
		errors.Is(err, session.ErrSessionExpired) ||
		errors.Is(err, session.ErrBadCredentials) ||
		identity.IsNotFound(err)
}
