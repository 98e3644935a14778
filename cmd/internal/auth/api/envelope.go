package authapi

import (
	"context"
	"encoding/json"
	"net/http"

	"relay/cmd/internal/auth/session"
)

type contextKey int

const (
	claimsKey contextKey = iota
	rotationKey
)

// rotation is what the gate accumulates when it re-derives an access
// token mid-request. It is merged into the handler's response body in
// a single final serialization; nothing downstream mutates it.
type rotation struct {
	NewAccessToken string `json:"newAccessToken"`
	IdentityID     string `json:"identityId"`
	Handle         string `json:"handle"`
	Name           string `json:"name"`
	AvatarRef      string `json:"avatarRef,omitempty"`
}

// ClaimsFromContext returns the verified identity claims the gate
// attached to the request.
func ClaimsFromContext(ctx context.Context) (session.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(session.Claims)
	return c, ok
}

func withClaims(ctx context.Context, c session.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func withRotation(ctx context.Context, rot rotation) context.Context {
	return context.WithValue(ctx, rotationKey, rot)
}

func rotationFromContext(ctx context.Context) (rotation, bool) {
	rot, ok := ctx.Value(rotationKey).(rotation)
	return rot, ok
}

// writeEnveloped serializes v, merging any pending rotation fields into
// the top-level JSON object. Handlers behind the gate use this instead
// of writeJSON so a mid-request re-derivation reaches the client.
func writeEnveloped(w http.ResponseWriter, r *http.Request, status int, v any) {
	rot, ok := rotationFromContext(r.Context())
	if !ok {
		writeJSON(w, status, v)
		return
	}

	merged := map[string]any{}
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		if err := json.Unmarshal(raw, &merged); err != nil {
			// Non-object body cannot carry the merged token; the body wins
			// and the client falls back to a full refresh on the next 401.
			writeJSON(w, status, v)
			return
		}
	}

	merged["newAccessToken"] = rot.NewAccessToken
	merged["identityId"] = rot.IdentityID
	merged["handle"] = rot.Handle
	merged["name"] = rot.Name
	if rot.AvatarRef != "" {
		merged["avatarRef"] = rot.AvatarRef
	}

	writeJSON(w, status, merged)
}
