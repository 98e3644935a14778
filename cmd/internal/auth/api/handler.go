package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"relay/cmd/identity"
	"relay/cmd/internal/auth/session"
)

// Handler wires HTTP auth endpoints to the identity store and session
// authority.
type Handler struct {
	log *slog.Logger
	cfg Config

	profiles identity.Store
	sessions *session.Service
	throttle *loginThrottle

	dummyHash string
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, profiles identity.Store, sessions *session.Service) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if profiles == nil {
		return nil, errors.New("auth: nil profile store")
	}
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		profiles: profiles,
		sessions: sessions,
		throttle: newLoginThrottle(cfg),
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := identity.HashPassword("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.Handle("/auth/logout_all", h.RequireAuth(http.HandlerFunc(h.handleLogoutAll)))
	mux.Handle("/auth/refresh", h.RequireAuth(http.HandlerFunc(h.handleRefresh)))
	mux.Handle("/auth/password", h.RequireAuth(http.HandlerFunc(h.handleChangePassword)))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if strings.TrimSpace(req.Handle) == "" ||
		strings.TrimSpace(req.Name) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Secret) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "handle, name, email and secret are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	p, err := h.profiles.CreateProfile(ctx, identity.CreateProfileInput{
		Handle:    req.Handle,
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Secret,
		AvatarRef: req.AvatarRef,
		Now:       now,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "conflict", "handle or email already exists")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
		default:
			h.log.Error("auth.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.log.Info("auth.register.ok", "identity_id", p.ID)
	writeJSON(w, http.StatusCreated, toIdentityResponse(p.ID, p.Handle, p.Name, p.AvatarRef))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	handle := strings.TrimSpace(req.Handle)
	secret := strings.TrimSpace(req.Secret)
	if handle == "" || secret == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "handle and secret are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := r.UserAgent()
	handleNorm := identity.NormalizeHandle(handle)

	if blocked, retryAfter := h.throttle.check(ip, handleNorm, now); blocked {
		h.auditLoginRateLimited(ctx, ip, ua, handleNorm, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	iss, err := h.sessions.Login(ctx, handle, secret, now)
	if err != nil {
		switch {
		case identity.IsNotFound(err):
			// Timing resistance: perform a dummy verify when the handle
			// is unknown.
			if h.dummyHash != "" {
				_, _ = identity.VerifyPassword(secret, h.dummyHash)
			}
			h.throttle.recordFailure(ip, handleNorm, now)
			h.auditLoginFailed(ctx, ip, ua, handleNorm, "not_found")
			writeError(w, http.StatusNotFound, "not_found", "no account for that handle")
		case errors.Is(err, session.ErrBadCredentials):
			h.throttle.recordFailure(ip, handleNorm, now)
			h.auditLoginFailed(ctx, ip, ua, handleNorm, "bad_secret")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		default:
			h.log.Error("auth.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditLoginSuccess(ctx, ip, ua, iss.Claims.IdentityID)
	h.setRefreshCookie(w, iss.RefreshToken, now, iss.RefreshExp)
	writeJSON(w, http.StatusOK, loginResponse{
		identityResponse: identityResponse{
			IdentityID: iss.Claims.IdentityID,
			Handle:     iss.Claims.Handle,
			Name:       iss.Claims.Name,
			AvatarRef:  iss.Claims.AvatarRef,
		},
		AccessToken: iss.AccessToken,
	})
}

// handleLogout revokes the session behind the refresh cookie. It always
// succeeds: an absent, expired, or foreign cookie is already logged out.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if refresh, ok := h.refreshTokenFromCookie(r); ok {
		if err := h.sessions.Logout(ctx, refresh); err != nil {
			h.log.Error("auth.logout.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
	}

	h.auditLogout(ctx, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, statusResponse{OK: true})
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}

	if err := h.sessions.LogoutAll(r.Context(), claims.IdentityID); err != nil {
		h.log.Error("auth.logout_all.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLogoutAll(r.Context(), clientIP(r, h.cfg.TrustProxy), r.UserAgent(), claims.IdentityID)
	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, statusResponse{OK: true})
}

// handleRefresh echoes the authenticated identity. Clients hit it on
// reload with whatever access token they still hold; when that token
// has expired the gate re-derives one and the envelope carries it back.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}

	writeEnveloped(w, r, http.StatusOK, identityResponse{
		IdentityID: claims.IdentityID,
		Handle:     claims.Handle,
		Name:       claims.Name,
		AvatarRef:  claims.AvatarRef,
	})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.CurrentSecret) == "" || strings.TrimSpace(req.NextSecret) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "currentSecret and nextSecret are required")
		return
	}

	err := h.sessions.ChangePassword(r.Context(), claims.IdentityID, req.CurrentSecret, req.NextSecret)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrBadCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "current secret is wrong")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
		default:
			h.log.Error("auth.password.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditPasswordChanged(r.Context(), clientIP(r, h.cfg.TrustProxy), r.UserAgent(), claims.IdentityID)

	// Every session died with the old secret; the cookie is dead weight.
	h.clearRefreshCookie(w)
	writeEnveloped(w, r, http.StatusOK, statusResponse{OK: true})
}

type statusResponse struct {
	OK bool `json:"ok"`
}

func toIdentityResponse(id, handle, name string, avatarRef *string) identityResponse {
	resp := identityResponse{IdentityID: id, Handle: handle, Name: name}
	if avatarRef != nil {
		resp.AvatarRef = *avatarRef
	}
	return resp
}

func (h *Handler) logReissueFailure(ctx context.Context, err error) {
	if isCredentialFailure(err) {
		h.log.LogAttrs(ctx, slog.LevelDebug, "auth.gate.reissue.denied",
			slog.String("reason", err.Error()),
		)
		return
	}
	h.log.LogAttrs(ctx, slog.LevelError, "auth.gate.reissue.fail",
		slog.String("err", err.Error()),
	)
}
