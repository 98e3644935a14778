package authapi

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// Audit events are structured log records with stable action names, so
// operators can alert on them without a dedicated audit table. IPs and
// user agents ride along; secrets and tokens never do.

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua, handle, reason string) {
	h.audit(ctx, "auth.login.failed", ip, ua,
		slog.String("handle", handle),
		slog.String("reason", reason),
	)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, ip net.IP, ua, identityID string) {
	h.audit(ctx, "auth.login.success", ip, ua,
		slog.String("identity_id", identityID),
	)
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip net.IP, ua, handle string, retryAfter time.Duration) {
	h.audit(ctx, "auth.login.rate_limited", ip, ua,
		slog.String("handle", handle),
		slog.Int64("retry_after_s", int64(retryAfter.Seconds())),
	)
}

func (h *Handler) auditLogout(ctx context.Context, ip net.IP, ua string) {
	h.audit(ctx, "auth.logout", ip, ua)
}

func (h *Handler) auditLogoutAll(ctx context.Context, ip net.IP, ua, identityID string) {
	h.audit(ctx, "auth.logout_all", ip, ua,
		slog.String("identity_id", identityID),
	)
}

func (h *Handler) auditPasswordChanged(ctx context.Context, ip net.IP, ua, identityID string) {
	h.audit(ctx, "auth.password.changed", ip, ua,
		slog.String("identity_id", identityID),
	)
}

func (h *Handler) audit(ctx context.Context, action string, ip net.IP, ua string, attrs ...slog.Attr) {
	base := make([]slog.Attr, 0, len(attrs)+2)
	if ip != nil {
		base = append(base, slog.String("ip", ip.String()))
	}
	if ua != "" {
		base = append(base, slog.String("user_agent", ua))
	}
	base = append(base, attrs...)
	h.log.LogAttrs(ctx, slog.LevelInfo, action, base...)
}
