package authapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// loginThrottle tracks recent login failures per client IP and per
// target handle. Counting lives in process memory rather than in the
// session store: the store may be Redis or in-memory, and the throttle
// must keep working when it is down.
type loginThrottle struct {
	cfg Config

	mu       sync.Mutex
	byIP     map[string][]time.Time
	byHandle map[string][]time.Time
}

func newLoginThrottle(cfg Config) *loginThrottle {
	return &loginThrottle{
		cfg:      cfg,
		byIP:     make(map[string][]time.Time),
		byHandle: make(map[string][]time.Time),
	}
}

// check reports whether a login attempt is currently blocked, and for
// how long the caller should back off. The per-handle path uses
// progressive lockout thresholds; the per-IP path is a flat window cap.
func (t *loginThrottle) check(ip net.IP, handleNorm string, now time.Time) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ip != nil && t.cfg.LoginIPMax > 0 {
		n := countSince(t.byIP[ip.String()], now.Add(-t.cfg.LoginIPWindow))
		if n >= t.cfg.LoginIPMax {
			return true, t.cfg.LoginIPWindow
		}
	}

	if handleNorm != "" {
		n := countSince(t.byHandle[handleNorm], now.Add(-t.cfg.LoginHandleWindow))
		switch {
		case t.cfg.LockoutSevereThreshold > 0 && n >= t.cfg.LockoutSevereThreshold:
			return true, t.cfg.LockoutSevereDuration
		case t.cfg.LockoutLongThreshold > 0 && n >= t.cfg.LockoutLongThreshold:
			return true, t.cfg.LockoutLongDuration
		case t.cfg.LockoutShortThreshold > 0 && n >= t.cfg.LockoutShortThreshold:
			return true, t.cfg.LockoutShortDuration
		}
	}

	return false, 0
}

// recordFailure notes a failed attempt and prunes entries that no
// window can see anymore.
func (t *loginThrottle) recordFailure(ip net.IP, handleNorm string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ip != nil {
		key := ip.String()
		t.byIP[key] = appendPruned(t.byIP[key], now, now.Add(-t.cfg.LoginIPWindow))
		if len(t.byIP[key]) == 0 {
			delete(t.byIP, key)
		}
	}
	if handleNorm != "" {
		t.byHandle[handleNorm] = appendPruned(t.byHandle[handleNorm], now, now.Add(-t.cfg.LoginHandleWindow))
		if len(t.byHandle[handleNorm]) == 0 {
			delete(t.byHandle, handleNorm)
		}
	}
}

func countSince(stamps []time.Time, cut time.Time) int {
	n := 0
	for _, s := range stamps {
		if !s.Before(cut) {
			n++
		}
	}
	return n
}

func appendPruned(stamps []time.Time, now, cut time.Time) []time.Time {
	kept := stamps[:0]
	for _, s := range stamps {
		if !s.Before(cut) {
			kept = append(kept, s)
		}
	}
	return append(kept, now)
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
