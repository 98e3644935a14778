package identity

import "strings"

// NormalizeHandle performs case-insensitive canonicalization.
// Trim + lower-case only for now; confusable handling can land later
// behind a versioned policy.
func NormalizeHandle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
