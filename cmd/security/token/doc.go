// Package token provides server-side hashing for refresh credentials.
//
// Session records are keyed by a digest of the refresh token, never the
// token itself: a dump of the session store must not yield replayable
// credentials. With RELAY_TOKEN_HMAC_KEY set the digest is keyed
// (HMAC-SHA256); otherwise plain SHA-256 is used for dev setups.
package token
