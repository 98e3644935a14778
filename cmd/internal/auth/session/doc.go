// Package session implements relay's session-authentication core.
//
// It issues paired credentials per login: a short-lived access token
// (self-verifying JWT, HS256) and a long-lived refresh token backed by a
// persisted session record. The record's existence is the revocation
// switch: deleting it kills the refresh lineage immediately, regardless of
// the token's own embedded expiry.
//
// Access and refresh tokens are signed with independent secrets so that a
// compromised key of one class cannot forge the other.
//
// Transport (HTTP cookies, bearer headers) is out of scope here; see the
// auth/api package.
package session
