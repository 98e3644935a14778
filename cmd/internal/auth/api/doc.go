// Package authapi is relay's HTTP auth surface: registration, login,
// logout, and the request gate that keeps short-lived access tokens
// transparent to clients by re-deriving them from the refresh cookie.
package authapi
