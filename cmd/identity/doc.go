// Package identity owns relay's profile records: the stable principal the
// session core references but does not manage. The auth core reads a
// profile during login and access-token re-derivation; everything else
// (profile CRUD surfaces, avatars, memberships) lives outside this module.
package identity
