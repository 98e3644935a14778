// Package password implements relay's credential verification primitive.
//
// Secrets are hashed with Argon2id and stored as PHC-style strings:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
//
// Verification is constant-time and never logs or echoes the plaintext
// secret. A wrong secret is a (false, nil) result; only a malformed stored
// hash is an error.
package password
