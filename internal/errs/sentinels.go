// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., a second active grant).
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyInitialized indicates a master key record already exists for the owner.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrInvalidPassphrase indicates the verification hash did not match. Retryable.
	ErrInvalidPassphrase = errors.New("invalid passphrase")

	// ErrDecryption indicates an AEAD authentication failure. Deliberately does not
	// distinguish a wrong key from corrupted or tampered data.
	ErrDecryption = errors.New("unable to decrypt")

	// ErrSerialization indicates decrypted bytes are not a well-formed payload.
	// Distinct from ErrDecryption: it points at a logic or version bug, not tampering.
	ErrSerialization = errors.New("malformed payload")

	// ErrMissingGroupKey indicates the caller holds no grant for the referenced group.
	ErrMissingGroupKey = errors.New("missing group key")

	// ErrNotUnlocked indicates an operation that needs the master key was attempted
	// without an active unlocked session.
	ErrNotUnlocked = errors.New("vault is locked")

	// ErrUnauthorized indicates failed caller identity verification.
	ErrUnauthorized = errors.New("unauthorized")
)
