// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// SymmetricKey is a raw 256-bit AES-GCM key. It lives only in memory for the
// duration of an unlocked session and is never persisted or logged.
type SymmetricKey []byte

// MasterKeyRecord stores what is needed to verify and re-derive a user's
// personal key from a passphrase. The passphrase itself is never stored.
// Invariant: VerificationHash = PBKDF2(passphrase, Salt, Iterations), computed
// with a derivation independent from the usable key derivation.
type MasterKeyRecord struct {
	UserID           uuid.UUID
	Salt             []byte // 16 bytes
	Iterations       int    // 100000
	VerificationHash []byte // raw SHA-512 PBKDF2 output; hex-encoded at rest
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Metadata is the plaintext portion of a vault item, searchable without
// unlocking.
type Metadata struct {
	Title    string     `json:"title"`
	Category string     `json:"category,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
	Favorite bool       `json:"favorite,omitempty"`
	Expiry   *time.Time `json:"expiry,omitempty"`
}

// VaultItem is a single encrypted record (credential, document, card, ...).
// Ciphertext decrypts only under the owner's master key until shared.
type VaultItem struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Ciphertext []byte
	Nonce      []byte // 12-byte GCM nonce, stored separately from ciphertext
	Metadata   Metadata
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GroupKeyGrant is one member's wrapped copy of a group key. Multiple grants
// may exist per (group, user) over time; at most one is active. Every active
// grant for a group wraps the same raw key under a different member's
// personal key.
type GroupKeyGrant struct {
	ID              uuid.UUID
	GroupID         uuid.UUID
	UserID          uuid.UUID
	WrappedGroupKey []byte
	WrapNonce       []byte
	GrantedAt       time.Time
	RevokedAt       *time.Time
	Active          bool
}

// ShareMode controls what a recipient may do with a shared item.
type ShareMode string

const (
	// ShareReadOnly lets group members decrypt and view only.
	ShareReadOnly ShareMode = "readonly"
	// ShareCopy additionally lets a member fork the item into their own vault.
	ShareCopy ShareMode = "copy"
	// ShareReadWrite lets members push collaborative edits (documents).
	ShareReadWrite ShareMode = "readwrite"
)

// AllowsCopy reports whether the mode permits a one-way fork into the
// recipient's own vault.
func (m ShareMode) AllowsCopy() bool {
	return m == ShareCopy || m == ShareReadWrite
}

// SharedItem is one (item, group) share: the item's plaintext re-encrypted
// under the group key. Revocation hard-deletes the row.
type SharedItem struct {
	ID              uuid.UUID
	ItemID          uuid.UUID
	GroupID         uuid.UUID
	SharedBy        uuid.UUID
	Mode            ShareMode
	GroupCiphertext []byte
	GroupNonce      []byte
	Metadata        Metadata // snapshot taken at share/propagate time
	Version         int64
	LastUpdatedBy   uuid.UUID
	LastUpdatedAt   time.Time
	SharedAt        time.Time
}

// KeyPair is a user's RSA-OAEP key pair for the asymmetric exchange path.
// The public key is plaintext-storable SPKI DER; the private key is PKCS#8
// DER wrapped under the owner's master key.
type KeyPair struct {
	UserID            uuid.UUID
	PublicKeySPKI     []byte
	WrappedPrivateKey []byte
	WrapNonce         []byte
	CreatedAt         time.Time
}

// Failure records one element that a best-effort loop could not process.
type Failure struct {
	ID     uuid.UUID
	Reason string
}

// Outcome is the structured result of a best-effort loop (passphrase change
// re-encryption, share propagation): processed successes plus per-element
// failures, never a single pass/fail.
type Outcome struct {
	Succeeded []uuid.UUID
	Failed    []Failure
}

// Ok reports whether every attempted element succeeded.
func (o Outcome) Ok() bool { return len(o.Failed) == 0 }

// Attempted returns the total number of elements processed.
func (o Outcome) Attempted() int { return len(o.Succeeded) + len(o.Failed) }
