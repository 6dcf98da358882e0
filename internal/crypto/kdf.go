// Package crypto implements the primitive layer: passphrase key derivation,
// AES-256-GCM envelope encryption, and RSA-OAEP key exchange.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. These are a binary-compatibility contract with data
// encrypted by earlier builds and must not change without a migration.
const (
	KeyLen     = 32     // AES-256
	SaltLen    = 16     // per-user salt
	Iterations = 100000 // PBKDF2 iteration count
	verifyLen  = 64     // verification hash output
)

// Rand returns n cryptographically secure random bytes.
func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// DeriveKey derives the usable AES-256-GCM key from a passphrase via
// PBKDF2-HMAC-SHA-256. Deterministic for the same inputs.
func DeriveKey(passphrase string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, KeyLen, sha256.New)
}

// VerificationHash derives the stored unlock-verification value via
// PBKDF2-HMAC-SHA-512. It is a separate derivation from DeriveKey so the
// stored hash never equals (or reveals) the encryption key.
func VerificationHash(passphrase string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, verifyLen, sha512.New)
}

// VerifyPassphrase recomputes the verification hash and compares in constant
// time.
func VerifyPassphrase(passphrase string, salt []byte, iterations int, expected []byte) bool {
	got := VerificationHash(passphrase, salt, iterations)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// Zero overwrites key material in place once a session ends.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
