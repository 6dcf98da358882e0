package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/and161185/planner-vault/internal/errs"
)

// NonceLen is the AES-GCM nonce size in bytes. Nonces are random per call and
// stored next to the ciphertext; callers must never cache or reuse one.
const NonceLen = 12

// Encrypt seals plaintext under a 256-bit key with AES-GCM and a fresh random
// nonce. Ciphertext and nonce are returned separately because they are
// persisted as separate columns.
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce, err = Rand(NonceLen)
	if err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens a ciphertext/nonce pair. Any authentication failure surfaces
// as errs.ErrDecryption; a wrong key is indistinguishable from corrupted or
// tampered data.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceLen {
		return nil, errs.ErrDecryption
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errs.ErrDecryption
	}
	return pt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("aead: key must be %d bytes, got %d", KeyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
