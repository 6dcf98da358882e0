package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/and161185/planner-vault/internal/errs"
)

// RSABits is the modulus size for the asymmetric exchange path.
const RSABits = 2048

// GenerateRSAKeyPair creates a 2048-bit RSA key pair for OAEP key wrapping.
func GenerateRSAKeyPair() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, RSABits)
}

// MarshalPublicKey encodes a public key as SPKI DER, safe to store in the
// clear.
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// ParsePublicKey decodes SPKI DER produced by MarshalPublicKey.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("parse public key: not RSA")
	}
	return pub, nil
}

// MarshalPrivateKey encodes a private key as PKCS#8 DER. The result must be
// wrapped under the owner's master key before it is persisted.
func MarshalPrivateKey(priv *rsa.PrivateKey) ([]byte, error) {
	return x509.MarshalPKCS8PrivateKey(priv)
}

// ParsePrivateKey decodes PKCS#8 DER produced by MarshalPrivateKey.
func ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parse private key: not RSA")
	}
	return priv, nil
}

// EncryptOAEP wraps a small payload (a raw group key) under a recipient's
// public key with RSA-OAEP/SHA-256.
func EncryptOAEP(payload []byte, pub *rsa.PublicKey) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, payload, nil)
}

// DecryptOAEP unwraps an OAEP ciphertext with the recipient's private key.
// Failures surface as errs.ErrDecryption.
func DecryptOAEP(ciphertext []byte, priv *rsa.PrivateKey) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return nil, errs.ErrDecryption
	}
	return pt, nil
}
