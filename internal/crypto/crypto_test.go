package crypto

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/planner-vault/internal/errs"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	a, err := Rand(SaltLen)
	require.NoError(t, err)
	require.Len(t, a, SaltLen)
	b, err := Rand(SaltLen)
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b), "Rand produced equal slices")
}

func TestDeriveKey_DeterministicAndSaltDependent(t *testing.T) {
	t.Parallel()
	salt1 := []byte("0123456789abcdef")
	salt2 := []byte("fedcba9876543210")

	k1 := DeriveKey("correct-horse", salt1, Iterations)
	k2 := DeriveKey("correct-horse", salt1, Iterations)
	require.Len(t, k1, KeyLen)
	require.Equal(t, 1, subtle.ConstantTimeCompare(k1, k2), "DeriveKey not deterministic")

	require.Zero(t, subtle.ConstantTimeCompare(k1, DeriveKey("correct-horse", salt2, Iterations)))
	require.Zero(t, subtle.ConstantTimeCompare(k1, DeriveKey("wrong-horse", salt1, Iterations)))
}

func TestVerificationHash_NeverEqualsKey(t *testing.T) {
	t.Parallel()
	salt := []byte("0123456789abcdef")
	key := DeriveKey("pass", salt, Iterations)
	vh := VerificationHash("pass", salt, Iterations)
	require.NotEqual(t, len(key), len(vh))
	require.False(t, bytes.HasPrefix(vh, key), "verification hash must not embed the key")
}

func TestVerifyPassphrase(t *testing.T) {
	t.Parallel()
	salt, err := Rand(SaltLen)
	require.NoError(t, err)
	expected := VerificationHash("secret", salt, Iterations)

	require.True(t, VerifyPassphrase("secret", salt, Iterations, expected))
	require.False(t, VerifyPassphrase("Secret", salt, Iterations, expected))
	require.False(t, VerifyPassphrase("", salt, Iterations, expected))
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()
	key, err := Rand(KeyLen)
	require.NoError(t, err)

	for _, pt := range [][]byte{
		[]byte("p@ss"),
		{},
		bytes.Repeat([]byte{0xAB}, 1<<16),
	} {
		ct, nonce, err := Encrypt(pt, key)
		require.NoError(t, err)
		require.Len(t, nonce, NonceLen)

		got, err := Decrypt(ct, nonce, key)
		require.NoError(t, err)
		require.Equal(t, pt, got)
	}
}

func TestEncrypt_NonceUniqueness(t *testing.T) {
	t.Parallel()
	key, err := Rand(KeyLen)
	require.NoError(t, err)

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		_, nonce, err := Encrypt([]byte("x"), key)
		require.NoError(t, err)
		k := base64.StdEncoding.EncodeToString(nonce)
		_, dup := seen[k]
		require.False(t, dup, "nonce collision at iteration %d", i)
		seen[k] = struct{}{}
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	t.Parallel()
	key, err := Rand(KeyLen)
	require.NoError(t, err)
	ct, nonce, err := Encrypt([]byte("sensitive"), key)
	require.NoError(t, err)

	for i := range ct {
		bad := append([]byte(nil), ct...)
		bad[i] ^= 0x01
		_, err := Decrypt(bad, nonce, key)
		require.ErrorIs(t, err, errs.ErrDecryption, "flipped ciphertext byte %d", i)
	}
	for i := range nonce {
		bad := append([]byte(nil), nonce...)
		bad[i] ^= 0x01
		_, err := Decrypt(ct, bad, key)
		require.ErrorIs(t, err, errs.ErrDecryption, "flipped nonce byte %d", i)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	t.Parallel()
	k1, _ := Rand(KeyLen)
	k2, _ := Rand(KeyLen)
	ct, nonce, err := Encrypt([]byte("data"), k1)
	require.NoError(t, err)

	_, err = Decrypt(ct, nonce, k2)
	require.ErrorIs(t, err, errs.ErrDecryption)
}

func TestRSA_WrapUnwrap(t *testing.T) {
	t.Parallel()
	priv, err := GenerateRSAKeyPair()
	require.NoError(t, err)
	require.Equal(t, RSABits, priv.N.BitLen())

	groupKey, err := Rand(KeyLen)
	require.NoError(t, err)

	ct, err := EncryptOAEP(groupKey, &priv.PublicKey)
	require.NoError(t, err)
	got, err := DecryptOAEP(ct, priv)
	require.NoError(t, err)
	require.Equal(t, groupKey, got)
}

func TestRSA_MarshalRoundTrip(t *testing.T) {
	t.Parallel()
	priv, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	spki, err := MarshalPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pub, err := ParsePublicKey(spki)
	require.NoError(t, err)
	require.Zero(t, pub.N.Cmp(priv.N))

	pkcs8, err := MarshalPrivateKey(priv)
	require.NoError(t, err)
	back, err := ParsePrivateKey(pkcs8)
	require.NoError(t, err)
	require.Zero(t, back.D.Cmp(priv.D))
}

func TestRSA_DecryptWrongKey(t *testing.T) {
	t.Parallel()
	p1, err := GenerateRSAKeyPair()
	require.NoError(t, err)
	p2, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	ct, err := EncryptOAEP([]byte("0123456789abcdef0123456789abcdef"), &p1.PublicKey)
	require.NoError(t, err)
	_, err = DecryptOAEP(ct, p2)
	require.ErrorIs(t, err, errs.ErrDecryption)
}

func TestZero(t *testing.T) {
	t.Parallel()
	b := []byte{1, 2, 3}
	Zero(b)
	require.Equal(t, []byte{0, 0, 0}, b)
}
