// Package keyexchange is the RSA-OAEP distribution channel for group keys: a
// sharer who does not hold the recipient's symmetric master key can wrap a
// group key under the recipient's public key instead. It is an extension
// point next to the main grant-based flow, not part of it.
package keyexchange

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/planner-vault/internal/crypto"
	"github.com/and161185/planner-vault/internal/errs"
	"github.com/and161185/planner-vault/internal/model"
	"github.com/and161185/planner-vault/internal/repository"
	"github.com/and161185/planner-vault/internal/session"
)

// Service manages RSA key pairs and group key wrapping over them.
type Service struct {
	keypairs repository.KeyPairRepository
}

// NewService constructs the key exchange service.
func NewService(keypairs repository.KeyPairRepository) *Service {
	return &Service{keypairs: keypairs}
}

// GenerateKeyPair creates and stores the caller's RSA-2048 key pair. The
// public key is stored as plaintext SPKI; the private key is PKCS#8 wrapped
// under the caller's master key, mirroring item encryption.
func (s *Service) GenerateKeyPair(ctx context.Context, sess *session.Session) (*model.KeyPair, error) {
	masterKey, err := sess.Key()
	if err != nil {
		return nil, err
	}
	priv, err := crypto.GenerateRSAKeyPair()
	if err != nil {
		return nil, err
	}
	spki, err := crypto.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	pkcs8, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	wrapped, nonce, err := crypto.Encrypt(pkcs8, masterKey)
	if err != nil {
		return nil, err
	}
	crypto.Zero(pkcs8)

	kp := &model.KeyPair{
		UserID:            sess.UserID(),
		PublicKeySPKI:     spki,
		WrappedPrivateKey: wrapped,
		WrapNonce:         nonce,
		CreatedAt:         time.Now(),
	}
	if err := s.keypairs.Create(ctx, kp); err != nil {
		return nil, err
	}
	return kp, nil
}

// WrapGroupKeyFor exports the raw group key and seals it under the
// recipient's stored public key.
func (s *Service) WrapGroupKeyFor(ctx context.Context, groupKey model.SymmetricKey, recipientID uuid.UUID) ([]byte, error) {
	spki, err := s.keypairs.GetPublicKey(ctx, recipientID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrMissingGroupKey
	}
	if err != nil {
		return nil, err
	}
	pub, err := crypto.ParsePublicKey(spki)
	if err != nil {
		return nil, err
	}
	return crypto.EncryptOAEP(groupKey, pub)
}

// UnwrapGroupKey recovers a group key wrapped for the caller. The private
// key is first unwrapped from storage using the caller's master key.
func (s *Service) UnwrapGroupKey(ctx context.Context, sess *session.Session, wrappedGroupKey []byte) (model.SymmetricKey, error) {
	masterKey, err := sess.Key()
	if err != nil {
		return nil, err
	}
	kp, err := s.keypairs.Get(ctx, sess.UserID())
	if err != nil {
		return nil, err
	}
	pkcs8, err := crypto.Decrypt(kp.WrappedPrivateKey, kp.WrapNonce, masterKey)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(pkcs8)
	priv, err := crypto.ParsePrivateKey(pkcs8)
	if err != nil {
		return nil, err
	}
	return crypto.DecryptOAEP(wrappedGroupKey, priv)
}
