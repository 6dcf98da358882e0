// Package service contains application services for key management and sharing.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/planner-vault/internal/crypto"
	"github.com/and161185/planner-vault/internal/errs"
	"github.com/and161185/planner-vault/internal/model"
	"github.com/and161185/planner-vault/internal/repository"
	"github.com/and161185/planner-vault/internal/session"
)

// MasterKeyService manages the passphrase-derived personal key.
type MasterKeyService interface {
	// Setup creates the master key record at first use.
	Setup(ctx context.Context, userID uuid.UUID, passphrase string) (*model.MasterKeyRecord, error)
	// Unlock verifies the passphrase and opens a session holding the derived key.
	Unlock(ctx context.Context, userID uuid.UUID, passphrase string) (*session.Session, error)
	// ChangePassphrase re-encrypts everything the user owns under a key derived
	// from the new passphrase. Best-effort across items; returns the per-item
	// outcome, not a single pass/fail.
	ChangePassphrase(ctx context.Context, sess *session.Session, oldPassphrase, newPassphrase string) (model.Outcome, error)
}

type MasterKeyServiceImpl struct {
	records repository.MasterKeyRepository
	items   repository.ItemRepository
	grants  repository.GrantRepository
	log     *zap.Logger
}

// NewMasterKeyService constructs MasterKeyService with required dependencies.
func NewMasterKeyService(records repository.MasterKeyRepository, items repository.ItemRepository, grants repository.GrantRepository, log *zap.Logger) *MasterKeyServiceImpl {
	return &MasterKeyServiceImpl{records: records, items: items, grants: grants, log: log}
}

// Setup generates a salt, computes the verification hash, and persists the
// record. The passphrase itself is never stored.
func (s *MasterKeyServiceImpl) Setup(ctx context.Context, userID uuid.UUID, passphrase string) (*model.MasterKeyRecord, error) {
	if userID == uuid.Nil || passphrase == "" {
		return nil, errors.New("empty userID/passphrase")
	}
	salt, err := crypto.Rand(crypto.SaltLen)
	if err != nil {
		return nil, err
	}
	rec := &model.MasterKeyRecord{
		UserID:           userID,
		Salt:             salt,
		Iterations:       crypto.Iterations,
		VerificationHash: crypto.VerificationHash(passphrase, salt, crypto.Iterations),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.ErrAlreadyInitialized
		}
		return nil, err
	}
	return rec, nil
}

// Unlock recomputes the verification hash with the stored salt and iteration
// count; on match it derives the usable key in a second, independent
// derivation and opens a session.
func (s *MasterKeyServiceImpl) Unlock(ctx context.Context, userID uuid.UUID, passphrase string) (*session.Session, error) {
	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !crypto.VerifyPassphrase(passphrase, rec.Salt, rec.Iterations, rec.VerificationHash) {
		return nil, errs.ErrInvalidPassphrase
	}
	key := crypto.DeriveKey(passphrase, rec.Salt, rec.Iterations)
	return session.New(userID, key), nil
}

// ChangePassphrase verifies the old passphrase, re-encrypts every owned item
// under a freshly derived key, re-wraps every active group key grant, then
// atomically replaces the record and swaps the session key. One failed item
// never blocks the rest; failures are logged and reported in the outcome.
func (s *MasterKeyServiceImpl) ChangePassphrase(ctx context.Context, sess *session.Session, oldPassphrase, newPassphrase string) (model.Outcome, error) {
	var out model.Outcome
	if newPassphrase == "" {
		return out, errors.New("empty new passphrase")
	}
	if _, err := sess.Key(); err != nil {
		return out, err
	}
	userID := sess.UserID()

	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		return out, err
	}
	if !crypto.VerifyPassphrase(oldPassphrase, rec.Salt, rec.Iterations, rec.VerificationHash) {
		return out, errs.ErrInvalidPassphrase
	}
	oldKey := crypto.DeriveKey(oldPassphrase, rec.Salt, rec.Iterations)

	newSalt, err := crypto.Rand(crypto.SaltLen)
	if err != nil {
		return out, err
	}
	newKey := crypto.DeriveKey(newPassphrase, newSalt, crypto.Iterations)

	items, err := s.items.ListByOwner(ctx, userID)
	if err != nil {
		return out, err
	}
	for i := range items {
		item := &items[i]
		if err := s.reencryptItem(ctx, item, oldKey, newKey); err != nil {
			s.log.Warn("passphrase change: item re-encryption failed",
				zap.String("itemID", item.ID.String()), zap.Error(err))
			out.Failed = append(out.Failed, model.Failure{ID: item.ID, Reason: err.Error()})
			continue
		}
		out.Succeeded = append(out.Succeeded, item.ID)
	}

	// Group keys for this user are wrapped under the old master key; re-wrap
	// each active grant under the new one.
	grants, err := s.grants.ListActiveByUser(ctx, userID)
	if err != nil {
		return out, err
	}
	for i := range grants {
		g := &grants[i]
		if err := s.rewrapGrant(ctx, g, oldKey, newKey); err != nil {
			s.log.Warn("passphrase change: grant re-wrap failed",
				zap.String("groupID", g.GroupID.String()), zap.Error(err))
			out.Failed = append(out.Failed, model.Failure{ID: g.ID, Reason: err.Error()})
			continue
		}
		out.Succeeded = append(out.Succeeded, g.ID)
	}

	rec.Salt = newSalt
	rec.Iterations = crypto.Iterations
	rec.VerificationHash = crypto.VerificationHash(newPassphrase, newSalt, crypto.Iterations)
	rec.UpdatedAt = time.Now()
	if err := s.records.Replace(ctx, rec); err != nil {
		return out, fmt.Errorf("replace master key record: %w", err)
	}

	sess.Replace(newKey)
	crypto.Zero(oldKey)
	return out, nil
}

func (s *MasterKeyServiceImpl) reencryptItem(ctx context.Context, item *model.VaultItem, oldKey, newKey []byte) error {
	plain, err := crypto.Decrypt(item.Ciphertext, item.Nonce, oldKey)
	if err != nil {
		return err
	}
	ct, nonce, err := crypto.Encrypt(plain, newKey)
	if err != nil {
		return err
	}
	return s.items.UpdateCiphertext(ctx, item.OwnerID, item.ID, ct, nonce)
}

func (s *MasterKeyServiceImpl) rewrapGrant(ctx context.Context, g *model.GroupKeyGrant, oldKey, newKey []byte) error {
	raw, err := crypto.Decrypt(g.WrappedGroupKey, g.WrapNonce, oldKey)
	if err != nil {
		return err
	}
	wrapped, nonce, err := crypto.Encrypt(raw, newKey)
	if err != nil {
		return err
	}
	return s.grants.UpdateWrapped(ctx, g.ID, wrapped, nonce)
}
