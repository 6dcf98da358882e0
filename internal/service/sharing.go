package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/planner-vault/internal/crypto"
	"github.com/and161185/planner-vault/internal/envelope"
	"github.com/and161185/planner-vault/internal/errs"
	"github.com/and161185/planner-vault/internal/model"
	"github.com/and161185/planner-vault/internal/repository"
	"github.com/and161185/planner-vault/internal/session"
)

// SharedView is one listed share. Payload is nil when the group key is
// missing or decryption failed; partial results are a designed outcome.
type SharedView struct {
	Share   model.SharedItem
	Payload envelope.Payload
}

// SharingService implements the share/update/revoke protocol over the group
// key layer. Per (item, group) pair the lifecycle is
// Unshared -> Shared -> [Updated]* -> Revoked.
type SharingService interface {
	// Share re-encrypts an owned item under the group key and creates the
	// share row at version 1.
	Share(ctx context.Context, sess *session.Session, itemID, groupID uuid.UUID, mode model.ShareMode) (*model.SharedItem, error)
	// ListSharedWithMe returns every share in the caller's groups, decrypting
	// with the supplied group keys. Shares that cannot be decrypted surface
	// with a nil payload instead of aborting the listing.
	ListSharedWithMe(ctx context.Context, sess *session.Session, groupKeys map[uuid.UUID]model.SymmetricKey) ([]SharedView, error)
	// PropagateUpdate re-encrypts every share of an edited item under its
	// group key. Each share is updated independently; the outcome reports
	// successes out of the total attempted.
	PropagateUpdate(ctx context.Context, sess *session.Session, itemID uuid.UUID) (model.Outcome, error)
	// Revoke hard-deletes one share row. Grants and other shares are untouched.
	Revoke(ctx context.Context, shareID uuid.UUID) error
	// CopyToVault forks a shared item into the caller's own vault under their
	// master key. One-time and one-directional; later edits do not re-sync.
	CopyToVault(ctx context.Context, sess *session.Session, shareID uuid.UUID, groupKeys map[uuid.UUID]model.SymmetricKey) (*model.VaultItem, error)
}

type SharingServiceImpl struct {
	items  repository.ItemRepository
	shares repository.ShareRepository
	grants repository.GrantRepository
	groups GroupKeyService
	log    *zap.Logger
}

// NewSharingService constructs SharingService with required dependencies.
func NewSharingService(items repository.ItemRepository, shares repository.ShareRepository, grants repository.GrantRepository, groups GroupKeyService, log *zap.Logger) *SharingServiceImpl {
	return &SharingServiceImpl{items: items, shares: shares, grants: grants, groups: groups, log: log}
}

// Share decrypts the item under the sharer's personal key, re-encrypts it
// under the group key (minting one if the group is new), and inserts the
// share row.
func (s *SharingServiceImpl) Share(ctx context.Context, sess *session.Session, itemID, groupID uuid.UUID, mode model.ShareMode) (*model.SharedItem, error) {
	masterKey, err := sess.Key()
	if err != nil {
		return nil, err
	}
	userID := sess.UserID()

	item, err := s.items.Get(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	groupKey, err := s.groups.CreateOrFetch(ctx, sess, groupID)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(groupKey)

	plain, err := crypto.Decrypt(item.Ciphertext, item.Nonce, masterKey)
	if err != nil {
		return nil, err
	}
	ct, nonce, err := crypto.Encrypt(plain, groupKey)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	share := &model.SharedItem{
		ID:              id,
		ItemID:          item.ID,
		GroupID:         groupID,
		SharedBy:        userID,
		Mode:            mode,
		GroupCiphertext: ct,
		GroupNonce:      nonce,
		Metadata:        item.Metadata,
		Version:         1,
		LastUpdatedBy:   userID,
		LastUpdatedAt:   now,
		SharedAt:        now,
	}
	if err := s.shares.Insert(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

// ListSharedWithMe fans the per-share decrypt out concurrently; completion
// order is not significant, only the aggregated collection.
func (s *SharingServiceImpl) ListSharedWithMe(ctx context.Context, sess *session.Session, groupKeys map[uuid.UUID]model.SymmetricKey) ([]SharedView, error) {
	if _, err := sess.Key(); err != nil {
		return nil, err
	}
	grants, err := s.grants.ListActiveByUser(ctx, sess.UserID())
	if err != nil {
		return nil, err
	}
	groupIDs := make([]uuid.UUID, 0, len(grants))
	for _, g := range grants {
		groupIDs = append(groupIDs, g.GroupID)
	}
	shares, err := s.shares.ListByGroups(ctx, groupIDs)
	if err != nil {
		return nil, err
	}

	views := make([]SharedView, len(shares))
	var wg sync.WaitGroup
	for i := range shares {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			views[i] = SharedView{Share: shares[i]}
			key, ok := groupKeys[shares[i].GroupID]
			if !ok {
				s.log.Warn("no group key for share, withholding plaintext",
					zap.String("shareID", shares[i].ID.String()),
					zap.String("groupID", shares[i].GroupID.String()))
				return
			}
			payload, err := envelope.Decode(shares[i].GroupCiphertext, shares[i].GroupNonce, key)
			if err != nil {
				s.log.Warn("share decryption failed, withholding plaintext",
					zap.String("shareID", shares[i].ID.String()), zap.Error(err))
				return
			}
			views[i].Payload = payload
		}()
	}
	wg.Wait()
	return views, nil
}

// PropagateUpdate re-reads the item, then updates every share referencing it.
// A failure on one share is recorded and the loop continues.
func (s *SharingServiceImpl) PropagateUpdate(ctx context.Context, sess *session.Session, itemID uuid.UUID) (model.Outcome, error) {
	var out model.Outcome
	masterKey, err := sess.Key()
	if err != nil {
		return out, err
	}
	userID := sess.UserID()

	item, err := s.items.Get(ctx, userID, itemID)
	if err != nil {
		return out, err
	}
	plain, err := crypto.Decrypt(item.Ciphertext, item.Nonce, masterKey)
	if err != nil {
		return out, err
	}
	shares, err := s.shares.ListByItem(ctx, itemID)
	if err != nil {
		return out, err
	}

	for i := range shares {
		share := shares[i]
		if err := s.updateShare(ctx, sess, &share, item, plain, userID); err != nil {
			s.log.Warn("share update failed, continuing",
				zap.String("shareID", share.ID.String()),
				zap.String("groupID", share.GroupID.String()), zap.Error(err))
			out.Failed = append(out.Failed, model.Failure{ID: share.ID, Reason: err.Error()})
			continue
		}
		out.Succeeded = append(out.Succeeded, share.ID)
	}
	return out, nil
}

func (s *SharingServiceImpl) updateShare(ctx context.Context, sess *session.Session, share *model.SharedItem, item *model.VaultItem, plain []byte, userID uuid.UUID) error {
	groupKey, err := s.groups.CreateOrFetch(ctx, sess, share.GroupID)
	if err != nil {
		return fmt.Errorf("fetch group key: %w", err)
	}
	defer crypto.Zero(groupKey)

	ct, nonce, err := crypto.Encrypt(plain, groupKey)
	if err != nil {
		return err
	}
	share.GroupCiphertext = ct
	share.GroupNonce = nonce
	share.Metadata = item.Metadata
	share.Version++
	share.LastUpdatedBy = userID
	share.LastUpdatedAt = time.Now()
	return s.shares.UpdateCiphertext(ctx, share)
}

// Revoke hard-deletes the share row.
func (s *SharingServiceImpl) Revoke(ctx context.Context, shareID uuid.UUID) error {
	return s.shares.Delete(ctx, shareID)
}

// CopyToVault materializes the caller's own independent copy of a shared
// item, re-encrypted under their master key.
func (s *SharingServiceImpl) CopyToVault(ctx context.Context, sess *session.Session, shareID uuid.UUID, groupKeys map[uuid.UUID]model.SymmetricKey) (*model.VaultItem, error) {
	masterKey, err := sess.Key()
	if err != nil {
		return nil, err
	}
	share, err := s.shares.Get(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if !share.Mode.AllowsCopy() {
		return nil, fmt.Errorf("share mode %q does not permit copying", share.Mode)
	}
	groupKey, ok := groupKeys[share.GroupID]
	if !ok {
		return nil, errs.ErrMissingGroupKey
	}
	plain, err := crypto.Decrypt(share.GroupCiphertext, share.GroupNonce, groupKey)
	if err != nil {
		return nil, err
	}
	ct, nonce, err := crypto.Encrypt(plain, masterKey)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	item := &model.VaultItem{
		ID:         id,
		OwnerID:    sess.UserID(),
		Ciphertext: ct,
		Nonce:      nonce,
		Metadata:   share.Metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
