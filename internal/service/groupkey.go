package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/planner-vault/internal/crypto"
	"github.com/and161185/planner-vault/internal/errs"
	"github.com/and161185/planner-vault/internal/model"
	"github.com/and161185/planner-vault/internal/repository"
	"github.com/and161185/planner-vault/internal/session"
)

// GroupKeyService manages the shared symmetric key of each group. Every
// active member holds the same raw key, wrapped under their own master key.
type GroupKeyService interface {
	// CreateOrFetch returns the caller's copy of the group key, minting a
	// fresh one if the caller has no active grant. This is the only path that
	// mints group keys.
	CreateOrFetch(ctx context.Context, sess *session.Session, groupID uuid.UUID) (model.SymmetricKey, error)
	// AddMember re-wraps the group key under a new member's master key. The
	// new member gains visibility into every past and future share of the
	// group.
	AddMember(ctx context.Context, sess *session.Session, groupID, newUserID uuid.UUID, newUserMasterKey model.SymmetricKey) error
	// RevokeMember soft-revokes a member's grant.
	RevokeMember(ctx context.Context, groupID, userID uuid.UUID) error
	// LoadAll unwraps every group key the caller holds a grant for. Grants
	// that fail to unwrap are logged and skipped, never fatal.
	LoadAll(ctx context.Context, sess *session.Session) (map[uuid.UUID]model.SymmetricKey, error)
}

type GroupKeyServiceImpl struct {
	grants repository.GrantRepository
	log    *zap.Logger
}

// NewGroupKeyService constructs GroupKeyService with required dependencies.
func NewGroupKeyService(grants repository.GrantRepository, log *zap.Logger) *GroupKeyServiceImpl {
	return &GroupKeyServiceImpl{grants: grants, log: log}
}

// CreateOrFetch is idempotent under concurrency: when two callers race to
// mint a key for the same group, the partial unique index lets the first
// insert win and the loser re-fetches the winner's grant, so both converge on
// the same raw key.
func (s *GroupKeyServiceImpl) CreateOrFetch(ctx context.Context, sess *session.Session, groupID uuid.UUID) (model.SymmetricKey, error) {
	masterKey, err := sess.Key()
	if err != nil {
		return nil, err
	}
	userID := sess.UserID()

	grant, err := s.grants.GetActive(ctx, groupID, userID)
	switch {
	case err == nil:
		return s.unwrap(grant, masterKey)
	case errors.Is(err, errs.ErrNotFound):
		// fall through to mint
	default:
		return nil, err
	}

	raw, err := crypto.Rand(crypto.KeyLen)
	if err != nil {
		return nil, err
	}
	if err := s.insertGrant(ctx, groupID, userID, raw, masterKey); err != nil {
		if !errors.Is(err, errs.ErrAlreadyExists) {
			return nil, err
		}
		// Lost the race: another caller minted first. Use theirs.
		crypto.Zero(raw)
		grant, err := s.grants.GetActive(ctx, groupID, userID)
		if err != nil {
			return nil, err
		}
		return s.unwrap(grant, masterKey)
	}
	return raw, nil
}

// AddMember unwraps the group key using the acting member's own grant and
// inserts an active grant wrapped under the new member's master key.
func (s *GroupKeyServiceImpl) AddMember(ctx context.Context, sess *session.Session, groupID, newUserID uuid.UUID, newUserMasterKey model.SymmetricKey) error {
	masterKey, err := sess.Key()
	if err != nil {
		return err
	}
	grant, err := s.grants.GetActive(ctx, groupID, sess.UserID())
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrMissingGroupKey
	}
	if err != nil {
		return err
	}
	raw, err := s.unwrap(grant, masterKey)
	if err != nil {
		return err
	}
	defer crypto.Zero(raw)

	if err := s.insertGrant(ctx, groupID, newUserID, raw, newUserMasterKey); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return fmt.Errorf("add member: %w", errs.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

// RevokeMember marks the member's grant inactive. The group key is not
// rotated; a removed member who cached the raw key can still decrypt items
// shared before revocation.
func (s *GroupKeyServiceImpl) RevokeMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return s.grants.Revoke(ctx, groupID, userID, time.Now())
}

// LoadAll fetches the caller's active grants and unwraps them concurrently.
// No ordering is guaranteed; the result holds whatever subset unwrapped.
func (s *GroupKeyServiceImpl) LoadAll(ctx context.Context, sess *session.Session) (map[uuid.UUID]model.SymmetricKey, error) {
	masterKey, err := sess.Key()
	if err != nil {
		return nil, err
	}
	grants, err := s.grants.ListActiveByUser(ctx, sess.UserID())
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		keys = make(map[uuid.UUID]model.SymmetricKey, len(grants))
	)
	for i := range grants {
		g := grants[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, err := s.unwrap(&g, masterKey)
			if err != nil {
				s.log.Warn("group key unwrap failed, skipping",
					zap.String("groupID", g.GroupID.String()), zap.Error(err))
				return
			}
			mu.Lock()
			keys[g.GroupID] = raw
			mu.Unlock()
		}()
	}
	wg.Wait()
	return keys, nil
}

func (s *GroupKeyServiceImpl) insertGrant(ctx context.Context, groupID, userID uuid.UUID, raw, masterKey []byte) error {
	wrapped, nonce, err := crypto.Encrypt(raw, masterKey)
	if err != nil {
		return err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	return s.grants.Insert(ctx, &model.GroupKeyGrant{
		ID:              id,
		GroupID:         groupID,
		UserID:          userID,
		WrappedGroupKey: wrapped,
		WrapNonce:       nonce,
		GrantedAt:       time.Now(),
		Active:          true,
	})
}

func (s *GroupKeyServiceImpl) unwrap(g *model.GroupKeyGrant, masterKey []byte) (model.SymmetricKey, error) {
	raw, err := crypto.Decrypt(g.WrappedGroupKey, g.WrapNonce, masterKey)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
