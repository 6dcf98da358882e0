package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/planner-vault/internal/errs"
	"github.com/and161185/planner-vault/internal/model"
	"github.com/and161185/planner-vault/internal/repository"
)

// In-memory repositories shared by service tests.

type memMasterKeyRepo struct {
	mu   sync.Mutex
	recs map[uuid.UUID]model.MasterKeyRecord
}

var _ repository.MasterKeyRepository = (*memMasterKeyRepo)(nil)

func newMemMasterKeyRepo() *memMasterKeyRepo {
	return &memMasterKeyRepo{recs: make(map[uuid.UUID]model.MasterKeyRecord)}
}

func (r *memMasterKeyRepo) Create(_ context.Context, rec *model.MasterKeyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recs[rec.UserID]; ok {
		return errs.ErrAlreadyExists
	}
	r.recs[rec.UserID] = *rec
	return nil
}

func (r *memMasterKeyRepo) Get(_ context.Context, userID uuid.UUID) (*model.MasterKeyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &rec, nil
}

func (r *memMasterKeyRepo) Replace(_ context.Context, rec *model.MasterKeyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recs[rec.UserID]; !ok {
		return errs.ErrNotFound
	}
	r.recs[rec.UserID] = *rec
	return nil
}

type memItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]model.VaultItem
}

var _ repository.ItemRepository = (*memItemRepo)(nil)

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: make(map[uuid.UUID]model.VaultItem)}
}

func (r *memItemRepo) Create(_ context.Context, item *model.VaultItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; ok {
		return errs.ErrAlreadyExists
	}
	r.items[item.ID] = *item
	return nil
}

func (r *memItemRepo) Get(_ context.Context, ownerID, itemID uuid.UUID) (*model.VaultItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return nil, errs.ErrNotFound
	}
	return &item, nil
}

func (r *memItemRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.VaultItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.VaultItem
	for _, item := range r.items {
		if item.OwnerID == ownerID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memItemRepo) UpdateCiphertext(_ context.Context, ownerID, itemID uuid.UUID, ciphertext, nonce []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return errs.ErrNotFound
	}
	item.Ciphertext = ciphertext
	item.Nonce = nonce
	item.UpdatedAt = time.Now()
	r.items[itemID] = item
	return nil
}

func (r *memItemRepo) Update(ctx context.Context, ownerID, itemID uuid.UUID, ciphertext, nonce []byte, meta model.Metadata) error {
	if err := r.UpdateCiphertext(ctx, ownerID, itemID, ciphertext, nonce); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.items[itemID]
	item.Metadata = meta
	r.items[itemID] = item
	return nil
}

func (r *memItemRepo) Delete(_ context.Context, ownerID, itemID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return errs.ErrNotFound
	}
	delete(r.items, itemID)
	return nil
}

// corrupt flips the stored ciphertext of an item to provoke decrypt failures.
func (r *memItemRepo) corrupt(itemID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.items[itemID]
	item.Ciphertext = append([]byte(nil), item.Ciphertext...)
	item.Ciphertext[0] ^= 0xFF
	r.items[itemID] = item
}

type memGrantRepo struct {
	mu     sync.Mutex
	grants map[uuid.UUID]model.GroupKeyGrant
}

var _ repository.GrantRepository = (*memGrantRepo)(nil)

func newMemGrantRepo() *memGrantRepo {
	return &memGrantRepo{grants: make(map[uuid.UUID]model.GroupKeyGrant)}
}

func (r *memGrantRepo) Insert(_ context.Context, grant *model.GroupKeyGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.grants {
		if g.GroupID == grant.GroupID && g.UserID == grant.UserID && g.Active {
			return errs.ErrAlreadyExists
		}
	}
	r.grants[grant.ID] = *grant
	return nil
}

func (r *memGrantRepo) GetActive(_ context.Context, groupID, userID uuid.UUID) (*model.GroupKeyGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.grants {
		if g.GroupID == groupID && g.UserID == userID && g.Active {
			return &g, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *memGrantRepo) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]model.GroupKeyGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.GroupKeyGrant
	for _, g := range r.grants {
		if g.UserID == userID && g.Active {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memGrantRepo) Revoke(_ context.Context, groupID, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, g := range r.grants {
		if g.GroupID == groupID && g.UserID == userID && g.Active {
			g.Active = false
			g.RevokedAt = &at
			r.grants[id] = g
			return nil
		}
	}
	return errs.ErrNotFound
}

func (r *memGrantRepo) UpdateWrapped(_ context.Context, grantID uuid.UUID, wrappedKey, wrapNonce []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[grantID]
	if !ok || !g.Active {
		return errs.ErrNotFound
	}
	g.WrappedGroupKey = wrappedKey
	g.WrapNonce = wrapNonce
	r.grants[grantID] = g
	return nil
}

// corrupt flips the wrapped key of one grant.
func (r *memGrantRepo) corrupt(grantID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.grants[grantID]
	g.WrappedGroupKey = append([]byte(nil), g.WrappedGroupKey...)
	g.WrappedGroupKey[0] ^= 0xFF
	r.grants[grantID] = g
}

type memShareRepo struct {
	mu     sync.Mutex
	shares map[uuid.UUID]model.SharedItem
}

var _ repository.ShareRepository = (*memShareRepo)(nil)

func newMemShareRepo() *memShareRepo {
	return &memShareRepo{shares: make(map[uuid.UUID]model.SharedItem)}
}

func (r *memShareRepo) Insert(_ context.Context, share *model.SharedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shares {
		if s.ItemID == share.ItemID && s.GroupID == share.GroupID {
			return errs.ErrAlreadyExists
		}
	}
	r.shares[share.ID] = *share
	return nil
}

func (r *memShareRepo) Get(_ context.Context, shareID uuid.UUID) (*model.SharedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[shareID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &s, nil
}

func (r *memShareRepo) ListByGroups(_ context.Context, groupIDs []uuid.UUID) ([]model.SharedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(groupIDs))
	for _, id := range groupIDs {
		want[id] = true
	}
	var out []model.SharedItem
	for _, s := range r.shares {
		if want[s.GroupID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memShareRepo) ListByItem(_ context.Context, itemID uuid.UUID) ([]model.SharedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SharedItem
	for _, s := range r.shares {
		if s.ItemID == itemID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memShareRepo) UpdateCiphertext(_ context.Context, share *model.SharedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shares[share.ID]; !ok {
		return errs.ErrNotFound
	}
	r.shares[share.ID] = *share
	return nil
}

func (r *memShareRepo) Delete(_ context.Context, shareID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shares[shareID]; !ok {
		return errs.ErrNotFound
	}
	delete(r.shares, shareID)
	return nil
}
