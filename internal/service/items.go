package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/planner-vault/internal/envelope"
	"github.com/and161185/planner-vault/internal/model"
	"github.com/and161185/planner-vault/internal/repository"
	"github.com/and161185/planner-vault/internal/session"
)

// ItemService manages the caller's own encrypted vault items.
type ItemService interface {
	// Create seals a payload under the session key and persists a new item.
	Create(ctx context.Context, sess *session.Session, payload envelope.Payload, meta model.Metadata) (*model.VaultItem, error)
	// Decrypt loads one owned item and opens its payload.
	Decrypt(ctx context.Context, sess *session.Session, itemID uuid.UUID) (envelope.Payload, error)
	// List returns the caller's items; ciphertexts only, metadata in the clear.
	List(ctx context.Context, sess *session.Session) ([]model.VaultItem, error)
	// Update replaces an item's payload and metadata. Propagating the edit to
	// existing shares is the caller's next step via SharingService.
	Update(ctx context.Context, sess *session.Session, itemID uuid.UUID, payload envelope.Payload, meta model.Metadata) error
	// Delete removes an owned item.
	Delete(ctx context.Context, sess *session.Session, itemID uuid.UUID) error
}

type ItemServiceImpl struct {
	items repository.ItemRepository
	log   *zap.Logger
}

// NewItemService constructs ItemService.
func NewItemService(items repository.ItemRepository, log *zap.Logger) *ItemServiceImpl {
	return &ItemServiceImpl{items: items, log: log}
}

// Create seals the payload and inserts the item.
func (s *ItemServiceImpl) Create(ctx context.Context, sess *session.Session, payload envelope.Payload, meta model.Metadata) (*model.VaultItem, error) {
	key, err := sess.Key()
	if err != nil {
		return nil, err
	}
	ct, nonce, err := envelope.Encode(payload, key)
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
		Metadata:   meta,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Decrypt opens one owned item.
func (s *ItemServiceImpl) Decrypt(ctx context.Context, sess *session.Session, itemID uuid.UUID) (envelope.Payload, error) {
	key, err := sess.Key()
	if err != nil {
		return nil, err
	}
	item, err := s.items.Get(ctx, sess.UserID(), itemID)
	if err != nil {
		return nil, err
	}
	return envelope.Decode(item.Ciphertext, item.Nonce, key)
}

// List returns the caller's items without touching any key material.
func (s *ItemServiceImpl) List(ctx context.Context, sess *session.Session) ([]model.VaultItem, error) {
	return s.items.ListByOwner(ctx, sess.UserID())
}

// Update re-seals the payload in place.
func (s *ItemServiceImpl) Update(ctx context.Context, sess *session.Session, itemID uuid.UUID, payload envelope.Payload, meta model.Metadata) error {
	key, err := sess.Key()
	if err != nil {
		return err
	}
	ct, nonce, err := envelope.Encode(payload, key)
	if err != nil {
		return err
	}
	return s.items.Update(ctx, sess.UserID(), itemID, ct, nonce, meta)
}

// Delete removes an owned item.
func (s *ItemServiceImpl) Delete(ctx context.Context, sess *session.Session, itemID uuid.UUID) error {
	return s.items.Delete(ctx, sess.UserID(), itemID)
}
