package repository

import (
	"context"

	"github.com/and161185/planner-vault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ItemRepository provides access to encrypted vault items.
type ItemRepository interface {
	// Create inserts a new item.
	Create(ctx context.Context, item *model.VaultItem) error
	// Get returns a single item owned by ownerID.
	Get(ctx context.Context, ownerID, itemID uuid.UUID) (*model.VaultItem, error)
	// ListByOwner returns all items owned by a user.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.VaultItem, error)
	// UpdateCiphertext replaces the sealed body of an item, leaving plaintext
	// metadata untouched (used by passphrase-change re-encryption).
	UpdateCiphertext(ctx context.Context, ownerID, itemID uuid.UUID, ciphertext, nonce []byte) error
	// Update replaces the sealed body and the plaintext metadata of an item.
	Update(ctx context.Context, ownerID, itemID uuid.UUID, ciphertext, nonce []byte, meta model.Metadata) error
	// Delete removes an item.
	Delete(ctx context.Context, ownerID, itemID uuid.UUID) error
}
