package repository

import (
	"context"

	"github.com/and161185/planner-vault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ShareRepository stores shared items: one row per (item, group) pair.
// Unlike grants, revocation is a hard delete.
type ShareRepository interface {
	// Insert persists a new share. Returns errs.ErrAlreadyExists when the
	// (item, group) pair is already shared.
	Insert(ctx context.Context, share *model.SharedItem) error
	// Get returns a share by id.
	Get(ctx context.Context, shareID uuid.UUID) (*model.SharedItem, error)
	// ListByGroups returns all shares visible to a member of the given groups.
	ListByGroups(ctx context.Context, groupIDs []uuid.UUID) ([]model.SharedItem, error)
	// ListByItem returns every share of one source item.
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.SharedItem, error)
	// UpdateCiphertext re-seals a share after the source item changed.
	UpdateCiphertext(ctx context.Context, share *model.SharedItem) error
	// Delete hard-deletes a share row.
	Delete(ctx context.Context, shareID uuid.UUID) error
}
