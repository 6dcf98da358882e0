package repository

import (
	"context"
	"time"

	"github.com/and161185/planner-vault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// GrantRepository stores wrapped group key grants. Grants are append-only:
// revocation flips the active flag, rows are never deleted.
type GrantRepository interface {
	// Insert persists a new active grant. Returns errs.ErrAlreadyExists when
	// an active grant for (groupID, userID) is already present, so concurrent
	// minters converge on the first writer's key.
	Insert(ctx context.Context, grant *model.GroupKeyGrant) error
	// GetActive returns the single active grant for (groupID, userID).
	GetActive(ctx context.Context, groupID, userID uuid.UUID) (*model.GroupKeyGrant, error)
	// ListActiveByUser returns every active grant held by a user.
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.GroupKeyGrant, error)
	// Revoke soft-deletes the active grant for (groupID, userID).
	Revoke(ctx context.Context, groupID, userID uuid.UUID, at time.Time) error
	// UpdateWrapped replaces the wrapped key material of a grant, used when
	// the member's master key changes.
	UpdateWrapped(ctx context.Context, grantID uuid.UUID, wrappedKey, wrapNonce []byte) error
}
