// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/planner-vault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// MasterKeyRepository stores per-user master key records.
type MasterKeyRepository interface {
	// Create inserts the record for a user. Returns errs.ErrAlreadyExists if
	// one is present.
	Create(ctx context.Context, rec *model.MasterKeyRecord) error
	// Get loads the record for a user.
	Get(ctx context.Context, userID uuid.UUID) (*model.MasterKeyRecord, error)
	// Replace atomically swaps the record after a passphrase change.
	Replace(ctx context.Context, rec *model.MasterKeyRecord) error
}
