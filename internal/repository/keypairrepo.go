package repository

import (
	"context"

	"github.com/and161185/planner-vault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// KeyPairRepository stores RSA key pairs for the asymmetric exchange path.
type KeyPairRepository interface {
	// Create inserts a user's key pair. Returns errs.ErrAlreadyExists if one
	// is present.
	Create(ctx context.Context, kp *model.KeyPair) error
	// Get loads a user's key pair.
	Get(ctx context.Context, userID uuid.UUID) (*model.KeyPair, error)
	// GetPublicKey loads only the plaintext public key of any user.
	GetPublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error)
}
