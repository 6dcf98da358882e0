// Package limiter throttles passphrase unlock attempts. PBKDF2 makes each
// guess expensive for the client but the stored verification hash is still
// brute-forceable online, so repeated failures place a temporary lockout.
package limiter

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Guard controls unlock attempts and temporary lockouts per user.
type Guard interface {
	// Allow reports whether an unlock attempt is currently permitted and,
	// when it is not, how long until the lockout expires.
	Allow(ctx context.Context, userID uuid.UUID) (bool, time.Duration, error)
	// Success resets the failure counter after a correct passphrase.
	Success(ctx context.Context, userID uuid.UUID) error
	// Failure records a wrong passphrase; may place a temporary block.
	Failure(ctx context.Context, userID uuid.UUID) (bool, time.Duration, error)
}
