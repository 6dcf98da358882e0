// Package session holds the unlocked master key for the duration of a
// session. It replaces ambient global key state with an explicit handle
// passed into every operation: created on unlock, destroyed on lock.
package session

import (
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/planner-vault/internal/crypto"
	"github.com/and161185/planner-vault/internal/errs"
	"github.com/and161185/planner-vault/internal/model"
)

// Session is an unlocked vault handle. The key lives only in memory and is
// zeroed on Lock; it must never reach durable storage or logs.
type Session struct {
	mu        sync.RWMutex
	userID    uuid.UUID
	key       model.SymmetricKey
	createdAt time.Time
}

// New creates an unlocked session for the given user. The session takes
// ownership of key.
func New(userID uuid.UUID, key model.SymmetricKey) *Session {
	return &Session{userID: userID, key: key, createdAt: time.Now()}
}

// UserID returns the session owner.
func (s *Session) UserID() uuid.UUID { return s.userID }

// CreatedAt returns the unlock time, for the caller's auto-lock policy.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Key returns the master key, or errs.ErrNotUnlocked once the session is
// locked.
func (s *Session) Key() (model.SymmetricKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, errs.ErrNotUnlocked
	}
	return s.key, nil
}

// Replace swaps in a new master key after a passphrase change. The old key
// is zeroed.
func (s *Session) Replace(key model.SymmetricKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		crypto.Zero(s.key)
	}
	s.key = key
}

// Lock zeroes the key and invalidates the session. Safe to call twice.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		crypto.Zero(s.key)
		s.key = nil
	}
}
