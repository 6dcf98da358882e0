package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/planner-vault/internal/errs"
	"github.com/and161185/planner-vault/internal/model"
)

// KeyPairRepo implements KeyPairRepository using PostgreSQL.
type KeyPairRepo struct{ db *DB }

// NewKeyPairRepo constructs a key pair repository.
func NewKeyPairRepo(db *DB) *KeyPairRepo { return &KeyPairRepo{db: db} }

// Create inserts a user's key pair.
func (r *KeyPairRepo) Create(ctx context.Context, kp *model.KeyPair) error {
	const q = `INSERT INTO key_pairs (user_id, public_key_spki, wrapped_private_key, wrap_nonce) VALUES ($1,$2,$3,$4)`
	_, err := r.db.Pool.Exec(ctx, q, kp.UserID, b64(kp.PublicKeySPKI), b64(kp.WrappedPrivateKey), b64(kp.WrapNonce))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get loads a user's key pair.
func (r *KeyPairRepo) Get(ctx context.Context, userID uuid.UUID) (*model.KeyPair, error) {
	const q = `SELECT user_id, public_key_spki, wrapped_private_key, wrap_nonce, created_at
FROM key_pairs WHERE user_id=$1`
	var (
		kp          model.KeyPair
		pub, wp, wn string
	)
	err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&kp.UserID, &pub, &wp, &wn, &kp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if kp.PublicKeySPKI, err = unb64(pub, "public_key_spki"); err != nil {
		return nil, err
	}
	if kp.WrappedPrivateKey, err = unb64(wp, "wrapped_private_key"); err != nil {
		return nil, err
	}
	if kp.WrapNonce, err = unb64(wn, "wrap_nonce"); err != nil {
		return nil, err
	}
	return &kp, nil
}

// GetPublicKey loads only the plaintext public key of any user.
func (r *KeyPairRepo) GetPublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	const q = `SELECT public_key_spki FROM key_pairs WHERE user_id=$1`
	var pub string
	err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&pub)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return unb64(pub, "public_key_spki")
}
