package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/planner-vault/internal/errs"
	"github.com/and161185/planner-vault/internal/model"
)

// MasterKeyRepo implements MasterKeyRepository using PostgreSQL.
type MasterKeyRepo struct{ db *DB }

// NewMasterKeyRepo constructs a master key repository.
func NewMasterKeyRepo(db *DB) *MasterKeyRepo { return &MasterKeyRepo{db: db} }

// Create inserts the record for a user.
func (r *MasterKeyRepo) Create(ctx context.Context, rec *model.MasterKeyRecord) error {
	const q = `INSERT INTO master_keys (user_id, salt, iterations, verification_hash) VALUES ($1,$2,$3,$4)`
	_, err := r.db.Pool.Exec(ctx, q, rec.UserID, b64(rec.Salt), rec.Iterations, hexs(rec.VerificationHash))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get loads the record for a user.
func (r *MasterKeyRepo) Get(ctx context.Context, userID uuid.UUID) (*model.MasterKeyRecord, error) {
	const q = `SELECT user_id, salt, iterations, verification_hash, created_at, updated_at
FROM master_keys WHERE user_id=$1`
	var (
		rec      model.MasterKeyRecord
		salt, vh string
	)
	err := r.db.Pool.QueryRow(ctx, q, userID).
		Scan(&rec.UserID, &salt, &rec.Iterations, &vh, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.Salt, err = unb64(salt, "salt"); err != nil {
		return nil, err
	}
	if rec.VerificationHash, err = unhex(vh, "verification_hash"); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Replace swaps the record after a passphrase change.
func (r *MasterKeyRepo) Replace(ctx context.Context, rec *model.MasterKeyRecord) error {
	const q = `UPDATE master_keys SET salt=$2, iterations=$3, verification_hash=$4, updated_at=$5
WHERE user_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, rec.UserID, b64(rec.Salt), rec.Iterations, hexs(rec.VerificationHash), time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
