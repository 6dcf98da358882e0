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

// GrantRepo implements GrantRepository using PostgreSQL. The partial unique
// index on (group_id, user_id) WHERE active makes concurrent key minting
// first-writer-wins: the loser gets a unique violation and re-fetches.
type GrantRepo struct{ db *DB }

// NewGrantRepo constructs a grant repository.
func NewGrantRepo(db *DB) *GrantRepo { return &GrantRepo{db: db} }

// Insert persists a new active grant.
func (r *GrantRepo) Insert(ctx context.Context, grant *model.GroupKeyGrant) error {
	const q = `INSERT INTO group_key_grants (id, group_id, user_id, wrapped_group_key, wrap_nonce, active)
VALUES ($1,$2,$3,$4,$5,true)`
	_, err := r.db.Pool.Exec(ctx, q,
		grant.ID, grant.GroupID, grant.UserID, b64(grant.WrappedGroupKey), b64(grant.WrapNonce))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetActive returns the single active grant for (groupID, userID).
func (r *GrantRepo) GetActive(ctx context.Context, groupID, userID uuid.UUID) (*model.GroupKeyGrant, error) {
	const q = `SELECT id, group_id, user_id, wrapped_group_key, wrap_nonce, granted_at, revoked_at, active
FROM group_key_grants WHERE group_id=$1 AND user_id=$2 AND active`
	row := r.db.Pool.QueryRow(ctx, q, groupID, userID)
	grant, err := scanGrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// ListActiveByUser returns every active grant held by a user.
func (r *GrantRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.GroupKeyGrant, error) {
	const q = `SELECT id, group_id, user_id, wrapped_group_key, wrap_nonce, granted_at, revoked_at, active
FROM group_key_grants WHERE user_id=$1 AND active ORDER BY granted_at`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []model.GroupKeyGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, *g)
	}
	return grants, rows.Err()
}

// Revoke soft-deletes the active grant for (groupID, userID). The row stays
// behind with revoked_at set, preserving the audit of past access.
func (r *GrantRepo) Revoke(ctx context.Context, groupID, userID uuid.UUID, at time.Time) error {
	const q = `UPDATE group_key_grants SET active=false, revoked_at=$3
WHERE group_id=$1 AND user_id=$2 AND active`
	tag, err := r.db.Pool.Exec(ctx, q, groupID, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdateWrapped replaces the wrapped key material of a grant.
func (r *GrantRepo) UpdateWrapped(ctx context.Context, grantID uuid.UUID, wrappedKey, wrapNonce []byte) error {
	const q = `UPDATE group_key_grants SET wrapped_group_key=$2, wrap_nonce=$3 WHERE id=$1 AND active`
	tag, err := r.db.Pool.Exec(ctx, q, grantID, b64(wrappedKey), b64(wrapNonce))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanGrant(row pgx.Row) (*model.GroupKeyGrant, error) {
	var (
		g      model.GroupKeyGrant
		wk, wn string
	)
	if err := row.Scan(&g.ID, &g.GroupID, &g.UserID, &wk, &wn, &g.GrantedAt, &g.RevokedAt, &g.Active); err != nil {
		return nil, err
	}
	var err error
	if g.WrappedGroupKey, err = unb64(wk, "wrapped_group_key"); err != nil {
		return nil, err
	}
	if g.WrapNonce, err = unb64(wn, "wrap_nonce"); err != nil {
		return nil, err
	}
	return &g, nil
}
