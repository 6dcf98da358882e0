package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/planner-vault/internal/errs"
	"github.com/and161185/planner-vault/internal/model"
)

// ShareRepo implements ShareRepository using PostgreSQL.
type ShareRepo struct{ db *DB }

// NewShareRepo constructs a share repository.
func NewShareRepo(db *DB) *ShareRepo { return &ShareRepo{db: db} }

const shareCols = `id, item_id, group_id, shared_by, share_mode, group_ciphertext, group_nonce, metadata, ver, last_updated_by, last_updated_at, shared_at`

// Insert persists a new share, one row per (item, group).
func (r *ShareRepo) Insert(ctx context.Context, share *model.SharedItem) error {
	meta, err := metaJSON(share.Metadata)
	if err != nil {
		return err
	}
	const q = `INSERT INTO shared_items (id, item_id, group_id, shared_by, share_mode, group_ciphertext, group_nonce, metadata, ver, last_updated_by, last_updated_at, shared_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = r.db.Pool.Exec(ctx, q,
		share.ID, share.ItemID, share.GroupID, share.SharedBy, string(share.Mode),
		b64(share.GroupCiphertext), b64(share.GroupNonce), meta,
		share.Version, share.LastUpdatedBy, share.LastUpdatedAt, share.SharedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get returns a share by id.
func (r *ShareRepo) Get(ctx context.Context, shareID uuid.UUID) (*model.SharedItem, error) {
	q := `SELECT ` + shareCols + ` FROM shared_items WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, shareID)
	share, err := scanShare(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return share, nil
}

// ListByGroups returns all shares for the given groups.
func (r *ShareRepo) ListByGroups(ctx context.Context, groupIDs []uuid.UUID) ([]model.SharedItem, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	q := `SELECT ` + shareCols + ` FROM shared_items WHERE group_id = ANY($1) ORDER BY shared_at`
	rows, err := r.db.Pool.Query(ctx, q, groupIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShares(rows)
}

// ListByItem returns every share of one source item.
func (r *ShareRepo) ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.SharedItem, error) {
	q := `SELECT ` + shareCols + ` FROM shared_items WHERE item_id=$1 ORDER BY shared_at`
	rows, err := r.db.Pool.Query(ctx, q, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShares(rows)
}

// UpdateCiphertext re-seals a share after the source item changed.
func (r *ShareRepo) UpdateCiphertext(ctx context.Context, share *model.SharedItem) error {
	meta, err := metaJSON(share.Metadata)
	if err != nil {
		return err
	}
	const q = `UPDATE shared_items SET group_ciphertext=$2, group_nonce=$3, metadata=$4, ver=$5, last_updated_by=$6, last_updated_at=$7
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q,
		share.ID, b64(share.GroupCiphertext), b64(share.GroupNonce), meta,
		share.Version, share.LastUpdatedBy, share.LastUpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete hard-deletes a share row.
func (r *ShareRepo) Delete(ctx context.Context, shareID uuid.UUID) error {
	const q = `DELETE FROM shared_items WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, shareID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func collectShares(rows pgx.Rows) ([]model.SharedItem, error) {
	var shares []model.SharedItem
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, *s)
	}
	return shares, rows.Err()
}

func scanShare(row pgx.Row) (*model.SharedItem, error) {
	var (
		s       model.SharedItem
		mode    string
		ct, n   string
		metaRaw []byte
	)
	if err := row.Scan(&s.ID, &s.ItemID, &s.GroupID, &s.SharedBy, &mode, &ct, &n, &metaRaw,
		&s.Version, &s.LastUpdatedBy, &s.LastUpdatedAt, &s.SharedAt); err != nil {
		return nil, err
	}
	s.Mode = model.ShareMode(mode)
	var err error
	if s.GroupCiphertext, err = unb64(ct, "group_ciphertext"); err != nil {
		return nil, err
	}
	if s.GroupNonce, err = unb64(n, "group_nonce"); err != nil {
		return nil, err
	}
	if s.Metadata, err = unmetaJSON(metaRaw); err != nil {
		return nil, err
	}
	return &s, nil
}
