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

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ db *DB }

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

// Create inserts a new vault item.
func (r *ItemRepo) Create(ctx context.Context, item *model.VaultItem) error {
	meta, err := metaJSON(item.Metadata)
	if err != nil {
		return err
	}
	const q = `INSERT INTO vault_items (id, owner_id, ciphertext, nonce, metadata) VALUES ($1,$2,$3,$4,$5)`
	_, err = r.db.Pool.Exec(ctx, q, item.ID, item.OwnerID, b64(item.Ciphertext), b64(item.Nonce), meta)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get returns a single item owned by ownerID.
func (r *ItemRepo) Get(ctx context.Context, ownerID, itemID uuid.UUID) (*model.VaultItem, error) {
	const q = `SELECT id, owner_id, ciphertext, nonce, metadata, created_at, updated_at
FROM vault_items WHERE id=$1 AND owner_id=$2`
	row := r.db.Pool.QueryRow(ctx, q, itemID, ownerID)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListByOwner returns all items owned by a user.
func (r *ItemRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.VaultItem, error) {
	const q = `SELECT id, owner_id, ciphertext, nonce, metadata, created_at, updated_at
FROM vault_items WHERE owner_id=$1 ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.VaultItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateCiphertext replaces the sealed body of an item.
func (r *ItemRepo) UpdateCiphertext(ctx context.Context, ownerID, itemID uuid.UUID, ciphertext, nonce []byte) error {
	const q = `UPDATE vault_items SET ciphertext=$3, nonce=$4, updated_at=$5 WHERE id=$1 AND owner_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, itemID, ownerID, b64(ciphertext), b64(nonce), time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Update replaces the sealed body and the plaintext metadata of an item.
func (r *ItemRepo) Update(ctx context.Context, ownerID, itemID uuid.UUID, ciphertext, nonce []byte, meta model.Metadata) error {
	metaRaw, err := metaJSON(meta)
	if err != nil {
		return err
	}
	const q = `UPDATE vault_items SET ciphertext=$3, nonce=$4, metadata=$5, updated_at=$6 WHERE id=$1 AND owner_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, itemID, ownerID, b64(ciphertext), b64(nonce), metaRaw, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes an item.
func (r *ItemRepo) Delete(ctx context.Context, ownerID, itemID uuid.UUID) error {
	const q = `DELETE FROM vault_items WHERE id=$1 AND owner_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, itemID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (*model.VaultItem, error) {
	var (
		item    model.VaultItem
		ct, n   string
		metaRaw []byte
	)
	if err := row.Scan(&item.ID, &item.OwnerID, &ct, &n, &metaRaw, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if item.Ciphertext, err = unb64(ct, "ciphertext"); err != nil {
		return nil, err
	}
	if item.Nonce, err = unb64(n, "nonce"); err != nil {
		return nil, err
	}
	if item.Metadata, err = unmetaJSON(metaRaw); err != nil {
		return nil, err
	}
	return &item, nil
}
