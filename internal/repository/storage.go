package repository

import (
	"context"
	"database/sql"
)

// StorageRepo is a small key/value table that plays the role of the
// browser's local storage: it holds the session token and nothing else.
type StorageRepo struct {
	db *sql.DB
}

func NewStorageRepo(db *sql.DB) *StorageRepo {
	return &StorageRepo{db: db}
}

// Get returns the stored value and whether the key exists.
func (r *StorageRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM storage WHERE key = ?",
		key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *StorageRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO storage (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

func (r *StorageRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM storage WHERE key = ?", key)
	return err
}
