package repository

import (
	"context"
	"database/sql"
	"errors"
)

// SQLiteStateRepo expects the client_state table created by database.OpenSQLite.
type SQLiteStateRepo struct {
	db *sql.DB
}

func NewSQLiteStateRepo(db *sql.DB) *SQLiteStateRepo {
	return &SQLiteStateRepo{db: db}
}

func (r *SQLiteStateRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM client_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SQLiteStateRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, unixepoch())
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	return err
}

func (r *SQLiteStateRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM client_state WHERE key = ?", key)
	return err
}
