package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StateStore is a small key-value persistence capability: the non-browser
// equivalent of localStorage. Get reports ok == false for a missing key.
type StateStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// PostgresStateRepo stores values in the client_state table.
type PostgresStateRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresStateRepo(pool *pgxpool.Pool) *PostgresStateRepo {
	return &PostgresStateRepo{pool: pool}
}

func (r *PostgresStateRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, "SELECT value FROM client_state WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *PostgresStateRepo) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO client_state (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, key, value)
	return err
}

func (r *PostgresStateRepo) Delete(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM client_state WHERE key = $1", key)
	return err
}
