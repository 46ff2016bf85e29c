package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository persists key/value configuration in the settings table.
type SettingsRepository interface {
	Get(ctx context.Context, key, fallback string) (string, error)
	Save(ctx context.Context, values map[string]string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a Postgres-backed implementation.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context, key, fallback string) (string, error) {
	const query = `SELECT value FROM settings WHERE key=$1`

	var value string
	if err := r.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if err == pgx.ErrNoRows {
			return fallback, nil
		}
		return "", err
	}
	if value == "" {
		return fallback, nil
	}
	return value, nil
}

func (r *settingsRepository) Save(ctx context.Context, values map[string]string) error {
	const query = `
        INSERT INTO settings (key, value)
        VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for key, value := range values {
		if _, err := tx.Exec(ctx, query, key, value); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *settingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	const query = `SELECT key, value FROM settings`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, rows.Err()
}
