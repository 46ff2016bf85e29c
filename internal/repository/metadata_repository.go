package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MetadataRepository defines persistence access for per-user key/value
// metadata.
type MetadataRepository interface {
	GetAll(ctx context.Context, userID int64) (map[string]string, error)
	Get(ctx context.Context, userID int64, name, fallback string) (string, error)
	Save(ctx context.Context, userID int64, values map[string]string) error
	Remove(ctx context.Context, userID int64, name string) error
}

type metadataRepository struct {
	pool *pgxpool.Pool
}

// NewMetadataRepository returns a Postgres-backed implementation.
func NewMetadataRepository(pool *pgxpool.Pool) MetadataRepository {
	return &metadataRepository{pool: pool}
}

func (r *metadataRepository) GetAll(ctx context.Context, userID int64) (map[string]string, error) {
	const query = `SELECT name, value FROM user_metadata WHERE user_id=$1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		values[name] = value
	}
	return values, rows.Err()
}

func (r *metadataRepository) Get(ctx context.Context, userID int64, name, fallback string) (string, error) {
	const query = `SELECT value FROM user_metadata WHERE user_id=$1 AND name=$2`

	var value string
	if err := r.pool.QueryRow(ctx, query, userID, name).Scan(&value); err != nil {
		if err == pgx.ErrNoRows {
			return fallback, nil
		}
		return "", err
	}
	return value, nil
}

func (r *metadataRepository) Save(ctx context.Context, userID int64, values map[string]string) error {
	const query = `
        INSERT INTO user_metadata (user_id, name, value)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, name) DO UPDATE SET value=EXCLUDED.value`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for name, value := range values {
		if _, err := tx.Exec(ctx, query, userID, name, value); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *metadataRepository) Remove(ctx context.Context, userID int64, name string) error {
	const query = `DELETE FROM user_metadata WHERE user_id=$1 AND name=$2`

	cmd, err := r.pool.Exec(ctx, query, userID, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
