package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AvatarRepository defines persistence access for user avatar images.
type AvatarRepository interface {
	Upsert(ctx context.Context, userID int64, image []byte, contentType string) error
	Get(ctx context.Context, userID int64) ([]byte, string, error)
	Remove(ctx context.Context, userID int64) error
}

type avatarRepository struct {
	pool *pgxpool.Pool
}

// NewAvatarRepository returns a Postgres-backed implementation.
func NewAvatarRepository(pool *pgxpool.Pool) AvatarRepository {
	return &avatarRepository{pool: pool}
}

func (r *avatarRepository) Upsert(ctx context.Context, userID int64, image []byte, contentType string) error {
	const query = `
        INSERT INTO user_avatars (user_id, image, content_type, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user_id) DO UPDATE
            SET image=EXCLUDED.image, content_type=EXCLUDED.content_type, updated_at=NOW()`

	_, err := r.pool.Exec(ctx, query, userID, image, contentType)
	return err
}

func (r *avatarRepository) Get(ctx context.Context, userID int64) ([]byte, string, error) {
	const query = `SELECT image, content_type FROM user_avatars WHERE user_id=$1`

	var image []byte
	var contentType string
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&image, &contentType); err != nil {
		return nil, "", err
	}
	return image, contentType, nil
}

func (r *avatarRepository) Remove(ctx context.Context, userID int64) error {
	const query = `DELETE FROM user_avatars WHERE user_id=$1`

	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
