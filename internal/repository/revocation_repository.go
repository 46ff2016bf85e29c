package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/token-service/internal/domain"
)

// RevocationRepository defines persistence access for revoked token records
// and cutoff markers. It satisfies auth.RevocationStore.
type RevocationRepository interface {
	Add(ctx context.Context, record domain.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	MarkerRevokedAt(ctx context.Context, jti string) (int64, bool, error)
	DeleteExpired(ctx context.Context, now int64) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.RevokedToken, error)
}

type revocationRepository struct {
	pool *pgxpool.Pool
}

// NewRevocationRepository returns a Postgres-backed implementation.
func NewRevocationRepository(pool *pgxpool.Pool) RevocationRepository {
	return &revocationRepository{pool: pool}
}

// Add upserts on jti: re-revoking a token or moving a marker forward both
// resolve to a single row.
func (r *revocationRepository) Add(ctx context.Context, record domain.RevokedToken) error {
	const query = `
        INSERT INTO jwt_revoked_tokens (jti, user_id, token_type, revoked_at, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (jti) DO UPDATE
            SET revoked_at=EXCLUDED.revoked_at, expires_at=EXCLUDED.expires_at`

	_, err := r.pool.Exec(ctx, query,
		record.JTI,
		record.UserID,
		record.TokenType,
		record.RevokedAt,
		record.ExpiresAt,
	)
	return err
}

func (r *revocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM jwt_revoked_tokens WHERE jti=$1)`

	var revoked bool
	if err := r.pool.QueryRow(ctx, query, jti).Scan(&revoked); err != nil {
		return false, err
	}
	return revoked, nil
}

func (r *revocationRepository) MarkerRevokedAt(ctx context.Context, jti string) (int64, bool, error) {
	const query = `SELECT revoked_at FROM jwt_revoked_tokens WHERE jti=$1`

	var revokedAt int64
	if err := r.pool.QueryRow(ctx, query, jti).Scan(&revokedAt); err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return revokedAt, true, nil
}

// DeleteExpired prunes records for tokens past their own expiry. Marker rows
// carry synthetic double-underscore JTIs and are excluded; their retention is
// governed by their own expires_at, set a year out.
func (r *revocationRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	const query = `DELETE FROM jwt_revoked_tokens WHERE expires_at < $1 AND left(jti, 2) <> '__'`

	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *revocationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.RevokedToken, error) {
	const query = `
        SELECT jti, user_id, token_type, revoked_at, expires_at
        FROM jwt_revoked_tokens WHERE user_id=$1 ORDER BY revoked_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.RevokedToken
	for rows.Next() {
		var record domain.RevokedToken
		if err := rows.Scan(
			&record.JTI,
			&record.UserID,
			&record.TokenType,
			&record.RevokedAt,
			&record.ExpiresAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
