package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskhub/internal/model"
)

type TokenRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTokenRepository(db *pgxpool.Pool, logger *zap.Logger) *TokenRepository {
	return &TokenRepository{db: db, logger: logger}
}

func (r *TokenRepository) Insert(ctx context.Context, t *model.AccessToken) error {
	query := `
        INSERT INTO access_tokens (id, user_id, name, token_hash, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at
    `
	err := r.db.QueryRow(ctx, query, t.ID, t.UserID, t.Name, t.TokenHash, t.ExpiresAt).Scan(&t.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert access token",
			zap.Int64("user_id", t.UserID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *TokenRepository) FindByID(ctx context.Context, id string) (*model.AccessToken, error) {
	query := `
        SELECT id, user_id, name, token_hash, created_at, expires_at
        FROM access_tokens
        WHERE id = $1
    `
	var t model.AccessToken
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM access_tokens WHERE id = $1`, id)
	if err != nil {
		return err
	}
	r.logger.Debug("Access token deleted",
		zap.String("token_id", id),
		zap.Int64("rows_affected", tag.RowsAffected()),
	)
	return nil
}

// DeleteExpired prunes tokens whose expiry has passed.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM access_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
