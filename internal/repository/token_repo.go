package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-user-service/internal/model"
)

// TokenRepository persists issued refresh tokens. Save is the only operation:
// rows are written at login and never read back or mutated here. The schema
// keeps jti and token unique so a future revocation path can key on either.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Save(ctx context.Context, t model.RefreshToken) (model.RefreshToken, error) {
	t.CreatedAt = time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO refresh_tokens (user_id, jti, token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		t.UserID, t.JTI, t.Token, t.ExpiresAt, t.CreatedAt).
		Scan(&t.ID)

	if field, ok := uniqueViolationField(err); ok {
		return model.RefreshToken{}, fmt.Errorf("%w: %s", model.ErrDuplicateToken, field)
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("save refresh token: %w", err)
	}
	return t, nil
}
