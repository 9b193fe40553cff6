package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/dreyes/amparo/internal/database"
	"github.com/dreyes/amparo/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordResetRepository handles single-use reset tokens
type PasswordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository creates a new PasswordResetRepository
func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{pool: db.Pool}
}

// Create stores a freshly issued token
func (r *PasswordResetRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, email, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		token.UserID, token.Token, token.Email, token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", database.MapPostgresError(err))
	}

	return nil
}

// GetByToken looks up a token by its opaque value
func (r *PasswordResetRepository) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, email, expires_at, is_used, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`

	var t models.PasswordResetToken
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&t.ID, &t.UserID, &t.Token, &t.Email, &t.ExpiresAt, &t.IsUsed, &t.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &t, nil
}

// MarkUsed consumes a token. The WHERE clause makes consumption atomic: a
// second caller racing on the same token sees zero rows affected.
func (r *PasswordResetRepository) MarkUsed(ctx context.Context, token string) error {
	query := `
		UPDATE password_reset_tokens SET is_used = true
		WHERE token = $1 AND is_used = false
	`

	result, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrTokenAlreadyUsed
	}

	return nil
}

// DeleteExpired prunes tokens past their expiry
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE expires_at < $1`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reset tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
