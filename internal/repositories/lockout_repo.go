package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/dreyes/amparo/internal/database"
	"github.com/dreyes/amparo/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LockoutRepository handles account lockout rows
type LockoutRepository struct {
	pool *pgxpool.Pool
}

// NewLockoutRepository creates a new LockoutRepository
func NewLockoutRepository(db *database.DB) *LockoutRepository {
	return &LockoutRepository{pool: db.Pool}
}

// Create opens a new lockout episode. Concurrent failures for the same
// username can insert more than one row; the read path tolerates that.
func (r *LockoutRepository) Create(ctx context.Context, lockout *models.AccountLockout) error {
	query := `
		INSERT INTO account_lockouts (username, ip_address, locked_until, attempt_count, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id, locked_at
	`

	err := r.pool.QueryRow(ctx, query,
		lockout.Username,
		lockout.IPAddress,
		lockout.LockedUntil,
		lockout.AttemptCount,
	).Scan(&lockout.ID, &lockout.LockedAt)
	if err != nil {
		return fmt.Errorf("failed to create lockout: %w", err)
	}

	lockout.IsActive = true
	return nil
}

// HasActiveLockout reports whether any lockout row currently blocks the
// username. Expired rows keep is_active=true; expiry is this comparison,
// not a stored flag.
func (r *LockoutRepository) HasActiveLockout(ctx context.Context, username string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM account_lockouts
			WHERE username = $1 AND is_active = true AND locked_until >= $2
		)
	`

	var locked bool
	err := r.pool.QueryRow(ctx, query, username, now).Scan(&locked)
	return locked, err
}

// DeactivateForUsername flips every active lockout row for the username to
// inactive. Returns the number of rows touched; zero is not an error.
func (r *LockoutRepository) DeactivateForUsername(ctx context.Context, username string) (int64, error) {
	query := `
		UPDATE account_lockouts SET is_active = false
		WHERE username = $1 AND is_active = true
	`

	result, err := r.pool.Exec(ctx, query, username)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate lockouts: %w", err)
	}

	return result.RowsAffected(), nil
}

// CountActive returns how many lockouts currently hold
func (r *LockoutRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM account_lockouts
		WHERE is_active = true AND locked_until >= $1
	`

	var count int64
	err := r.pool.QueryRow(ctx, query, now).Scan(&count)
	return count, err
}

// DeactivateExpired flips stale rows whose window has passed. Purely
// housekeeping for the compactor: the read path already filters on
// locked_until, so skipping this changes nothing observable.
func (r *LockoutRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE account_lockouts SET is_active = false
		WHERE is_active = true AND locked_until < $1
	`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired lockouts: %w", err)
	}

	return result.RowsAffected(), nil
}
