package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/dreyes/amparo/internal/database"
	"github.com/dreyes/amparo/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rowScanner abstracts pgx.Row and pgx.Rows for the scan helpers
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// LoginAttemptRepository handles database operations for login attempts
type LoginAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{pool: db.Pool}
}

func scanLoginAttemptRow(row rowScanner) (*models.LoginAttempt, error) {
	var attempt models.LoginAttempt
	var userAgent *string

	err := row.Scan(
		&attempt.ID, &attempt.Username, &attempt.IPAddress, &userAgent,
		&attempt.Success, &attempt.FailureReason, &attempt.AttemptedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if userAgent != nil {
		attempt.UserAgent = *userAgent
	}

	return &attempt, nil
}

// Record appends one login attempt row. Rows are immutable once written.
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (username, ip_address, user_agent, success, failure_reason)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		attempt.Username,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Success,
		attempt.FailureReason,
	)

	return err
}

// CountFailedSince returns the number of failed attempts for a username
// within the trailing window starting at since
func (r *LoginAttemptRepository) CountFailedSince(ctx context.Context, username string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE username = $1 AND success = false AND attempted_at >= $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, username, since).Scan(&count)
	return count, err
}

// CountSince returns total and successful attempt counts since the given time
func (r *LoginAttemptRepository) CountSince(ctx context.Context, since time.Time) (total, successful int64, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE success)
		FROM login_attempts
		WHERE attempted_at >= $1
	`

	err = r.pool.QueryRow(ctx, query, since).Scan(&total, &successful)
	return total, successful, err
}

// CountDistinctSuccessfulUsers returns how many distinct usernames logged in
// successfully since the given time
func (r *LoginAttemptRepository) CountDistinctSuccessfulUsers(ctx context.Context, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT username) FROM login_attempts
		WHERE success = true AND attempted_at >= $1
	`

	var count int64
	err := r.pool.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

// ListFailedSince returns the most recent failed attempts within the window,
// newest first, capped at limit
func (r *LoginAttemptRepository) ListFailedSince(ctx context.Context, since time.Time, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, username, ip_address, user_agent, success, failure_reason, attempted_at
		FROM login_attempts
		WHERE success = false AND attempted_at >= $1
		ORDER BY attempted_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}

	return scanLoginAttemptRows(rows)
}

func scanLoginAttemptRows(rows pgx.Rows) ([]*models.LoginAttempt, error) {
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)

	for rows.Next() {
		attempt, err := scanLoginAttemptRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login attempt rows: %w", err)
	}

	return attempts, nil
}

// DeleteOlderThan prunes attempt rows past the retention horizon. Only the
// background compactor calls this; the request path never deletes.
func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempted_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune login attempts: %w", err)
	}

	return result.RowsAffected(), nil
}
