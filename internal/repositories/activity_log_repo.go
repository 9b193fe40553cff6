package repositories

import (
	"context"
	"fmt"

	"github.com/dreyes/amparo/internal/database"
	"github.com/dreyes/amparo/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityLogRepository handles the per-user activity trail
type ActivityLogRepository struct {
	pool *pgxpool.Pool
}

// NewActivityLogRepository creates a new ActivityLogRepository
func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{pool: db.Pool}
}

func scanActivityRow(row rowScanner) (*models.UserActivityLog, error) {
	var entry models.UserActivityLog

	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.Username, &entry.Action,
		&entry.IPAddress, &entry.UserAgent, &entry.Success, &entry.Details,
		&entry.Timestamp,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

func scanActivityRows(rows pgx.Rows) ([]*models.UserActivityLog, error) {
	defer rows.Close()

	entries := make([]*models.UserActivityLog, 0)

	for rows.Next() {
		entry, err := scanActivityRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity log rows: %w", err)
	}

	return entries, nil
}

// Create appends one activity row
func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.UserActivityLog) error {
	query := `
		INSERT INTO user_activity_logs (user_id, username, action, ip_address, user_agent, success, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, timestamp
	`

	err := r.pool.QueryRow(ctx, query,
		entry.UserID, entry.Username, entry.Action,
		entry.IPAddress, entry.UserAgent, entry.Success, entry.Details,
	).Scan(&entry.ID, &entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}

	return nil
}

// ListByUserID retrieves a page of a user's activity, newest first
func (r *ActivityLogRepository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.UserActivityLog, error) {
	query := `
		SELECT id, user_id, username, action, ip_address, user_agent, success, details, timestamp
		FROM user_activity_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}

	return scanActivityRows(rows)
}

// CountByUserID counts activity rows for a user
func (r *ActivityLogRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM user_activity_logs WHERE user_id = $1`

	var count int64
	err := r.pool.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count activity logs: %w", err)
	}

	return count, nil
}
