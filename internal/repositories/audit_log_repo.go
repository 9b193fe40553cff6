package repositories

import (
	"context"
	"fmt"

	"github.com/dreyes/amparo/internal/database"
	"github.com/dreyes/amparo/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogRepository handles the operator-facing security audit trail
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

// Create appends one audit row
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (user_id, username, action, ip_address, user_agent, success, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, timestamp
	`

	err := r.pool.QueryRow(ctx, query,
		log.UserID, log.Username, log.Action,
		log.IPAddress, log.UserAgent, log.Success, log.Details,
	).Scan(&log.ID, &log.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}
