package services

import (
	"context"
	"log/slog"

	"github.com/dreyes/amparo/internal/models"
)

// AuditStore persists operator-facing audit rows
type AuditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// ActivityStore persists and reads the per-user activity trail
type ActivityStore interface {
	Create(ctx context.Context, entry *models.UserActivityLog) error
	ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.UserActivityLog, error)
	CountByUserID(ctx context.Context, userID int64) (int64, error)
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// ActivityService writes the audit and activity trails with a dual-write
// pattern (slog + database). Store failures are logged and swallowed: audit
// bookkeeping must never be the reason a user-facing operation fails.
type ActivityService struct {
	audits     AuditStore
	activities ActivityStore
	logger     *slog.Logger
}

// NewActivityService creates a new ActivityService
func NewActivityService(audits AuditStore, activities ActivityStore, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		audits:     audits,
		activities: activities,
		logger:     logger,
	}
}

// LogActivity appends a security audit row. Errors never propagate.
func (s *ActivityService) LogActivity(ctx context.Context, log *models.AuditLog) {
	if log.Success {
		s.logger.InfoContext(ctx, "audit event",
			slog.String("action", log.Action),
			slog.Any("user_id", log.UserID),
			slog.Any("details", log.Details),
		)
	} else {
		s.logger.WarnContext(ctx, "audit event failed",
			slog.String("action", log.Action),
			slog.Any("user_id", log.UserID),
			slog.Any("details", log.Details),
		)
	}

	if err := s.audits.Create(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", log.Action),
			slog.Any("error", err),
		)
	}
}

// LogUserActivity appends a row to the user-facing activity trail. Errors
// never propagate.
func (s *ActivityService) LogUserActivity(ctx context.Context, entry *models.UserActivityLog) {
	s.logger.InfoContext(ctx, "user activity",
		slog.String("action", entry.Action),
		slog.Any("user_id", entry.UserID),
		slog.Bool("success", entry.Success),
	)

	if err := s.activities.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist activity log",
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
	}
}

// GetUserActivity returns one page of a user's activity, newest first. A
// store failure yields an empty page, not an error.
func (s *ActivityService) GetUserActivity(ctx context.Context, userID int64, page, limit int) *models.ActivityPage {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	offset := (page - 1) * limit

	entries, err := s.activities.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list user activity",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		return emptyActivityPage(page, limit)
	}

	total, err := s.activities.CountByUserID(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count user activity",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		return emptyActivityPage(page, limit)
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}

	return &models.ActivityPage{
		Activities: entries,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

func emptyActivityPage(page, limit int) *models.ActivityPage {
	return &models.ActivityPage{
		Activities: []*models.UserActivityLog{},
		Total:      0,
		Page:       page,
		Limit:      limit,
		TotalPages: 0,
	}
}
