package services

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/dreyes/amparo/internal/models"
)

const suspiciousActivityCap = 50

// AttemptStatsStore reads aggregate attempt data for reporting
type AttemptStatsStore interface {
	CountSince(ctx context.Context, since time.Time) (total, successful int64, err error)
	CountDistinctSuccessfulUsers(ctx context.Context, since time.Time) (int64, error)
	ListFailedSince(ctx context.Context, since time.Time, limit int) ([]*models.LoginAttempt, error)
}

// LockoutStatsStore reads aggregate lockout data for reporting
type LockoutStatsStore interface {
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

// ReportService answers the read-only dashboard queries. Store failures
// yield zeroed or empty results, never errors: a broken dashboard query
// must not take down the admin screens that embed it.
type ReportService struct {
	attempts AttemptStatsStore
	lockouts LockoutStatsStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(attempts AttemptStatsStore, lockouts LockoutStatsStore, logger *slog.Logger) *ReportService {
	return &ReportService{
		attempts: attempts,
		lockouts: lockouts,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the service clock for tests
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// GetSecurityStats aggregates login activity over the trailing number of
// days (default 30)
func (s *ReportService) GetSecurityStats(ctx context.Context, days int) models.SecurityStats {
	if days <= 0 {
		days = 30
	}
	now := s.now()
	since := now.Add(-time.Duration(days) * 24 * time.Hour)

	total, successful, err := s.attempts.CountSince(ctx, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count login attempts", slog.Any("error", err))
		return models.SecurityStats{}
	}

	activeLockouts, err := s.lockouts.CountActive(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count active lockouts", slog.Any("error", err))
		return models.SecurityStats{}
	}

	activeUsers, err := s.attempts.CountDistinctSuccessfulUsers(ctx, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count active users", slog.Any("error", err))
		return models.SecurityStats{}
	}

	return models.SecurityStats{
		TotalLogins:      total,
		SuccessfulLogins: successful,
		FailedLogins:     total - successful,
		SuccessRate:      successRate(successful, total),
		ActiveLockouts:   activeLockouts,
		ActiveUsers:      activeUsers,
	}
}

// GetSuspiciousActivity returns the most recent failed attempts within the
// trailing number of hours (default 24), newest first, capped at 50
func (s *ReportService) GetSuspiciousActivity(ctx context.Context, hours int) []*models.LoginAttempt {
	if hours <= 0 {
		hours = 24
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)

	attempts, err := s.attempts.ListFailedSince(ctx, since, suspiciousActivityCap)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list suspicious activity", slog.Any("error", err))
		return []*models.LoginAttempt{}
	}

	return attempts
}

// successRate is successful/total as a percentage rounded to one decimal,
// 0.0 when there were no attempts at all
func successRate(successful, total int64) float64 {
	if total == 0 {
		return 0.0
	}
	return math.Round(float64(successful)/float64(total)*1000) / 10
}
