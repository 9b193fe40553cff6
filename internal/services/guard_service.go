package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dreyes/amparo/internal/config"
	"github.com/dreyes/amparo/internal/models"
	"github.com/dreyes/amparo/pkg/logger"
)

// AttemptStore persists and counts login attempts
type AttemptStore interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
	CountFailedSince(ctx context.Context, username string, since time.Time) (int, error)
}

// LockoutStore persists lockout episodes
type LockoutStore interface {
	Create(ctx context.Context, lockout *models.AccountLockout) error
	HasActiveLockout(ctx context.Context, username string, now time.Time) (bool, error)
	DeactivateForUsername(ctx context.Context, username string) (int64, error)
}

// LockoutNotifier is told when a new lockout opens. Delivery failures are
// logged and ignored.
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, lockout *models.AccountLockout) error
}

// RecordAttemptInput carries one authentication try into the recorder
type RecordAttemptInput struct {
	Username      string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
}

// GuardService records login attempts and enforces the lockout policy. All
// of its operations degrade softly: store errors are logged, never returned,
// so the login path stays available when security bookkeeping is not.
type GuardService struct {
	attempts AttemptStore
	lockouts LockoutStore
	activity *ActivityService
	notifier LockoutNotifier
	cfg      config.SecurityConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewGuardService creates a new GuardService. notifier may be nil.
func NewGuardService(attempts AttemptStore, lockouts LockoutStore, activity *ActivityService, notifier LockoutNotifier, cfg config.SecurityConfig, log *slog.Logger) *GuardService {
	return &GuardService{
		attempts: attempts,
		lockouts: lockouts,
		activity: activity,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock replaces the service clock. Tests use it to slide the failure
// window without waiting.
func (s *GuardService) WithClock(now func() time.Time) *GuardService {
	s.now = now
	return s
}

// RecordLoginAttempt writes one attempt row and, on failure, re-evaluates
// the trailing failure window for the username. Nothing here surfaces an
// error to the caller: authentication decisions must not hinge on whether
// the bookkeeping write landed.
func (s *GuardService) RecordLoginAttempt(ctx context.Context, in RecordAttemptInput) {
	if in.Username == "" || in.IPAddress == "" {
		s.logger.WarnContext(ctx, "login attempt dropped: missing username or ip")
		return
	}

	attempt := &models.LoginAttempt{
		Username:  in.Username,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Success:   in.Success,
	}
	if !in.Success && in.FailureReason != "" {
		reason := in.FailureReason
		attempt.FailureReason = &reason
	}

	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.ErrorContext(ctx, "failed to record login attempt",
			slog.String("username", logger.MaskUsername(in.Username)),
			slog.Any("error", err),
		)
		return
	}

	if in.Success {
		return
	}

	// The attempt row is already committed, so the window count below sees
	// this failure too. A lockout-evaluation error must not undo that.
	s.evaluateLockout(ctx, in)
}

// evaluateLockout counts failures in the trailing window and opens a lockout
// when the threshold is reached. Two concurrent failures can both cross the
// threshold and insert two rows; IsAccountLocked only needs one.
func (s *GuardService) evaluateLockout(ctx context.Context, in RecordAttemptInput) {
	now := s.now()
	since := now.Add(-s.cfg.AttemptWindow)

	failedCount, err := s.attempts.CountFailedSince(ctx, in.Username, since)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to evaluate lockout window",
			slog.String("username", logger.MaskUsername(in.Username)),
			slog.Any("error", err),
		)
		return
	}

	if failedCount < s.cfg.MaxLoginAttempts {
		return
	}

	lockout := &models.AccountLockout{
		Username:     in.Username,
		IPAddress:    in.IPAddress,
		LockedUntil:  now.Add(s.cfg.LockoutDuration),
		AttemptCount: failedCount,
	}

	if err := s.lockouts.Create(ctx, lockout); err != nil {
		s.logger.ErrorContext(ctx, "failed to open lockout",
			slog.String("username", logger.MaskUsername(in.Username)),
			slog.Any("error", err),
		)
		return
	}

	s.logger.WarnContext(ctx, "account locked",
		slog.String("username", logger.MaskUsername(in.Username)),
		slog.Int("failed_attempts", failedCount),
		slog.Time("locked_until", lockout.LockedUntil),
	)

	username := in.Username
	ip := in.IPAddress
	s.activity.LogActivity(ctx, &models.AuditLog{
		Username:  &username,
		Action:    models.AuditActionAccountLocked,
		IPAddress: &ip,
		Success:   true,
		Details: models.Details{
			"attempt_count": failedCount,
			"locked_until":  lockout.LockedUntil,
		},
	})

	if s.notifier != nil {
		if err := s.notifier.NotifyLockout(ctx, lockout); err != nil {
			s.logger.ErrorContext(ctx, "failed to send lockout alert",
				slog.Any("error", err),
			)
		}
	}
}

// IsAccountLocked reports whether an active, unexpired lockout exists for
// the username. On a store error the answer falls back to the configured
// failure mode; historically that is "not locked" (fail open), trading
// lockout strictness for login availability.
func (s *GuardService) IsAccountLocked(ctx context.Context, username string) bool {
	locked, err := s.lockouts.HasActiveLockout(ctx, username, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check lockout state",
			slog.String("username", logger.MaskUsername(username)),
			slog.Any("error", err),
		)
		return s.cfg.LockoutFailClosed
	}
	return locked
}

// UnlockAccount clears every active lockout for the username. A no-op
// unlock (no active rows) still returns true; only a store error returns
// false.
func (s *GuardService) UnlockAccount(ctx context.Context, username string) bool {
	cleared, err := s.lockouts.DeactivateForUsername(ctx, username)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to unlock account",
			slog.String("username", logger.MaskUsername(username)),
			slog.Any("error", err),
		)
		return false
	}

	s.logger.InfoContext(ctx, "account unlocked",
		slog.String("username", logger.MaskUsername(username)),
		slog.Int64("lockouts_cleared", cleared),
	)

	u := username
	s.activity.LogActivity(ctx, &models.AuditLog{
		Username: &u,
		Action:   models.AuditActionAccountUnlocked,
		Success:  true,
		Details: models.Details{
			"lockouts_cleared": cleared,
		},
	})

	return true
}
