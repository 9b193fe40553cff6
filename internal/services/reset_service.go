package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dreyes/amparo/internal/config"
	"github.com/dreyes/amparo/internal/models"
	"github.com/dreyes/amparo/pkg/password"
	"github.com/google/uuid"
)

// ResetTokenStore persists password reset tokens
type ResetTokenStore interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, token string) error
}

// ResetService issues and redeems single-use password reset tokens. Token
// delivery (email) belongs to the wider platform; IssueToken hands the token
// back to the caller.
type ResetService struct {
	tokens   ResetTokenStore
	users    UserStore
	activity *ActivityService
	policy   password.Policy
	cfg      config.SecurityConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewResetService creates a new ResetService
func NewResetService(tokens ResetTokenStore, users UserStore, activity *ActivityService, policy password.Policy, cfg config.SecurityConfig, logger *slog.Logger) *ResetService {
	return &ResetService{
		tokens:   tokens,
		users:    users,
		activity: activity,
		policy:   policy,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the service clock for tests
func (s *ResetService) WithClock(now func() time.Time) *ResetService {
	s.now = now
	return s
}

// IssueToken creates a reset token for the named account. Unknown usernames
// return ErrNotFound; the HTTP layer decides whether to reveal that.
func (s *ResetService) IssueToken(ctx context.Context, username string) (*models.PasswordResetToken, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	token := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		Email:     user.Email,
		ExpiresAt: s.now().Add(s.cfg.ResetTokenExpiry),
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to issue reset token",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "reset token issued",
		slog.Int64("user_id", user.ID),
		slog.Time("expires_at", token.ExpiresAt),
	)

	return token, nil
}

// Redeem consumes a token and sets a new password. Like ChangePassword,
// every user-triggered outcome is a structured result.
func (s *ResetService) Redeem(ctx context.Context, tokenValue, newPassword string) ChangeResult {
	token, err := s.tokens.GetByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ChangeResult{Success: false, Message: MsgResetTokenBad}
		}
		s.logger.ErrorContext(ctx, "failed to load reset token", slog.Any("error", err))
		return ChangeResult{Success: false, Message: MsgInternalError}
	}

	now := s.now()
	if token.IsUsed {
		return ChangeResult{Success: false, Message: MsgResetTokenUsed}
	}
	if !token.ExpiresAt.After(now) {
		return ChangeResult{Success: false, Message: MsgResetTokenExpired}
	}

	if v := s.policy.Validate(newPassword); !v.IsValid {
		return ChangeResult{Success: false, Message: v.Message}
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ChangeResult{Success: false, Message: MsgUserNotFound}
		}
		s.logger.ErrorContext(ctx, "failed to load user for reset", slog.Any("error", err))
		return ChangeResult{Success: false, Message: MsgInternalError}
	}

	hash, err := password.Hash(newPassword, s.cfg.BcryptCost)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash reset password", slog.Any("error", err))
		return ChangeResult{Success: false, Message: MsgInternalError}
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.ErrorContext(ctx, "failed to store reset password", slog.Any("error", err))
		return ChangeResult{Success: false, Message: MsgInternalError}
	}

	// Consume the token after the credential write; a crash in between
	// leaves a still-valid token, which expiry bounds to 30 minutes.
	if err := s.tokens.MarkUsed(ctx, tokenValue); err != nil {
		s.logger.ErrorContext(ctx, "failed to consume reset token", slog.Any("error", err))
	}

	uid := user.ID
	uname := user.Username
	s.activity.LogUserActivity(ctx, &models.UserActivityLog{
		UserID:   &uid,
		Username: &uname,
		Action:   models.AuditActionPasswordChanged,
		Success:  true,
		Details: models.Details{
			"via": "reset_token",
		},
	})

	return ChangeResult{Success: true, Message: MsgPasswordUpdated}
}
