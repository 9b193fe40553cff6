package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dreyes/amparo/internal/models"
	"github.com/dreyes/amparo/pkg/password"
)

// User-facing result messages (the platform UI is Spanish-language)
const (
	MsgUserNotFound     = "Usuario no encontrado"
	MsgWrongPassword    = "Contraseña actual incorrecta"
	MsgPasswordUpdated  = "Contraseña actualizada correctamente"
	MsgInternalError    = "Error interno del servidor"
	MsgResetTokenBad    = "Enlace de restablecimiento inválido"
	MsgResetTokenExpired = "El enlace de restablecimiento ha expirado"
	MsgResetTokenUsed   = "El enlace de restablecimiento ya fue utilizado"
)

// UserStore is the slice of user persistence the password flows need
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// ChangeResult is the outcome of a credential change, safe to show the user
type ChangeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ChangePasswordInput carries a verified credential rotation request
type ChangePasswordInput struct {
	UserID          int64
	Username        string
	CurrentPassword string
	NewPassword     string
	IPAddress       string
	UserAgent       string
}

// PasswordService validates and rotates credentials
type PasswordService struct {
	users    UserStore
	activity *ActivityService
	policy   password.Policy
	cost     int
	logger   *slog.Logger
}

// NewPasswordService creates a new PasswordService
func NewPasswordService(users UserStore, activity *ActivityService, policy password.Policy, bcryptCost int, logger *slog.Logger) *PasswordService {
	return &PasswordService{
		users:    users,
		activity: activity,
		policy:   policy,
		cost:     bcryptCost,
		logger:   logger,
	}
}

// ValidatePassword runs the policy check without touching any state
func (s *PasswordService) ValidatePassword(candidate string) password.Validation {
	return s.policy.Validate(candidate)
}

// ChangePassword performs a verified credential rotation. Every exit is a
// structured result; nothing user-triggered escapes as an error.
func (s *PasswordService) ChangePassword(ctx context.Context, in ChangePasswordInput) ChangeResult {
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ChangeResult{Success: false, Message: MsgUserNotFound}
		}
		s.logger.ErrorContext(ctx, "failed to load user for password change",
			slog.Int64("user_id", in.UserID),
			slog.Any("error", err),
		)
		return ChangeResult{Success: false, Message: MsgInternalError}
	}

	if err := password.Compare(user.PasswordHash, in.CurrentPassword); err != nil {
		s.logFailedChange(ctx, user, in, "invalid_current_password")
		return ChangeResult{Success: false, Message: MsgWrongPassword}
	}

	// Pure policy rejection: no activity row, the user just retypes.
	if v := s.policy.Validate(in.NewPassword); !v.IsValid {
		return ChangeResult{Success: false, Message: v.Message}
	}

	hash, err := password.Hash(in.NewPassword, s.cost)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash new password",
			slog.Int64("user_id", in.UserID),
			slog.Any("error", err),
		)
		return ChangeResult{Success: false, Message: MsgInternalError}
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.ErrorContext(ctx, "failed to store new password",
			slog.Int64("user_id", in.UserID),
			slog.Any("error", err),
		)
		return ChangeResult{Success: false, Message: MsgInternalError}
	}

	s.logChange(ctx, user, in)

	return ChangeResult{Success: true, Message: MsgPasswordUpdated}
}

func (s *PasswordService) logFailedChange(ctx context.Context, user *models.User, in ChangePasswordInput, reason string) {
	uid := user.ID
	uname := user.Username
	entry := &models.UserActivityLog{
		UserID:   &uid,
		Username: &uname,
		Action:   models.AuditActionPasswordFailed,
		Success:  false,
		Details: models.Details{
			"reason": reason,
		},
	}
	if in.IPAddress != "" {
		ip := in.IPAddress
		entry.IPAddress = &ip
	}
	if in.UserAgent != "" {
		ua := in.UserAgent
		entry.UserAgent = &ua
	}
	s.activity.LogUserActivity(ctx, entry)
}

func (s *PasswordService) logChange(ctx context.Context, user *models.User, in ChangePasswordInput) {
	uid := user.ID
	uname := user.Username
	entry := &models.UserActivityLog{
		UserID:   &uid,
		Username: &uname,
		Action:   models.AuditActionPasswordChanged,
		Success:  true,
		Details:  models.Details{},
	}
	if in.IPAddress != "" {
		ip := in.IPAddress
		entry.IPAddress = &ip
	}
	if in.UserAgent != "" {
		ua := in.UserAgent
		entry.UserAgent = &ua
	}
	s.activity.LogUserActivity(ctx, entry)
}
