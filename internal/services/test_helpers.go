package services

import (
	"context"
	"time"

	"github.com/dreyes/amparo/internal/models"
)

// Func-field mocks for the store interfaces. Unset funcs fall back to inert
// defaults so tests only wire what they assert on.

// MockAttemptStore implements AttemptStore and AttemptStatsStore
type MockAttemptStore struct {
	RecordFunc                       func(ctx context.Context, attempt *models.LoginAttempt) error
	CountFailedSinceFunc             func(ctx context.Context, username string, since time.Time) (int, error)
	CountSinceFunc                   func(ctx context.Context, since time.Time) (int64, int64, error)
	CountDistinctSuccessfulUsersFunc func(ctx context.Context, since time.Time) (int64, error)
	ListFailedSinceFunc              func(ctx context.Context, since time.Time, limit int) ([]*models.LoginAttempt, error)
}

func (m *MockAttemptStore) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, attempt)
	}
	return nil
}

func (m *MockAttemptStore) CountFailedSince(ctx context.Context, username string, since time.Time) (int, error) {
	if m.CountFailedSinceFunc != nil {
		return m.CountFailedSinceFunc(ctx, username, since)
	}
	return 0, nil
}

func (m *MockAttemptStore) CountSince(ctx context.Context, since time.Time) (int64, int64, error) {
	if m.CountSinceFunc != nil {
		return m.CountSinceFunc(ctx, since)
	}
	return 0, 0, nil
}

func (m *MockAttemptStore) CountDistinctSuccessfulUsers(ctx context.Context, since time.Time) (int64, error) {
	if m.CountDistinctSuccessfulUsersFunc != nil {
		return m.CountDistinctSuccessfulUsersFunc(ctx, since)
	}
	return 0, nil
}

func (m *MockAttemptStore) ListFailedSince(ctx context.Context, since time.Time, limit int) ([]*models.LoginAttempt, error) {
	if m.ListFailedSinceFunc != nil {
		return m.ListFailedSinceFunc(ctx, since, limit)
	}
	return []*models.LoginAttempt{}, nil
}

// MockLockoutStore implements LockoutStore and LockoutStatsStore
type MockLockoutStore struct {
	CreateFunc                func(ctx context.Context, lockout *models.AccountLockout) error
	HasActiveLockoutFunc      func(ctx context.Context, username string, now time.Time) (bool, error)
	DeactivateForUsernameFunc func(ctx context.Context, username string) (int64, error)
	CountActiveFunc           func(ctx context.Context, now time.Time) (int64, error)
}

func (m *MockLockoutStore) Create(ctx context.Context, lockout *models.AccountLockout) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, lockout)
	}
	return nil
}

func (m *MockLockoutStore) HasActiveLockout(ctx context.Context, username string, now time.Time) (bool, error) {
	if m.HasActiveLockoutFunc != nil {
		return m.HasActiveLockoutFunc(ctx, username, now)
	}
	return false, nil
}

func (m *MockLockoutStore) DeactivateForUsername(ctx context.Context, username string) (int64, error) {
	if m.DeactivateForUsernameFunc != nil {
		return m.DeactivateForUsernameFunc(ctx, username)
	}
	return 0, nil
}

func (m *MockLockoutStore) CountActive(ctx context.Context, now time.Time) (int64, error) {
	if m.CountActiveFunc != nil {
		return m.CountActiveFunc(ctx, now)
	}
	return 0, nil
}

// MockAuditStore implements AuditStore
type MockAuditStore struct {
	CreateFunc func(ctx context.Context, log *models.AuditLog) error
	Created    []*models.AuditLog
}

func (m *MockAuditStore) Create(ctx context.Context, log *models.AuditLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	m.Created = append(m.Created, log)
	return nil
}

// MockActivityStore implements ActivityStore
type MockActivityStore struct {
	CreateFunc        func(ctx context.Context, entry *models.UserActivityLog) error
	ListByUserIDFunc  func(ctx context.Context, userID int64, limit, offset int) ([]*models.UserActivityLog, error)
	CountByUserIDFunc func(ctx context.Context, userID int64) (int64, error)
	Created           []*models.UserActivityLog
}

func (m *MockActivityStore) Create(ctx context.Context, entry *models.UserActivityLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	m.Created = append(m.Created, entry)
	return nil
}

func (m *MockActivityStore) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.UserActivityLog, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, limit, offset)
	}
	return []*models.UserActivityLog{}, nil
}

func (m *MockActivityStore) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	if m.CountByUserIDFunc != nil {
		return m.CountByUserIDFunc(ctx, userID)
	}
	return 0, nil
}

// MockUserStore implements UserStore
type MockUserStore struct {
	GetByIDFunc        func(ctx context.Context, id int64) (*models.User, error)
	GetByUsernameFunc  func(ctx context.Context, username string) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id int64, passwordHash string) error
}

func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

// MockResetTokenStore implements ResetTokenStore
type MockResetTokenStore struct {
	CreateFunc     func(ctx context.Context, token *models.PasswordResetToken) error
	GetByTokenFunc func(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsedFunc   func(ctx context.Context, token string) error
}

func (m *MockResetTokenStore) Create(ctx context.Context, token *models.PasswordResetToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	return nil
}

func (m *MockResetTokenStore) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockResetTokenStore) MarkUsed(ctx context.Context, token string) error {
	if m.MarkUsedFunc != nil {
		return m.MarkUsedFunc(ctx, token)
	}
	return nil
}
