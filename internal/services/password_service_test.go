package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dreyes/amparo/internal/models"
	"github.com/dreyes/amparo/internal/services"
	"github.com/dreyes/amparo/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// low cost keeps the bcrypt work in tests tolerable
const testBcryptCost = 10

func storedUser(t *testing.T, plaintext string) *models.User {
	t.Helper()
	hash, err := password.Hash(plaintext, testBcryptCost)
	require.NoError(t, err)
	return &models.User{
		ID:           42,
		Username:     "jgarcia",
		Email:        "jgarcia@parques.gob.mx",
		PasswordHash: hash,
		IsActive:     true,
	}
}

func newPasswordService(users services.UserStore, activities *services.MockActivityStore) *services.PasswordService {
	activity := services.NewActivityService(&services.MockAuditStore{}, activities, testLogger())
	return services.NewPasswordService(users, activity, password.DefaultPolicy(), testBcryptCost, testLogger())
}

func changeInput(current, next string) services.ChangePasswordInput {
	return services.ChangePasswordInput{
		UserID:          42,
		Username:        "jgarcia",
		CurrentPassword: current,
		NewPassword:     next,
		IPAddress:       "10.0.0.1",
		UserAgent:       "Mozilla/5.0",
	}
}

func TestChangePassword_UserNotFound(t *testing.T) {
	svc := newPasswordService(&services.MockUserStore{}, &services.MockActivityStore{})

	result := svc.ChangePassword(context.Background(), changeInput("OldPass1!", "NewPass1!"))

	assert.False(t, result.Success)
	assert.Equal(t, "Usuario no encontrado", result.Message)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	user := storedUser(t, "OldPass1!")
	var updated bool
	users := &services.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return user, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id int64, passwordHash string) error {
			updated = true
			return nil
		},
	}
	activities := &services.MockActivityStore{}
	svc := newPasswordService(users, activities)

	result := svc.ChangePassword(context.Background(), changeInput("WrongPass1!", "NewPass1!"))

	assert.False(t, result.Success)
	assert.Equal(t, "Contraseña actual incorrecta", result.Message)
	assert.False(t, updated, "credential must stay untouched")

	// The failed change leaves an activity row behind
	require.Len(t, activities.Created, 1)
	entry := activities.Created[0]
	assert.Equal(t, models.AuditActionPasswordFailed, entry.Action)
	assert.False(t, entry.Success)
	assert.Equal(t, "invalid_current_password", entry.Details["reason"])
}

func TestChangePassword_PolicyRejection(t *testing.T) {
	user := storedUser(t, "OldPass1!")
	users := &services.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return user, nil
		},
	}
	activities := &services.MockActivityStore{}
	svc := newPasswordService(users, activities)

	result := svc.ChangePassword(context.Background(), changeInput("OldPass1!", "weakpw"))

	assert.False(t, result.Success)
	assert.Equal(t, "La contraseña debe tener al menos 8 caracteres", result.Message)
	// Pure policy rejection writes no activity row
	assert.Empty(t, activities.Created)
}

func TestChangePassword_Success(t *testing.T) {
	user := storedUser(t, "OldPass1!")
	var storedHash string
	users := &services.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return user, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id int64, passwordHash string) error {
			storedHash = passwordHash
			return nil
		},
	}
	activities := &services.MockActivityStore{}
	svc := newPasswordService(users, activities)

	result := svc.ChangePassword(context.Background(), changeInput("OldPass1!", "NewStrong1!"))

	assert.True(t, result.Success)
	assert.Equal(t, "Contraseña actualizada correctamente", result.Message)

	require.NotEmpty(t, storedHash)
	assert.NoError(t, password.Compare(storedHash, "NewStrong1!"))

	require.Len(t, activities.Created, 1)
	entry := activities.Created[0]
	assert.Equal(t, models.AuditActionPasswordChanged, entry.Action)
	assert.True(t, entry.Success)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, int64(42), *entry.UserID)
}

func TestChangePassword_StoreErrorIsGenericMessage(t *testing.T) {
	user := storedUser(t, "OldPass1!")
	users := &services.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return user, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id int64, passwordHash string) error {
			return errors.New("write failed")
		},
	}
	svc := newPasswordService(users, &services.MockActivityStore{})

	result := svc.ChangePassword(context.Background(), changeInput("OldPass1!", "NewStrong1!"))

	assert.False(t, result.Success)
	assert.Equal(t, "Error interno del servidor", result.Message)
}

func TestChangePassword_UserLookupError(t *testing.T) {
	users := &services.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return nil, errors.New("store unreachable")
		},
	}
	svc := newPasswordService(users, &services.MockActivityStore{})

	result := svc.ChangePassword(context.Background(), changeInput("OldPass1!", "NewStrong1!"))

	assert.False(t, result.Success)
	assert.Equal(t, "Error interno del servidor", result.Message)
}

func TestValidatePassword_DelegatesToPolicy(t *testing.T) {
	svc := newPasswordService(&services.MockUserStore{}, &services.MockActivityStore{})

	v := svc.ValidatePassword("LongEnough1!")
	assert.True(t, v.IsValid)
	assert.Equal(t, password.StrengthStrong, v.Strength)

	v = svc.ValidatePassword("longenough")
	assert.False(t, v.IsValid)
}
