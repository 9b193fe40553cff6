package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dreyes/amparo/internal/auth"
	"github.com/dreyes/amparo/internal/models"
	"github.com/dreyes/amparo/internal/services"
	"github.com/dreyes/amparo/pkg/password"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestBcryptCost = 10

func newPasswordRouter(users *services.MockUserStore) *chi.Mux {
	logger := discardLogger()
	activity := services.NewActivityService(&services.MockAuditStore{}, &services.MockActivityStore{}, logger)
	passwords := services.NewPasswordService(users, activity, password.DefaultPolicy(), handlerTestBcryptCost, logger)
	h := NewPasswordHandler(passwords, nil)

	router := chi.NewRouter()
	router.Post("/users/{id}/password", h.ChangePassword)
	router.Post("/security/password/validate", h.ValidatePassword)
	return router
}

func withClaims(req *http.Request, claims *auth.Claims) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

func hashedUser(t *testing.T, id int64, username, plaintext string) *models.User {
	t.Helper()
	hash, err := password.Hash(plaintext, handlerTestBcryptCost)
	require.NoError(t, err)
	return &models.User{ID: id, Username: username, PasswordHash: hash, IsActive: true}
}

func TestChangePassword_RequiresAuthentication(t *testing.T) {
	router := newPasswordRouter(&services.MockUserStore{})

	body := `{"current_password":"Original1!","new_password":"Replacement1!"}`
	req := httptest.NewRequest(http.MethodPost, "/users/7/password", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword_ForbidsOtherUsers(t *testing.T) {
	router := newPasswordRouter(&services.MockUserStore{})

	body := `{"current_password":"Original1!","new_password":"Replacement1!"}`
	req := httptest.NewRequest(http.MethodPost, "/users/7/password", strings.NewReader(body))
	req = withClaims(req, &auth.Claims{UserID: 8, Username: "bob", Role: "user"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChangePassword_AdminMayActOnAnyUser(t *testing.T) {
	user := hashedUser(t, 7, "alice", "Original1!")
	var updatedHash string
	users := &services.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return user, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id int64, passwordHash string) error {
			updatedHash = passwordHash
			return nil
		},
	}
	router := newPasswordRouter(users)

	body := `{"current_password":"Original1!","new_password":"Replacement1!"}`
	req := httptest.NewRequest(http.MethodPost, "/users/7/password", strings.NewReader(body))
	req = withClaims(req, &auth.Claims{UserID: 1, Username: "root", Role: "admin"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result services.ChangeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "Contraseña actualizada correctamente", result.Message)
	assert.NoError(t, password.Compare(updatedHash, "Replacement1!"))
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	user := hashedUser(t, 7, "alice", "Original1!")
	users := &services.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return user, nil
		},
	}
	router := newPasswordRouter(users)

	body := `{"current_password":"wrong","new_password":"Replacement1!"}`
	req := httptest.NewRequest(http.MethodPost, "/users/7/password", strings.NewReader(body))
	req = withClaims(req, &auth.Claims{UserID: 7, Username: "alice", Role: "user"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var result services.ChangeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, "Contraseña actual incorrecta", result.Message)
}

func TestValidatePassword_ReportsStrength(t *testing.T) {
	router := newPasswordRouter(&services.MockUserStore{})

	body := `{"password":"LongEnough1!"}`
	req := httptest.NewRequest(http.MethodPost, "/security/password/validate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var v password.Validation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.True(t, v.IsValid)
	assert.Equal(t, "Contraseña válida", v.Message)
	assert.Equal(t, "strong", v.Strength)
}
