package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dreyes/amparo/internal/auth"
	"github.com/dreyes/amparo/internal/services"
	pkghttp "github.com/dreyes/amparo/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ChangePasswordRequest is the body for POST /users/{id}/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

// ValidatePasswordRequest is the body for POST /security/password/validate
type ValidatePasswordRequest struct {
	Password string `json:"password" validate:"required,max=128"`
}

// IssueResetRequest is the body for POST /security/reset-tokens
type IssueResetRequest struct {
	Username string `json:"username" validate:"required,max=150"`
}

// RedeemResetRequest is the body for POST /security/reset-tokens/redeem
type RedeemResetRequest struct {
	Token       string `json:"token" validate:"required,max=64"`
	NewPassword string `json:"new_password" validate:"required,max=128"`
}

// PasswordHandler owns credential rotation and reset-token endpoints
type PasswordHandler struct {
	passwords *services.PasswordService
	resets    *services.ResetService
}

// NewPasswordHandler creates a new PasswordHandler
func NewPasswordHandler(passwords *services.PasswordService, resets *services.ResetService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords, resets: resets}
}

// ChangePassword handles POST /users/{id}/password. The caller must be the
// account owner or an admin; the current password is always re-verified.
func (h *PasswordHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid user id")
		return
	}

	if claims.UserID != userID && claims.Role != "admin" {
		pkghttp.WriteForbidden(w, "cannot change another user's password")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result := h.passwords.ChangePassword(r.Context(), services.ChangePasswordInput{
		UserID:          userID,
		Username:        claims.Username,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		IPAddress:       pkghttp.ExtractClientIP(r),
		UserAgent:       r.UserAgent(),
	})

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	pkghttp.WriteJSON(w, status, result)
}

// ValidatePassword handles POST /security/password/validate. It is a pure
// policy check so callers can preflight a password without changing anything.
func (h *PasswordHandler) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	var req ValidatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, h.passwords.ValidatePassword(req.Password))
}

// IssueResetToken handles POST /security/reset-tokens (admin only). The
// response body carries the token; delivering it to the user is the
// caller's problem.
func (h *PasswordHandler) IssueResetToken(w http.ResponseWriter, r *http.Request) {
	var req IssueResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	token, err := h.resets.IssueToken(r.Context(), req.Username)
	if err != nil {
		pkghttp.WriteInternalError(w, services.MsgInternalError)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
	})
}

// RedeemResetToken handles POST /security/reset-tokens/redeem. Unauthenticated
// by design: the token itself is the proof of control.
func (h *PasswordHandler) RedeemResetToken(w http.ResponseWriter, r *http.Request) {
	var req RedeemResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result := h.resets.Redeem(r.Context(), req.Token, req.NewPassword)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	pkghttp.WriteJSON(w, status, result)
}
