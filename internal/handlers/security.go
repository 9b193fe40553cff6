package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dreyes/amparo/internal/models"
	"github.com/dreyes/amparo/internal/services"
	pkghttp "github.com/dreyes/amparo/pkg/http"
	"github.com/go-chi/chi/v5"
)

// SecurityHandler exposes the guard to the rest of the platform
type SecurityHandler struct {
	guard   *services.GuardService
	reports *services.ReportService
}

// NewSecurityHandler creates a new SecurityHandler
func NewSecurityHandler(guard *services.GuardService, reports *services.ReportService) *SecurityHandler {
	return &SecurityHandler{
		guard:   guard,
		reports: reports,
	}
}

// RecordAttemptRequest is the payload for recording a login attempt. The
// platform forwards the end-user address; when it is absent the request's
// own client IP is used.
type RecordAttemptRequest struct {
	Username      string `json:"username" validate:"required,max=150"`
	IPAddress     string `json:"ip_address" validate:"omitempty,ip"`
	UserAgent     string `json:"user_agent" validate:"max=512"`
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason" validate:"max=100"`
}

// RecordAttempt handles POST /security/attempts
func (h *SecurityHandler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req RecordAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if req.IPAddress == "" {
		req.IPAddress = pkghttp.ExtractClientIP(r)
	}

	h.guard.RecordLoginAttempt(r.Context(), services.RecordAttemptInput{
		Username:      req.Username,
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
		Success:       req.Success,
		FailureReason: req.FailureReason,
	})

	// Recording never reports bookkeeping failures back to the login path
	w.WriteHeader(http.StatusAccepted)
}

// GetLockStatus handles GET /security/lockouts/{username}
func (h *SecurityHandler) GetLockStatus(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		pkghttp.WriteBadRequest(w, "username is required")
		return
	}

	locked := h.guard.IsAccountLocked(r.Context(), username)

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"locked": locked})
}

// Unlock handles DELETE /security/lockouts/{username} (admin only)
func (h *SecurityHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		pkghttp.WriteBadRequest(w, "username is required")
		return
	}

	if !h.guard.UnlockAccount(r.Context(), username) {
		pkghttp.WriteInternalError(w, "unlock failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"unlocked": true})
}

// Stats handles GET /security/stats?days= (admin only)
func (h *SecurityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days := queryAsInt(r, "days", 30)

	stats := h.reports.GetSecurityStats(r.Context(), days)

	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

// SuspiciousActivityResponse wraps the recent failed attempts
type SuspiciousActivityResponse struct {
	Attempts []*models.LoginAttempt `json:"attempts"`
	Count    int                    `json:"count"`
}

// Suspicious handles GET /security/suspicious?hours= (admin only)
func (h *SecurityHandler) Suspicious(w http.ResponseWriter, r *http.Request) {
	hours := queryAsInt(r, "hours", 24)

	attempts := h.reports.GetSuspiciousActivity(r.Context(), hours)

	pkghttp.WriteJSON(w, http.StatusOK, SuspiciousActivityResponse{
		Attempts: attempts,
		Count:    len(attempts),
	})
}

// queryAsInt reads a positive integer query parameter with a fallback
func queryAsInt(r *http.Request, key string, defaultVal int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
