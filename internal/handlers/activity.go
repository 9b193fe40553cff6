package handlers

import (
	"net/http"
	"strconv"

	"github.com/dreyes/amparo/internal/auth"
	"github.com/dreyes/amparo/internal/services"
	pkghttp "github.com/dreyes/amparo/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ActivityHandler serves the per-user activity trail
type ActivityHandler struct {
	activity *services.ActivityService
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activity *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// GetUserActivity handles GET /users/{id}/activity?page=&limit=
// Users see their own trail; admins see anyone's.
func (h *ActivityHandler) GetUserActivity(w http.ResponseWriter, r *http.Request) {
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
		pkghttp.WriteForbidden(w, "cannot view another user's activity")
		return
	}

	page := queryAsInt(r, "page", 1)
	limit := queryAsInt(r, "limit", 20)

	result := h.activity.GetUserActivity(r.Context(), userID, page, limit)

	pkghttp.WriteJSON(w, http.StatusOK, result)
}
