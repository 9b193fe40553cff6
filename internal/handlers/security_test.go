package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreyes/amparo/internal/config"
	"github.com/dreyes/amparo/internal/models"
	"github.com/dreyes/amparo/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newSecurityRouter(attempts *services.MockAttemptStore, lockouts *services.MockLockoutStore) *chi.Mux {
	logger := discardLogger()
	activity := services.NewActivityService(&services.MockAuditStore{}, &services.MockActivityStore{}, logger)
	guard := services.NewGuardService(attempts, lockouts, activity, nil, config.DefaultSecurityConfig(), logger)
	reports := services.NewReportService(attempts, lockouts, logger)
	h := NewSecurityHandler(guard, reports)

	router := chi.NewRouter()
	router.Post("/security/attempts", h.RecordAttempt)
	router.Get("/security/lockouts/{username}", h.GetLockStatus)
	router.Delete("/security/lockouts/{username}", h.Unlock)
	router.Get("/security/stats", h.Stats)
	router.Get("/security/suspicious", h.Suspicious)
	return router
}

func permissiveLockoutStore() *services.MockLockoutStore {
	return &services.MockLockoutStore{
		HasActiveLockoutFunc: func(ctx context.Context, username string, now time.Time) (bool, error) {
			return false, nil
		},
	}
}

func TestRecordAttempt_Accepted(t *testing.T) {
	var recorded *models.LoginAttempt
	attempts := &services.MockAttemptStore{
		RecordFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			recorded = attempt
			return nil
		},
		CountFailedSinceFunc: func(ctx context.Context, username string, since time.Time) (int, error) {
			return 1, nil
		},
	}
	router := newSecurityRouter(attempts, permissiveLockoutStore())

	body := `{"username":"alice","ip_address":"203.0.113.7","success":false,"failure_reason":"invalid_password"}`
	req := httptest.NewRequest(http.MethodPost, "/security/attempts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, recorded)
	assert.Equal(t, "alice", recorded.Username)
	assert.Equal(t, "203.0.113.7", recorded.IPAddress)
}

func TestRecordAttempt_FillsIPFromRequest(t *testing.T) {
	var recorded *models.LoginAttempt
	attempts := &services.MockAttemptStore{
		RecordFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			recorded = attempt
			return nil
		},
	}
	router := newSecurityRouter(attempts, permissiveLockoutStore())

	body := `{"username":"alice","success":true}`
	req := httptest.NewRequest(http.MethodPost, "/security/attempts", strings.NewReader(body))
	req.RemoteAddr = "198.51.100.4:51234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, recorded)
	assert.Equal(t, "198.51.100.4", recorded.IPAddress)
}

func TestRecordAttempt_RejectsInvalidBody(t *testing.T) {
	router := newSecurityRouter(&services.MockAttemptStore{}, permissiveLockoutStore())

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"username":`},
		{"missing username", `{"success":true}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/security/attempts", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetLockStatus(t *testing.T) {
	lockouts := &services.MockLockoutStore{
		HasActiveLockoutFunc: func(ctx context.Context, username string, now time.Time) (bool, error) {
			return username == "alice", nil
		},
	}
	router := newSecurityRouter(&services.MockAttemptStore{}, lockouts)

	req := httptest.NewRequest(http.MethodGet, "/security/lockouts/alice", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["locked"])

	req = httptest.NewRequest(http.MethodGet, "/security/lockouts/bob", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp["locked"])
}

func TestUnlock(t *testing.T) {
	lockouts := permissiveLockoutStore()
	lockouts.DeactivateForUsernameFunc = func(ctx context.Context, username string) (int64, error) {
		return 1, nil
	}
	router := newSecurityRouter(&services.MockAttemptStore{}, lockouts)

	req := httptest.NewRequest(http.MethodDelete, "/security/lockouts/alice", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["unlocked"])
}

func TestStats_ReturnsAggregates(t *testing.T) {
	attempts := &services.MockAttemptStore{
		CountSinceFunc: func(ctx context.Context, since time.Time) (int64, int64, error) {
			return 10, 8, nil
		},
		CountDistinctSuccessfulUsersFunc: func(ctx context.Context, since time.Time) (int64, error) {
			return 4, nil
		},
	}
	lockouts := permissiveLockoutStore()
	lockouts.CountActiveFunc = func(ctx context.Context, now time.Time) (int64, error) {
		return 2, nil
	}
	router := newSecurityRouter(attempts, lockouts)

	req := httptest.NewRequest(http.MethodGet, "/security/stats?days=7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var stats models.SecurityStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(10), stats.TotalLogins)
	assert.Equal(t, int64(2), stats.FailedLogins)
	assert.Equal(t, int64(2), stats.ActiveLockouts)
	assert.Equal(t, 80.0, stats.SuccessRate)
}

func TestSuspicious_WrapsAttempts(t *testing.T) {
	attempts := &services.MockAttemptStore{
		ListFailedSinceFunc: func(ctx context.Context, since time.Time, limit int) ([]*models.LoginAttempt, error) {
			return []*models.LoginAttempt{
				{Username: "mallory", IPAddress: "203.0.113.66", Success: false},
			}, nil
		},
	}
	router := newSecurityRouter(attempts, permissiveLockoutStore())

	req := httptest.NewRequest(http.MethodGet, "/security/suspicious", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp SuspiciousActivityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Attempts, 1)
	assert.Equal(t, "mallory", resp.Attempts[0].Username)
}
