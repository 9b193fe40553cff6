package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dreyes/amparo/internal/config"
	"github.com/dreyes/amparo/internal/models"
	"github.com/dreyes/amparo/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testSecurityConfig() config.SecurityConfig {
	cfg := config.DefaultSecurityConfig()
	cfg.MaxLoginAttempts = 5
	cfg.LockoutDuration = 15 * time.Minute
	cfg.AttemptWindow = 15 * time.Minute
	return cfg
}

// testClock is a settable clock shared between the service and the fake
// store
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSecurityStore keeps attempts and lockouts in memory with real
// timestamp filtering, so the window and expiry semantics get exercised
// instead of stubbed.
type fakeSecurityStore struct {
	clock    *testClock
	attempts []*models.LoginAttempt
	lockouts []*models.AccountLockout
}

func newFakeSecurityStore(clock *testClock) *fakeSecurityStore {
	return &fakeSecurityStore{clock: clock}
}

func (f *fakeSecurityStore) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	attempt.AttemptedAt = f.clock.Now()
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeSecurityStore) CountFailedSince(ctx context.Context, username string, since time.Time) (int, error) {
	count := 0
	for _, a := range f.attempts {
		if a.Username == username && !a.Success && !a.AttemptedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeSecurityStore) Create(ctx context.Context, lockout *models.AccountLockout) error {
	lockout.LockedAt = f.clock.Now()
	lockout.IsActive = true
	f.lockouts = append(f.lockouts, lockout)
	return nil
}

func (f *fakeSecurityStore) HasActiveLockout(ctx context.Context, username string, now time.Time) (bool, error) {
	for _, l := range f.lockouts {
		if l.Username == username && l.Effective(now) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSecurityStore) DeactivateForUsername(ctx context.Context, username string) (int64, error) {
	var cleared int64
	for _, l := range f.lockouts {
		if l.Username == username && l.IsActive {
			l.IsActive = false
			cleared++
		}
	}
	return cleared, nil
}

func newGuardWithFake(t *testing.T) (*services.GuardService, *fakeSecurityStore, *services.MockAuditStore, *testClock) {
	t.Helper()

	clock := newTestClock()
	store := newFakeSecurityStore(clock)
	audits := &services.MockAuditStore{}
	activity := services.NewActivityService(audits, &services.MockActivityStore{}, testLogger())

	guard := services.NewGuardService(store, store, activity, nil, testSecurityConfig(), testLogger()).
		WithClock(clock.Now)

	return guard, store, audits, clock
}

func failedAttempt(username string) services.RecordAttemptInput {
	return services.RecordAttemptInput{
		Username:      username,
		IPAddress:     "10.0.0.1",
		UserAgent:     "Mozilla/5.0",
		Success:       false,
		FailureReason: models.FailureReasonInvalidPassword,
	}
}

func TestGuardService_LockoutThreshold(t *testing.T) {
	guard, _, _, clock := newGuardWithFake(t)
	ctx := context.Background()

	// Four failures stay under the threshold
	for i := 0; i < 4; i++ {
		guard.RecordLoginAttempt(ctx, failedAttempt("alice"))
		clock.Advance(time.Second)
	}
	assert.False(t, guard.IsAccountLocked(ctx, "alice"))

	// The fifth crosses it
	guard.RecordLoginAttempt(ctx, failedAttempt("alice"))
	assert.True(t, guard.IsAccountLocked(ctx, "alice"))
}

func TestGuardService_WindowSlides(t *testing.T) {
	guard, store, _, clock := newGuardWithFake(t)
	ctx := context.Background()

	// Three failures at minute zero
	for i := 0; i < 3; i++ {
		guard.RecordLoginAttempt(ctx, failedAttempt("bob"))
	}

	// Two more at minute 18: the first three have left the trailing window
	clock.Advance(18 * time.Minute)
	for i := 0; i < 2; i++ {
		guard.RecordLoginAttempt(ctx, failedAttempt("bob"))
	}

	assert.False(t, guard.IsAccountLocked(ctx, "bob"))
	assert.Empty(t, store.lockouts)
}

func TestGuardService_SuccessDoesNotCount(t *testing.T) {
	guard, store, _, _ := newGuardWithFake(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		guard.RecordLoginAttempt(ctx, services.RecordAttemptInput{
			Username:  "carol",
			IPAddress: "10.0.0.2",
			Success:   true,
		})
	}

	assert.False(t, guard.IsAccountLocked(ctx, "carol"))
	assert.Empty(t, store.lockouts)
	assert.Len(t, store.attempts, 10)
}

func TestGuardService_LockoutExpiresWithoutCleanup(t *testing.T) {
	guard, store, _, clock := newGuardWithFake(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		guard.RecordLoginAttempt(ctx, failedAttempt("dave"))
	}
	require.True(t, guard.IsAccountLocked(ctx, "dave"))

	// Past locked_until the row stops counting even though is_active never
	// flipped
	clock.Advance(16 * time.Minute)
	assert.False(t, guard.IsAccountLocked(ctx, "dave"))
	require.Len(t, store.lockouts, 1)
	assert.True(t, store.lockouts[0].IsActive)
}

func TestGuardService_UnlockIsIdempotent(t *testing.T) {
	guard, _, audits, _ := newGuardWithFake(t)
	ctx := context.Background()

	// No lockout exists yet: unlock is a no-op but still succeeds
	assert.True(t, guard.UnlockAccount(ctx, "erin"))
	assert.True(t, guard.UnlockAccount(ctx, "erin"))
	assert.False(t, guard.IsAccountLocked(ctx, "erin"))

	for i := 0; i < 5; i++ {
		guard.RecordLoginAttempt(ctx, failedAttempt("erin"))
	}
	require.True(t, guard.IsAccountLocked(ctx, "erin"))

	assert.True(t, guard.UnlockAccount(ctx, "erin"))
	assert.False(t, guard.IsAccountLocked(ctx, "erin"))

	var unlockAudits int
	for _, log := range audits.Created {
		if log.Action == models.AuditActionAccountUnlocked {
			unlockAudits++
		}
	}
	assert.Equal(t, 3, unlockAudits)
}

func TestGuardService_LockoutWritesAudit(t *testing.T) {
	guard, store, audits, _ := newGuardWithFake(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		guard.RecordLoginAttempt(ctx, failedAttempt("frank"))
	}

	require.Len(t, store.lockouts, 1)
	assert.Equal(t, 5, store.lockouts[0].AttemptCount)
	assert.Equal(t, "10.0.0.1", store.lockouts[0].IPAddress)

	require.Len(t, audits.Created, 1)
	audit := audits.Created[0]
	assert.Equal(t, models.AuditActionAccountLocked, audit.Action)
	require.NotNil(t, audit.Username)
	assert.Equal(t, "frank", *audit.Username)
	assert.Equal(t, 5, audit.Details["attempt_count"])
}

func TestGuardService_AttemptsAreAppendOnly(t *testing.T) {
	guard, store, _, _ := newGuardWithFake(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		guard.RecordLoginAttempt(ctx, failedAttempt("grace"))
	}

	// Every call adds exactly one row, lockout or not
	assert.Len(t, store.attempts, 7)
	for _, a := range store.attempts {
		require.NotNil(t, a.FailureReason)
		assert.Equal(t, models.FailureReasonInvalidPassword, *a.FailureReason)
	}
}

func TestGuardService_DropsAttemptWithoutIdentity(t *testing.T) {
	guard, store, _, _ := newGuardWithFake(t)
	ctx := context.Background()

	guard.RecordLoginAttempt(ctx, services.RecordAttemptInput{Username: "", IPAddress: "10.0.0.1"})
	guard.RecordLoginAttempt(ctx, services.RecordAttemptInput{Username: "heidi", IPAddress: ""})

	assert.Empty(t, store.attempts)
}

func TestGuardService_RecordSwallowsStoreErrors(t *testing.T) {
	countCalled := false
	attempts := &services.MockAttemptStore{
		RecordFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			return errors.New("connection refused")
		},
		CountFailedSinceFunc: func(ctx context.Context, username string, since time.Time) (int, error) {
			countCalled = true
			return 0, nil
		},
	}
	activity := services.NewActivityService(&services.MockAuditStore{}, &services.MockActivityStore{}, testLogger())
	guard := services.NewGuardService(attempts, &services.MockLockoutStore{}, activity, nil, testSecurityConfig(), testLogger())

	guard.RecordLoginAttempt(context.Background(), failedAttempt("ivan"))

	// A failed write skips the window evaluation entirely
	assert.False(t, countCalled)
}

func TestGuardService_LockoutEngineErrorDoesNotBlockRecording(t *testing.T) {
	recorded := 0
	attempts := &services.MockAttemptStore{
		RecordFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			recorded++
			return nil
		},
		CountFailedSinceFunc: func(ctx context.Context, username string, since time.Time) (int, error) {
			return 0, errors.New("query timeout")
		},
	}
	activity := services.NewActivityService(&services.MockAuditStore{}, &services.MockActivityStore{}, testLogger())
	guard := services.NewGuardService(attempts, &services.MockLockoutStore{}, activity, nil, testSecurityConfig(), testLogger())

	guard.RecordLoginAttempt(context.Background(), failedAttempt("judy"))

	assert.Equal(t, 1, recorded)
}

func TestGuardService_IsAccountLockedFailureMode(t *testing.T) {
	storeErr := errors.New("store unreachable")
	lockouts := &services.MockLockoutStore{
		HasActiveLockoutFunc: func(ctx context.Context, username string, now time.Time) (bool, error) {
			return false, storeErr
		},
	}
	activity := services.NewActivityService(&services.MockAuditStore{}, &services.MockActivityStore{}, testLogger())

	openCfg := testSecurityConfig()
	guard := services.NewGuardService(&services.MockAttemptStore{}, lockouts, activity, nil, openCfg, testLogger())
	assert.False(t, guard.IsAccountLocked(context.Background(), "alice"), "default fails open")

	closedCfg := testSecurityConfig()
	closedCfg.LockoutFailClosed = true
	guard = services.NewGuardService(&services.MockAttemptStore{}, lockouts, activity, nil, closedCfg, testLogger())
	assert.True(t, guard.IsAccountLocked(context.Background(), "alice"), "configured to fail closed")
}

func TestGuardService_UnlockReturnsFalseOnStoreError(t *testing.T) {
	lockouts := &services.MockLockoutStore{
		DeactivateForUsernameFunc: func(ctx context.Context, username string) (int64, error) {
			return 0, errors.New("store unreachable")
		},
	}
	activity := services.NewActivityService(&services.MockAuditStore{}, &services.MockActivityStore{}, testLogger())
	guard := services.NewGuardService(&services.MockAttemptStore{}, lockouts, activity, nil, testSecurityConfig(), testLogger())

	assert.False(t, guard.UnlockAccount(context.Background(), "alice"))
}

func TestGuardService_ConfigurableThreshold(t *testing.T) {
	clock := newTestClock()
	store := newFakeSecurityStore(clock)
	activity := services.NewActivityService(&services.MockAuditStore{}, &services.MockActivityStore{}, testLogger())

	cfg := testSecurityConfig()
	cfg.MaxLoginAttempts = 3

	guard := services.NewGuardService(store, store, activity, nil, cfg, testLogger()).WithClock(clock.Now)
	ctx := context.Background()

	guard.RecordLoginAttempt(ctx, failedAttempt("kim"))
	guard.RecordLoginAttempt(ctx, failedAttempt("kim"))
	assert.False(t, guard.IsAccountLocked(ctx, "kim"))

	guard.RecordLoginAttempt(ctx, failedAttempt("kim"))
	assert.True(t, guard.IsAccountLocked(ctx, "kim"))
}
