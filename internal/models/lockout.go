package models

import "time"

// AccountLockout is one lockout episode. A row is authoritative only while
// is_active is true and locked_until is still in the future; expiry is a
// query-time comparison, nothing flips the flag when the window passes.
// Multiple historical rows per username are expected.
type AccountLockout struct {
	ID           int64
	Username     string
	IPAddress    string
	LockedAt     time.Time
	LockedUntil  time.Time
	AttemptCount int
	IsActive     bool
}

// Effective reports whether this lockout still blocks logins at the given
// instant.
func (l *AccountLockout) Effective(now time.Time) bool {
	return l.IsActive && !l.LockedUntil.Before(now)
}
