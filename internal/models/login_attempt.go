package models

import "time"

// Failure reasons recorded on LoginAttempt rows
const (
	FailureReasonInvalidPassword = "invalid_password"
	FailureReasonUnknownUser     = "unknown_user"
	FailureReasonAccountLocked   = "account_locked"
)

// LoginAttempt is one authentication try, successful or not. Rows are
// append-only: never updated, never deleted by the request path.
type LoginAttempt struct {
	ID            int64
	Username      string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason *string
	AttemptedAt   time.Time
}
