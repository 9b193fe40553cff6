package models

import "time"

// PasswordResetToken is a single-use credential recovery token. Delivery of
// the token to the user is handled outside this service.
type PasswordResetToken struct {
	ID        int64
	UserID    int64
	Token     string
	Email     string
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// Usable reports whether the token can still redeem a reset at the given
// instant.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return !t.IsUsed && t.ExpiresAt.After(now)
}
